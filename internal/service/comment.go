package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"confessbot/internal/cache"
	"confessbot/internal/model"
	"confessbot/internal/queue"
	"confessbot/internal/ratelimit"
	"confessbot/internal/repository"
	"confessbot/internal/text"
)

// CommentService appends comments to confession threads and keeps the
// thread total and the confession's denormalized count in step.
type CommentService struct {
	threads     *repository.ThreadRepository
	confessions *repository.ConfessionRepository
	users       *repository.UserRepository
	guard       ratelimit.Guard
	leaderboard cache.CommentLeaderboard
	publisher   queue.Publisher
	now         func() time.Time
}

func NewCommentService(
	threads *repository.ThreadRepository,
	confessions *repository.ConfessionRepository,
	users *repository.UserRepository,
	guard ratelimit.Guard,
	leaderboard cache.CommentLeaderboard,
	publisher queue.Publisher,
) *CommentService {
	return &CommentService{
		threads:     threads,
		confessions: confessions,
		users:       users,
		guard:       guard,
		leaderboard: leaderboard,
		publisher:   publisher,
		now:         time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *CommentService) WithClock(now func() time.Time) *CommentService {
	s.now = now
	return s
}

// Add validates and appends a comment. The rate limit fails closed: if
// the user exceeded the window the comment is refused with
// model.ErrRateLimited. Recording the rate-limit stamp afterwards fails
// open (a missed stamp lets the user exceed the limit once).
func (s *CommentService) Add(ctx context.Context, confessionID string, userID int64, raw string) (*model.Comment, error) {
	trimmed := strings.TrimSpace(raw)
	if utf8.RuneCountInString(trimmed) < model.MinCommentLength {
		return nil, model.ErrCommentTooShort
	}

	allowed, err := s.guard.CheckCommentRateLimit(ctx, userID, ratelimit.CommentWindow, ratelimit.MaxCommentsPerWindow)
	if err != nil {
		// Fail open on guard unavailability; strictness loses to availability.
		log.Printf("[CommentService] Rate limit check failed user=%d err=%v", userID, err)
	} else if !allowed {
		return nil, model.ErrRateLimited
	}

	if _, err := s.threads.Get(ctx, confessionID); err != nil {
		if errors.Is(err, model.ErrThreadNotFound) {
			return nil, model.ErrConfessionNotFound
		}
		return nil, err
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	comment := model.Comment{
		ID:        uuid.NewString(),
		Text:      text.Sanitize(trimmed),
		UserID:    userID,
		UserName:  user.Username,
		PostedAt:  now.Format("02 Jan 2006 15:04"),
		CreatedAt: now,
	}

	// Thread append and the confession's denormalized counter belong to
	// the same logical operation: both are atomic increments, so
	// concurrent commenters cannot lose updates.
	if err := s.threads.Append(ctx, confessionID, comment); err != nil {
		return nil, err
	}
	if err := s.confessions.IncrementComments(ctx, confessionID); err != nil {
		log.Printf("[CommentService] Confession counter bump failed confession=%s err=%v", confessionID, err)
	}

	if err := s.users.IncrementReputation(ctx, userID, model.ReputationCommentBonus); err != nil {
		log.Printf("[CommentService] Comment bonus failed user=%d err=%v", userID, err)
	}
	if err := s.guard.RecordComment(ctx, userID); err != nil {
		log.Printf("[CommentService] Rate limit stamp failed user=%d err=%v", userID, err)
	}
	if s.leaderboard != nil {
		if err := s.leaderboard.RecordComment(ctx, userID); err != nil {
			log.Printf("[CommentService] Leaderboard bump failed user=%d err=%v", userID, err)
		}
	}

	if c, err := s.confessions.Get(ctx, confessionID); err == nil {
		s.publishCommentAdded(ctx, c, userID, comment.Text)
	}

	log.Printf("[CommentService] User %d commented on confession %s", userID, confessionID)
	return &comment, nil
}

// ViewThread returns one 1-based page of a thread. Out-of-range pages
// yield an empty page, not an error.
func (s *CommentService) ViewThread(ctx context.Context, confessionID string, page int) (*model.ThreadPage, error) {
	thread, err := s.threads.Get(ctx, confessionID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	total := len(thread.Comments)
	totalPages := (total + model.CommentsPerPage - 1) / model.CommentsPerPage
	start := (page - 1) * model.CommentsPerPage
	end := start + model.CommentsPerPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &model.ThreadPage{
		ConfessionID:     thread.ConfessionID,
		ConfessionNumber: thread.ConfessionNumber,
		ConfessionText:   thread.ConfessionText,
		Comments:         thread.Comments[start:end],
		Page:             page,
		TotalPages:       totalPages,
		StartIndex:       start,
		Total:            total,
	}, nil
}

func (s *CommentService) publishCommentAdded(ctx context.Context, c *model.Confession, commenterID int64, commentText string) {
	if s.publisher == nil {
		return
	}
	preview := text.Truncate(commentText, 50)
	event := queue.NewCommentAddedEvent(ref(c), commenterID, preview)
	if _, err := s.publisher.Publish(ctx, queue.StreamNotifications, event); err != nil {
		log.Printf("[CommentService] Publish %s failed: %v", event.Type, err)
	}
}
