package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"confessbot/internal/model"
	"confessbot/internal/queue"
	"confessbot/internal/ratelimit"
	"confessbot/internal/repository"
	"confessbot/internal/text"
)

// ConfessionService owns the confession lifecycle:
// submit -> pending -> approved | rejected. Both decisions are terminal
// and enforced with an atomic guarded transition.
type ConfessionService struct {
	confessions *repository.ConfessionRepository
	threads     *repository.ThreadRepository
	users       *repository.UserRepository
	counters    *repository.CounterRepository
	states      *repository.StateRepository
	guard       ratelimit.Guard
	publisher   queue.Publisher
	admins      map[int64]bool
	now         func() time.Time
}

func NewConfessionService(
	confessions *repository.ConfessionRepository,
	threads *repository.ThreadRepository,
	users *repository.UserRepository,
	counters *repository.CounterRepository,
	states *repository.StateRepository,
	guard ratelimit.Guard,
	publisher queue.Publisher,
	adminIDs []int64,
) *ConfessionService {
	return &ConfessionService{
		confessions: confessions,
		threads:     threads,
		users:       users,
		counters:    counters,
		states:      states,
		guard:       guard,
		publisher:   publisher,
		admins:      adminSet(adminIDs),
		now:         time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *ConfessionService) WithClock(now func() time.Time) *ConfessionService {
	s.now = now
	return s
}

// Get returns a confession by opaque id.
func (s *ConfessionService) Get(ctx context.Context, id string) (*model.Confession, error) {
	return s.confessions.Get(ctx, id)
}

// Submit validates, sanitizes and persists a new pending confession.
// The cooldown is checked before any side effect; a violation performs
// none and returns a CooldownError carrying the remaining wait.
func (s *ConfessionService) Submit(ctx context.Context, userID int64, raw string) (*model.Confession, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, model.ErrUserBlocked
	}

	trimmed := strings.TrimSpace(raw)
	// Limits count characters, not bytes.
	length := utf8.RuneCountInString(trimmed)
	if length < model.MinConfessionLength {
		return nil, model.ErrTextTooShort
	}
	if length > model.MaxConfessionLength {
		return nil, model.ErrTextTooLong
	}

	ok, remaining, err := s.guard.CheckCooldown(ctx, userID, ratelimit.ActionConfession, ratelimit.ConfessionCooldown)
	if err != nil {
		// Fail open: a stale cooldown read should not block submissions.
		log.Printf("[ConfessionService] Cooldown check failed user=%d err=%v", userID, err)
	} else if !ok {
		return nil, &model.CooldownError{Remaining: remaining}
	}

	sanitized := text.Sanitize(trimmed)
	hashtags := text.ExtractHashtags(sanitized)
	body := text.StripHashtags(sanitized)

	// The sequence number is assigned first: a confession must never
	// exist without a number. A counter failure aborts the submission.
	number, err := s.counters.Next(ctx, repository.ConfessionNumberCounter)
	if err != nil {
		return nil, fmt.Errorf("assign confession number: %w", err)
	}

	now := s.now().UTC()
	c := &model.Confession{
		ID:        fmt.Sprintf("confess_%d_%d", userID, now.UnixMilli()),
		Number:    number,
		AuthorID:  userID,
		Text:      body,
		Status:    model.StatusPending,
		Hashtags:  hashtags,
		CreatedAt: now,
	}
	if err := s.confessions.Create(ctx, c); err != nil {
		return nil, err
	}

	if err := s.users.IncrementConfessions(ctx, userID); err != nil {
		log.Printf("[ConfessionService] Confession count bump failed user=%d err=%v", userID, err)
	}
	if err := s.guard.SetCooldown(ctx, userID, ratelimit.ActionConfession); err != nil {
		log.Printf("[ConfessionService] Cooldown stamp failed user=%d err=%v", userID, err)
	}

	s.publish(ctx, queue.NewConfessionSubmittedEvent(ref(c)))
	log.Printf("[ConfessionService] User %d submitted confession #%d (%s)", userID, c.Number, c.ID)
	return c, nil
}

// Approve transitions a pending confession to approved, grants the
// author the approval bonus, materializes the comment thread and
// announces the approval. A confession that already left pending
// returns model.ErrAlreadyDecided.
func (s *ConfessionService) Approve(ctx context.Context, adminID int64, confessionID string) (*model.Confession, error) {
	if !s.admins[adminID] {
		return nil, model.ErrNotAdmin
	}
	c, err := s.confessions.Get(ctx, confessionID)
	if err != nil {
		return nil, err
	}

	approvedAt := s.now().UTC()
	ok, err := s.confessions.Transition(ctx, confessionID, model.StatusPending, map[string]any{
		"status":      string(model.StatusApproved),
		"approved_at": approvedAt,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrAlreadyDecided
	}
	c.Status = model.StatusApproved
	c.ApprovedAt = &approvedAt

	if err := s.users.IncrementReputation(ctx, c.AuthorID, model.ReputationApproveBonus); err != nil {
		log.Printf("[ConfessionService] Approval bonus failed user=%d err=%v", c.AuthorID, err)
	}
	if err := s.threads.Init(ctx, c); err != nil {
		log.Printf("[ConfessionService] Thread init failed confession=%s err=%v", c.ID, err)
	}

	s.publish(ctx, queue.NewConfessionApprovedEvent(ref(c), adminID))
	log.Printf("[ConfessionService] Admin %d approved confession #%d", adminID, c.Number)
	return c, nil
}

// RequestRejection arms the two-turn rejection flow: the admin's next
// plain-text message becomes the reason. The state is keyed by the admin
// id and carries the confession id, so a concurrent review by another
// admin can never be misapplied.
func (s *ConfessionService) RequestRejection(ctx context.Context, adminID int64, confessionID string) error {
	if !s.admins[adminID] {
		return model.ErrNotAdmin
	}
	c, err := s.confessions.Get(ctx, confessionID)
	if err != nil {
		return err
	}
	if c.Status != model.StatusPending {
		return model.ErrAlreadyDecided
	}
	return s.states.Set(ctx, adminID, model.UserState{
		State:        model.StateAwaitingRejectionReason,
		ConfessionID: confessionID,
	})
}

// Reject transitions a pending confession to rejected with a reason and
// notifies the author.
func (s *ConfessionService) Reject(ctx context.Context, adminID int64, confessionID, reason string) (*model.Confession, error) {
	if !s.admins[adminID] {
		return nil, model.ErrNotAdmin
	}
	c, err := s.confessions.Get(ctx, confessionID)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	ok, err := s.confessions.Transition(ctx, confessionID, model.StatusPending, map[string]any{
		"status":           string(model.StatusRejected),
		"rejection_reason": reason,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrAlreadyDecided
	}
	c.Status = model.StatusRejected
	c.RejectionReason = &reason

	s.publish(ctx, queue.NewConfessionRejectedEvent(ref(c), adminID, reason))
	log.Printf("[ConfessionService] Admin %d rejected confession #%d", adminID, c.Number)
	return c, nil
}

// ByAuthor lists a user's own confessions, newest first.
func (s *ConfessionService) ByAuthor(ctx context.Context, authorID int64, limit int) ([]model.Confession, error) {
	return s.confessions.ByAuthor(ctx, authorID, limit)
}

// Pending lists confessions awaiting review, oldest first.
func (s *ConfessionService) Pending(ctx context.Context, adminID int64, limit int) ([]model.Confession, error) {
	if !s.admins[adminID] {
		return nil, model.ErrNotAdmin
	}
	return s.confessions.Pending(ctx, limit)
}

// publish sends a notification event, best-effort.
func (s *ConfessionService) publish(ctx context.Context, event queue.NotificationEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamNotifications, event); err != nil {
		log.Printf("[ConfessionService] Publish %s failed: %v", event.Type, err)
	}
}

func ref(c *model.Confession) queue.ConfessionRef {
	return queue.ConfessionRef{ID: c.ID, Number: c.Number, AuthorID: c.AuthorID}
}
