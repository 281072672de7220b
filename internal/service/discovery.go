package service

import (
	"context"
	"log"
	"sort"

	"confessbot/internal/cache"
	"confessbot/internal/level"
	"confessbot/internal/model"
	"confessbot/internal/repository"
)

// Discovery result limits.
const (
	trendingLimit     = 5
	hashtagSampleSize = 50
	hashtagLimit      = 10
	leaderboardLimit  = 10
	browseUsersLimit  = 10
)

// HashtagCount is a hashtag with its usage count.
type HashtagCount struct {
	Tag   string
	Count int
}

// CommenterRank is one row of the best-commenters board.
type CommenterRank struct {
	UserID   int64
	Username string
	Count    int64
	Level    level.Level
}

// Stats is the aggregate snapshot served by the admin dashboard and the
// liveness endpoint.
type Stats struct {
	Users               int64 `json:"users"`
	Confessions         int64 `json:"confessions"`
	Comments            int64 `json:"comments"`
	PendingConfessions  int   `json:"pending_confessions,omitempty"`
	ApprovedConfessions int   `json:"approved_confessions,omitempty"`
	RejectedConfessions int   `json:"rejected_confessions,omitempty"`
}

// DiscoveryService serves the read-side boards: trending confessions,
// popular hashtags, best commenters, user browsing and aggregate stats.
type DiscoveryService struct {
	confessions *repository.ConfessionRepository
	threads     *repository.ThreadRepository
	users       *repository.UserRepository
	leaderboard cache.CommentLeaderboard
}

func NewDiscoveryService(
	confessions *repository.ConfessionRepository,
	threads *repository.ThreadRepository,
	users *repository.UserRepository,
	leaderboard cache.CommentLeaderboard,
) *DiscoveryService {
	return &DiscoveryService{
		confessions: confessions,
		threads:     threads,
		users:       users,
		leaderboard: leaderboard,
	}
}

// Trending returns the approved confessions with the most comments.
func (s *DiscoveryService) Trending(ctx context.Context) ([]model.Confession, error) {
	return s.confessions.TopByComments(ctx, trendingLimit)
}

// PopularHashtags tallies hashtags over the most recent approved
// confessions.
func (s *DiscoveryService) PopularHashtags(ctx context.Context) ([]HashtagCount, error) {
	recent, err := s.confessions.RecentApproved(ctx, hashtagSampleSize)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, c := range recent {
		for _, tag := range c.Hashtags {
			counts[tag]++
		}
	}
	tags := make([]HashtagCount, 0, len(counts))
	for tag, n := range counts {
		tags = append(tags, HashtagCount{Tag: tag, Count: n})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
	if len(tags) > hashtagLimit {
		tags = tags[:hashtagLimit]
	}
	return tags, nil
}

// BestCommenters returns the top commenters with their levels. The
// leaderboard cache is authoritative; when it is empty (cold start) the
// board is rebuilt from the threads themselves.
func (s *DiscoveryService) BestCommenters(ctx context.Context) ([]CommenterRank, error) {
	entries, err := s.leaderboard.Top(ctx, leaderboardLimit)
	if err != nil {
		log.Printf("[DiscoveryService] Leaderboard read failed, falling back to scan: %v", err)
		entries = nil
	}
	if len(entries) == 0 {
		entries, err = s.tallyFromThreads(ctx)
		if err != nil {
			return nil, err
		}
	}

	ranks := make([]CommenterRank, 0, len(entries))
	for _, e := range entries {
		name := model.AnonymousName
		if u, err := s.users.Get(ctx, e.UserID); err == nil {
			name = u.Username
		}
		ranks = append(ranks, CommenterRank{
			UserID:   e.UserID,
			Username: name,
			Count:    e.Count,
			Level:    level.ForCommentCount(e.Count),
		})
	}
	return ranks, nil
}

// CommentCount returns a user's lifetime comment count for level display.
func (s *DiscoveryService) CommentCount(ctx context.Context, userID int64) int64 {
	n, err := s.leaderboard.Count(ctx, userID)
	if err != nil {
		log.Printf("[DiscoveryService] Comment count lookup failed user=%d err=%v", userID, err)
		return 0
	}
	return n
}

// BrowseUsers returns the most reputable active users with a display
// name, excluding the viewer.
func (s *DiscoveryService) BrowseUsers(ctx context.Context, viewerID int64) ([]model.User, error) {
	// Over-fetch one so the viewer can be dropped without losing a slot.
	top, err := s.users.TopByReputation(ctx, browseUsersLimit+1)
	if err != nil {
		return nil, err
	}
	out := make([]model.User, 0, browseUsersLimit)
	for _, u := range top {
		if u.TelegramID == viewerID || !u.HasUsername() {
			continue
		}
		out = append(out, u)
		if len(out) == browseUsersLimit {
			break
		}
	}
	return out, nil
}

// Stats returns aggregate counts. includeBreakdown adds the per-status
// confession counts the admin dashboard shows.
func (s *DiscoveryService) Stats(ctx context.Context, includeBreakdown bool) (*Stats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	confessions, err := s.confessions.Count(ctx)
	if err != nil {
		return nil, err
	}
	threads, err := s.threads.All(ctx)
	if err != nil {
		return nil, err
	}
	var comments int64
	for _, t := range threads {
		comments += t.TotalComments
	}

	stats := &Stats{Users: users, Confessions: confessions, Comments: comments}
	if includeBreakdown {
		for _, status := range []model.ConfessionStatus{model.StatusPending, model.StatusApproved, model.StatusRejected} {
			n, err := s.confessions.CountByStatus(ctx, status)
			if err != nil {
				return nil, err
			}
			switch status {
			case model.StatusPending:
				stats.PendingConfessions = n
			case model.StatusApproved:
				stats.ApprovedConfessions = n
			case model.StatusRejected:
				stats.RejectedConfessions = n
			}
		}
	}
	return stats, nil
}

// tallyFromThreads rebuilds commenter counts by scanning every thread.
func (s *DiscoveryService) tallyFromThreads(ctx context.Context) ([]cache.Entry, error) {
	threads, err := s.threads.All(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[int64]int64{}
	for _, t := range threads {
		for _, c := range t.Comments {
			counts[c.UserID]++
		}
	}
	entries := make([]cache.Entry, 0, len(counts))
	for id, n := range counts {
		entries = append(entries, cache.Entry{UserID: id, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > leaderboardLimit {
		entries = entries[:leaderboardLimit]
	}
	return entries, nil
}
