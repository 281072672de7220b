package service

import (
	"context"
	"sync"
	"time"

	"confessbot/internal/cache"
	"confessbot/internal/queue"
	"confessbot/internal/repository"
	"confessbot/internal/store"
)

// =============================================================================
// MOCKS AND FIXTURES
// =============================================================================
//
// Services are exercised against the in-memory store; only the Redis-backed
// collaborators (guard, leaderboard, publisher) are mocked. Function fields
// let each test define custom behavior.

type mockGuard struct {
	checkCooldownFn func(ctx context.Context, userID int64, action string, window time.Duration) (bool, time.Duration, error)
	checkRateFn     func(ctx context.Context, userID int64, window time.Duration, max int) (bool, error)

	mu            sync.Mutex
	cooldownSets  []int64
	recordedUsers []int64
}

func (m *mockGuard) CheckCooldown(ctx context.Context, userID int64, action string, window time.Duration) (bool, time.Duration, error) {
	if m.checkCooldownFn != nil {
		return m.checkCooldownFn(ctx, userID, action, window)
	}
	return true, 0, nil
}

func (m *mockGuard) SetCooldown(ctx context.Context, userID int64, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldownSets = append(m.cooldownSets, userID)
	return nil
}

func (m *mockGuard) CheckCommentRateLimit(ctx context.Context, userID int64, window time.Duration, max int) (bool, error) {
	if m.checkRateFn != nil {
		return m.checkRateFn(ctx, userID, window, max)
	}
	return true, nil
}

func (m *mockGuard) RecordComment(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordedUsers = append(m.recordedUsers, userID)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []queue.NotificationEvent
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.NotificationEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return "1-0", nil
}

func (m *mockPublisher) byType(eventType string) []queue.NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []queue.NotificationEvent
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type mockLeaderboard struct {
	mu     sync.Mutex
	counts map[int64]int64
}

func newMockLeaderboard() *mockLeaderboard {
	return &mockLeaderboard{counts: map[int64]int64{}}
}

func (m *mockLeaderboard) RecordComment(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[userID]++
	return nil
}

func (m *mockLeaderboard) Count(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[userID], nil
}

func (m *mockLeaderboard) Top(ctx context.Context, limit int) ([]cache.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]cache.Entry, 0, len(m.counts))
	for id, n := range m.counts {
		entries = append(entries, cache.Entry{UserID: id, Count: n})
	}
	return entries, nil
}

// env bundles the repositories over a fresh in-memory store.
type env struct {
	store       *store.MemoryStore
	users       *repository.UserRepository
	confessions *repository.ConfessionRepository
	threads     *repository.ThreadRepository
	counters    *repository.CounterRepository
	states      *repository.StateRepository
	guard       *mockGuard
	publisher   *mockPublisher
	leaderboard *mockLeaderboard
}

func newEnv() *env {
	s := store.NewMemoryStore()
	return &env{
		store:       s,
		users:       repository.NewUserRepository(s),
		confessions: repository.NewConfessionRepository(s),
		threads:     repository.NewThreadRepository(s),
		counters:    repository.NewCounterRepository(s),
		states:      repository.NewStateRepository(s),
		guard:       &mockGuard{},
		publisher:   &mockPublisher{},
		leaderboard: newMockLeaderboard(),
	}
}

func (e *env) confessionService(adminIDs ...int64) *ConfessionService {
	return NewConfessionService(
		e.confessions, e.threads, e.users, e.counters, e.states,
		e.guard, e.publisher, adminIDs)
}

func (e *env) commentService() *CommentService {
	return NewCommentService(e.threads, e.confessions, e.users, e.guard, e.leaderboard, e.publisher)
}

func (e *env) profileService(adminIDs ...int64) *ProfileService {
	return NewProfileService(e.users, adminIDs)
}

func (e *env) socialService() *SocialService {
	return NewSocialService(e.users, e.publisher)
}

// mustUser creates a profile directly through the repository.
func (e *env) mustUser(ctx context.Context, id int64, name string) {
	if _, err := e.users.GetOrCreate(ctx, id, name); err != nil {
		panic(err)
	}
}
