package ratelimit_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"confessbot/internal/ratelimit"
)

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	// Use DB 1 for testing to avoid conflicts with dev data
	opts.DB = 1

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}

	client.FlushDB(ctx)
	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx := context.Background()
	client.FlushDB(ctx)
	client.Close()
}

// fakeClock is a controllable time source.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time          { return c.current }
func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func TestCheckCooldown_FirstActionAllowed(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	guard := ratelimit.NewRedisGuard(client)
	ok, remaining, err := guard.CheckCooldown(context.Background(), 1, ratelimit.ActionConfession, ratelimit.ConfessionCooldown)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok {
		t.Error("first action should be allowed")
	}
	if remaining != 0 {
		t.Errorf("remaining = %v, want 0", remaining)
	}
}

func TestCheckCooldown_BlocksInsideWindow(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	clock := &fakeClock{current: time.Now()}
	guard := ratelimit.NewRedisGuard(client).WithClock(clock.Now)
	ctx := context.Background()

	if err := guard.SetCooldown(ctx, 1, ratelimit.ActionConfession); err != nil {
		t.Fatalf("set cooldown: %v", err)
	}

	clock.Advance(20 * time.Second)
	ok, remaining, err := guard.CheckCooldown(ctx, 1, ratelimit.ActionConfession, ratelimit.ConfessionCooldown)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ok {
		t.Error("action inside cooldown should be blocked")
	}
	want := 40 * time.Second
	if remaining < want-time.Second || remaining > want+time.Second {
		t.Errorf("remaining = %v, want about %v", remaining, want)
	}

	clock.Advance(41 * time.Second)
	ok, _, err = guard.CheckCooldown(ctx, 1, ratelimit.ActionConfession, ratelimit.ConfessionCooldown)
	if err != nil {
		t.Fatalf("check after window: %v", err)
	}
	if !ok {
		t.Error("action after cooldown expiry should be allowed")
	}
}

func TestCheckCooldown_PerUser(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	guard := ratelimit.NewRedisGuard(client)
	ctx := context.Background()

	if err := guard.SetCooldown(ctx, 1, ratelimit.ActionConfession); err != nil {
		t.Fatalf("set cooldown: %v", err)
	}

	ok, _, err := guard.CheckCooldown(ctx, 2, ratelimit.ActionConfession, ratelimit.ConfessionCooldown)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok {
		t.Error("cooldown must not leak across users")
	}
}

func TestCommentRateLimit_ThreeThenBlocked(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	clock := &fakeClock{current: time.Now()}
	guard := ratelimit.NewRedisGuard(client).WithClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < ratelimit.MaxCommentsPerWindow; i++ {
		ok, err := guard.CheckCommentRateLimit(ctx, 1, ratelimit.CommentWindow, ratelimit.MaxCommentsPerWindow)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("comment %d should be allowed", i+1)
		}
		if err := guard.RecordComment(ctx, 1); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		clock.Advance(time.Second)
	}

	ok, err := guard.CheckCommentRateLimit(ctx, 1, ratelimit.CommentWindow, ratelimit.MaxCommentsPerWindow)
	if err != nil {
		t.Fatalf("fourth check: %v", err)
	}
	if ok {
		t.Error("fourth comment inside the window should be blocked")
	}
}

func TestCommentRateLimit_WindowSlides(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	clock := &fakeClock{current: time.Now()}
	guard := ratelimit.NewRedisGuard(client).WithClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < ratelimit.MaxCommentsPerWindow; i++ {
		if err := guard.RecordComment(ctx, 1); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	// Once the window has fully passed, the stamps no longer count.
	clock.Advance(ratelimit.CommentWindow + time.Second)
	ok, err := guard.CheckCommentRateLimit(ctx, 1, ratelimit.CommentWindow, ratelimit.MaxCommentsPerWindow)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok {
		t.Error("comments outside the window must not count against the limit")
	}
}

func TestCommentRateLimit_WindowBoundaryExclusive(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	clock := &fakeClock{current: time.Now()}
	guard := ratelimit.NewRedisGuard(client).WithClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < ratelimit.MaxCommentsPerWindow; i++ {
		if err := guard.RecordComment(ctx, 1); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	// A stamp exactly one window old has left the window, the same
	// boundary RecordComment prunes at.
	clock.Advance(ratelimit.CommentWindow)
	ok, err := guard.CheckCommentRateLimit(ctx, 1, ratelimit.CommentWindow, ratelimit.MaxCommentsPerWindow)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok {
		t.Error("stamps exactly one window old must not count against the limit")
	}
}

