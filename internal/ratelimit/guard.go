package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Action kinds gated by the single-slot cooldown.
const (
	ActionConfession = "confession"
)

// Policy defaults: one confession per minute, three comments per 30s.
const (
	ConfessionCooldown   = 60 * time.Second
	CommentWindow        = 30 * time.Second
	MaxCommentsPerWindow = 3
)

// Guard decides whether an action may proceed right now.
//
// Cooldowns are single-slot "last action time" records, one per action
// kind (cheap O(1) check, used for heavy actions like confession
// submission). The comment rate limit is a sliding-window counter for
// bursty actions.
type Guard interface {
	// CheckCooldown reports whether an action of the given kind is
	// allowed, and if not, how long until it is.
	CheckCooldown(ctx context.Context, userID int64, action string, window time.Duration) (bool, time.Duration, error)

	// SetCooldown stamps the current time for the action kind, leaving
	// unrelated kinds untouched.
	SetCooldown(ctx context.Context, userID int64, action string) error

	// CheckCommentRateLimit reports whether the user is below max
	// comment actions within the trailing window.
	CheckCommentRateLimit(ctx context.Context, userID int64, window time.Duration, max int) (bool, error)

	// RecordComment stamps a comment action. Failures here are a
	// deliberate fail-open: the caller logs and proceeds.
	RecordComment(ctx context.Context, userID int64) error
}

// RedisGuard implements Guard on Redis: cooldowns as per-user hashes
// (field per action kind, HSET merge semantics), the comment window as a
// sorted set of timestamps pruned on every write so the record never
// grows past the window.
type RedisGuard struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (g *RedisGuard) WithClock(now func() time.Time) *RedisGuard {
	g.now = now
	return g
}

func cooldownKey(userID int64) string {
	return fmt.Sprintf("cooldown:%d", userID)
}

func commentWindowKey(userID int64) string {
	return fmt.Sprintf("ratelimit:comments:%d", userID)
}

func (g *RedisGuard) CheckCooldown(ctx context.Context, userID int64, action string, window time.Duration) (bool, time.Duration, error) {
	val, err := g.client.HGet(ctx, cooldownKey(userID), action).Result()
	if errors.Is(err, redis.Nil) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("cooldown lookup user=%d action=%s: %w", userID, action, err)
	}
	lastMillis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupt record; treat as never acted.
		log.Printf("[Guard] Corrupt cooldown record user=%d action=%s val=%q", userID, action, val)
		return true, 0, nil
	}
	elapsed := g.now().Sub(time.UnixMilli(lastMillis))
	if elapsed >= window {
		return true, 0, nil
	}
	return false, window - elapsed, nil
}

func (g *RedisGuard) SetCooldown(ctx context.Context, userID int64, action string) error {
	err := g.client.HSet(ctx, cooldownKey(userID), action, g.now().UnixMilli()).Err()
	if err != nil {
		return fmt.Errorf("set cooldown user=%d action=%s: %w", userID, action, err)
	}
	return nil
}

func (g *RedisGuard) CheckCommentRateLimit(ctx context.Context, userID int64, window time.Duration, max int) (bool, error) {
	// Exclusive bound: a stamp exactly window old has left the window,
	// matching the prune cutoff in RecordComment.
	cutoff := g.now().Add(-window).UnixMilli()
	count, err := g.client.ZCount(ctx, commentWindowKey(userID),
		"("+strconv.FormatInt(cutoff, 10), "+inf").Result()
	if err != nil {
		return false, fmt.Errorf("rate limit lookup user=%d: %w", userID, err)
	}
	return count < int64(max), nil
}

func (g *RedisGuard) RecordComment(ctx context.Context, userID int64) error {
	key := commentWindowKey(userID)
	now := g.now()
	cutoff := now.Add(-CommentWindow).UnixMilli()

	// ZADD the new stamp, prune everything older than the window, keep a
	// TTL so idle users cost nothing.
	pipe := g.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.NewString(),
	})
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
	pipe.Expire(ctx, key, 2*CommentWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record comment user=%d: %w", userID, err)
	}
	return nil
}
