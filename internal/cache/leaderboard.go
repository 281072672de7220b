package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// leaderboardKey is the sorted set of lifetime comment counts.
	leaderboardKey = "leaderboard:comments"

	// leaderboardTTL keeps the board from outliving a dead deployment;
	// it is refreshed on every write.
	leaderboardTTL = 30 * 24 * time.Hour
)

// Entry is one row of the commenter leaderboard.
type Entry struct {
	UserID int64
	Count  int64
}

// CommentLeaderboard tracks lifetime comment counts per user so level
// lookups and the best-commenters board avoid scanning every thread.
// Using an interface enables testing with fakes.
type CommentLeaderboard interface {
	// RecordComment bumps the user's lifetime comment count.
	RecordComment(ctx context.Context, userID int64) error

	// Count returns the user's lifetime comment count (0 if unseen).
	Count(ctx context.Context, userID int64) (int64, error)

	// Top returns the highest-count users, best first.
	Top(ctx context.Context, limit int) ([]Entry, error)
}

// RedisLeaderboard implements CommentLeaderboard on a Redis sorted set.
type RedisLeaderboard struct {
	client *redis.Client
}

func NewRedisLeaderboard(client *redis.Client) *RedisLeaderboard {
	return &RedisLeaderboard{client: client}
}

// RecordComment bumps the count with ZINCRBY and refreshes the TTL.
func (l *RedisLeaderboard) RecordComment(ctx context.Context, userID int64) error {
	member := strconv.FormatInt(userID, 10)
	pipe := l.client.Pipeline()
	pipe.ZIncrBy(ctx, leaderboardKey, 1, member)
	pipe.Expire(ctx, leaderboardKey, leaderboardTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard record user=%d: %w", userID, err)
	}
	return nil
}

func (l *RedisLeaderboard) Count(ctx context.Context, userID int64) (int64, error) {
	score, err := l.client.ZScore(ctx, leaderboardKey, strconv.FormatInt(userID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leaderboard count user=%d: %w", userID, err)
	}
	return int64(score), nil
}

func (l *RedisLeaderboard) Top(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		member, ok := row.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{UserID: id, Count: int64(row.Score)})
	}
	return entries, nil
}
