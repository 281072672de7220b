package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"confessbot/internal/model"
	"confessbot/internal/store"
)

const collectionThreads = "comments"

// ThreadRepository persists comment threads, one document per confession.
type ThreadRepository struct {
	store store.Store
}

func NewThreadRepository(s store.Store) *ThreadRepository {
	return &ThreadRepository{store: s}
}

// Init materializes an empty thread for a freshly approved confession.
func (r *ThreadRepository) Init(ctx context.Context, c *model.Confession) error {
	t := model.Thread{
		ConfessionID:     c.ID,
		ConfessionNumber: c.Number,
		ConfessionText:   c.Text,
		Comments:         []model.Comment{},
		TotalComments:    0,
	}
	if err := r.store.Set(ctx, collectionThreads, c.ID, t); err != nil {
		return fmt.Errorf("init thread %s: %w", c.ID, err)
	}
	return nil
}

// Get returns the thread or model.ErrThreadNotFound.
func (r *ThreadRepository) Get(ctx context.Context, confessionID string) (*model.Thread, error) {
	raw, err := r.store.Get(ctx, collectionThreads, confessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get thread %s: %w", confessionID, err)
	}
	var t model.Thread
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", confessionID, err)
	}
	return &t, nil
}

// Append atomically adds a comment and bumps the thread's total so the
// count always matches the sequence length.
func (r *ThreadRepository) Append(ctx context.Context, confessionID string, c model.Comment) error {
	if err := r.store.ArrayAppend(ctx, collectionThreads, confessionID, "comments", c); err != nil {
		return fmt.Errorf("append comment to %s: %w", confessionID, err)
	}
	if _, err := r.store.Increment(ctx, collectionThreads, confessionID, "total_comments", 1); err != nil {
		return fmt.Errorf("bump thread total %s: %w", confessionID, err)
	}
	return nil
}

// All returns every thread. Used for comment tallies; the dataset is a
// closed community, scanning is acceptable.
func (r *ThreadRepository) All(ctx context.Context) ([]model.Thread, error) {
	docs, err := r.store.Query(ctx, collectionThreads, store.Query{})
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	threads := make([]model.Thread, 0, len(docs))
	for _, raw := range docs {
		var t model.Thread
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode thread: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, nil
}

// Count returns the number of threads (one per approved confession).
func (r *ThreadRepository) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx, collectionThreads)
}
