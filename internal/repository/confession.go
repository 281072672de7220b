package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"confessbot/internal/model"
	"confessbot/internal/store"
)

const collectionConfessions = "confessions"

// ConfessionRepository persists confessions in the document store.
type ConfessionRepository struct {
	store store.Store
}

func NewConfessionRepository(s store.Store) *ConfessionRepository {
	return &ConfessionRepository{store: s}
}

func (r *ConfessionRepository) Create(ctx context.Context, c *model.Confession) error {
	if err := r.store.Set(ctx, collectionConfessions, c.ID, c); err != nil {
		return fmt.Errorf("create confession %s: %w", c.ID, err)
	}
	return nil
}

// Get returns the confession or model.ErrConfessionNotFound.
func (r *ConfessionRepository) Get(ctx context.Context, id string) (*model.Confession, error) {
	raw, err := r.store.Get(ctx, collectionConfessions, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.ErrConfessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get confession %s: %w", id, err)
	}
	var c model.Confession
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode confession %s: %w", id, err)
	}
	return &c, nil
}

// Transition applies fields only if the confession is still in the from
// status, as a single atomic guarded update. Returns false when the
// confession has already left that status (out-of-order decision).
func (r *ConfessionRepository) Transition(ctx context.Context, id string, from model.ConfessionStatus, fields map[string]any) (bool, error) {
	ok, err := r.store.UpdateIf(ctx, collectionConfessions, id, "status", string(from), fields)
	if err != nil {
		return false, fmt.Errorf("transition confession %s: %w", id, err)
	}
	return ok, nil
}

// IncrementComments atomically bumps the denormalized comment counter.
func (r *ConfessionRepository) IncrementComments(ctx context.Context, id string) error {
	_, err := r.store.Increment(ctx, collectionConfessions, id, "total_comments", 1)
	return err
}

// Pending returns pending confessions, oldest first.
func (r *ConfessionRepository) Pending(ctx context.Context, limit int) ([]model.Confession, error) {
	return r.byStatus(ctx, model.StatusPending, "created_at", false, limit)
}

// TopByComments returns approved confessions with the most comments.
func (r *ConfessionRepository) TopByComments(ctx context.Context, limit int) ([]model.Confession, error) {
	return r.byStatus(ctx, model.StatusApproved, "total_comments", true, limit)
}

// RecentApproved returns the most recently submitted approved confessions.
func (r *ConfessionRepository) RecentApproved(ctx context.Context, limit int) ([]model.Confession, error) {
	return r.byStatus(ctx, model.StatusApproved, "created_at", true, limit)
}

// ByAuthor returns a user's confessions, newest first.
func (r *ConfessionRepository) ByAuthor(ctx context.Context, authorID int64, limit int) ([]model.Confession, error) {
	docs, err := r.store.Query(ctx, collectionConfessions, store.Query{
		Field:      "author_id",
		Value:      authorID,
		OrderBy:    "created_at",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query confessions by author %d: %w", authorID, err)
	}
	out := make([]model.Confession, 0, len(docs))
	for _, raw := range docs {
		var c model.Confession
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode confession: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// CountByStatus returns how many confessions are in the given status.
func (r *ConfessionRepository) CountByStatus(ctx context.Context, status model.ConfessionStatus) (int, error) {
	docs, err := r.store.Query(ctx, collectionConfessions, store.Query{
		Field: "status",
		Value: string(status),
	})
	if err != nil {
		return 0, fmt.Errorf("count %s confessions: %w", status, err)
	}
	return len(docs), nil
}

// Count returns the total number of confessions.
func (r *ConfessionRepository) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx, collectionConfessions)
}

func (r *ConfessionRepository) byStatus(ctx context.Context, status model.ConfessionStatus, orderBy string, desc bool, limit int) ([]model.Confession, error) {
	docs, err := r.store.Query(ctx, collectionConfessions, store.Query{
		Field:      "status",
		Value:      string(status),
		OrderBy:    orderBy,
		Descending: desc,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query %s confessions: %w", status, err)
	}
	out := make([]model.Confession, 0, len(docs))
	for _, raw := range docs {
		var c model.Confession
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode confession: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}
