package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"confessbot/internal/model"
	"confessbot/internal/store"
)

const collectionStates = "user_states"

// StateRepository persists conversation state so multi-step flows survive
// restarts and are shared across stateless webhook handlers.
type StateRepository struct {
	store store.Store
}

func NewStateRepository(s store.Store) *StateRepository {
	return &StateRepository{store: s}
}

// Get returns the user's pending state, or (nil, nil) when none is armed.
func (r *StateRepository) Get(ctx context.Context, userID int64) (*model.UserState, error) {
	raw, err := r.store.Get(ctx, collectionStates, strconv.FormatInt(userID, 10))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state for %d: %w", userID, err)
	}
	var st model.UserState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode state for %d: %w", userID, err)
	}
	return &st, nil
}

// Set arms a conversation state, overwriting any prior pending flow.
func (r *StateRepository) Set(ctx context.Context, userID int64, st model.UserState) error {
	if err := r.store.Set(ctx, collectionStates, strconv.FormatInt(userID, 10), st); err != nil {
		return fmt.Errorf("set state for %d: %w", userID, err)
	}
	return nil
}

// Clear consumes the user's pending state. Clearing an absent state is a
// no-op.
func (r *StateRepository) Clear(ctx context.Context, userID int64) error {
	if err := r.store.Delete(ctx, collectionStates, strconv.FormatInt(userID, 10)); err != nil {
		return fmt.Errorf("clear state for %d: %w", userID, err)
	}
	return nil
}
