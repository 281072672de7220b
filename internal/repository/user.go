package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"confessbot/internal/model"
	"confessbot/internal/store"
)

const collectionUsers = "users"

// UserRepository persists user profiles in the document store.
type UserRepository struct {
	store store.Store
}

func NewUserRepository(s store.Store) *UserRepository {
	return &UserRepository{store: s}
}

func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Get returns the user or model.ErrUserNotFound.
func (r *UserRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	raw, err := r.store.Get(ctx, collectionUsers, userKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user %d: %w", id, err)
	}
	return &u, nil
}

// GetOrCreate returns the user, creating a default profile on first
// contact. firstName is only used when creating.
func (r *UserRepository) GetOrCreate(ctx context.Context, id int64, firstName string) (*model.User, error) {
	u, err := r.Get(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	u = &model.User{
		TelegramID: id,
		Username:   model.AnonymousName,
		FirstName:  firstName,
		Followers:  []int64{},
		Following:  []int64{},
		IsActive:   true,
		Notifications: map[string]bool{
			model.NotifyNewFollower:   true,
			model.NotifyNewComment:    true,
			model.NotifyNewConfession: true,
		},
		JoinedAt: time.Now().UTC(),
	}
	if err := r.store.Set(ctx, collectionUsers, userKey(id), u); err != nil {
		return nil, fmt.Errorf("create user %d: %w", id, err)
	}
	return u, nil
}

// Update merges the given fields into the user document.
func (r *UserRepository) Update(ctx context.Context, id int64, fields map[string]any) error {
	err := r.store.Update(ctx, collectionUsers, userKey(id), fields)
	if errors.Is(err, store.ErrNotFound) {
		return model.ErrUserNotFound
	}
	return err
}

// IncrementReputation atomically adds delta reputation points.
func (r *UserRepository) IncrementReputation(ctx context.Context, id int64, delta int64) error {
	_, err := r.store.Increment(ctx, collectionUsers, userKey(id), "reputation", delta)
	return err
}

// IncrementConfessions atomically bumps the total-confessions counter.
func (r *UserRepository) IncrementConfessions(ctx context.Context, id int64) error {
	_, err := r.store.Increment(ctx, collectionUsers, userKey(id), "total_confessions", 1)
	return err
}

// AddFollowEdge inserts the symmetric follow relation with set semantics.
// Returns false without writing if userID already follows targetID.
func (r *UserRepository) AddFollowEdge(ctx context.Context, userID, targetID int64) (bool, error) {
	added, err := r.store.ArrayUnion(ctx, collectionUsers, userKey(userID), "following", targetID)
	if errors.Is(err, store.ErrNotFound) {
		return false, model.ErrUserNotFound
	}
	if err != nil {
		return false, fmt.Errorf("add following edge %d->%d: %w", userID, targetID, err)
	}
	if !added {
		return false, nil
	}
	if _, err := r.store.ArrayUnion(ctx, collectionUsers, userKey(targetID), "followers", userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, model.ErrUserNotFound
		}
		return false, fmt.Errorf("add follower edge %d->%d: %w", userID, targetID, err)
	}
	return true, nil
}

// RemoveFollowEdge removes the symmetric follow relation. Removing an
// absent edge is a harmless no-op.
func (r *UserRepository) RemoveFollowEdge(ctx context.Context, userID, targetID int64) error {
	if err := r.store.ArrayRemove(ctx, collectionUsers, userKey(userID), "following", targetID); err != nil {
		return fmt.Errorf("remove following edge %d->%d: %w", userID, targetID, err)
	}
	if err := r.store.ArrayRemove(ctx, collectionUsers, userKey(targetID), "followers", userID); err != nil {
		return fmt.Errorf("remove follower edge %d->%d: %w", userID, targetID, err)
	}
	return nil
}

// UsernameTaken reports whether another user already holds the name.
func (r *UserRepository) UsernameTaken(ctx context.Context, username string, selfID int64) (bool, error) {
	docs, err := r.store.Query(ctx, collectionUsers, store.Query{
		Field: "username",
		Value: username,
	})
	if err != nil {
		return false, fmt.Errorf("check username %q: %w", username, err)
	}
	for _, raw := range docs {
		var u model.User
		if err := json.Unmarshal(raw, &u); err != nil {
			continue
		}
		if u.TelegramID != selfID {
			return true, nil
		}
	}
	return false, nil
}

// TopByReputation returns active users ordered by reputation descending.
func (r *UserRepository) TopByReputation(ctx context.Context, limit int) ([]model.User, error) {
	docs, err := r.store.Query(ctx, collectionUsers, store.Query{
		Field:      "is_active",
		Value:      true,
		OrderBy:    "reputation",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("top by reputation: %w", err)
	}
	return decodeUsers(docs)
}

// Count returns the total number of user profiles.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx, collectionUsers)
}

func decodeUsers(docs []json.RawMessage) ([]model.User, error) {
	users := make([]model.User, 0, len(docs))
	for _, raw := range docs {
		var u model.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}
