package repository

import (
	"context"
	"fmt"

	"confessbot/internal/store"
)

const collectionCounters = "counters"

// ConfessionNumberCounter names the sequence assigning confession numbers.
const ConfessionNumberCounter = "confession_number"

// CounterRepository produces globally unique, strictly increasing
// sequence values. Next relies on the store's atomic increment, so
// concurrent callers never observe or assign the same value twice.
type CounterRepository struct {
	store store.Store
}

func NewCounterRepository(s store.Store) *CounterRepository {
	return &CounterRepository{store: s}
}

// Next returns the next value of the named sequence, starting at 1.
// An error means no value was assigned; callers must abort rather than
// proceed without a number.
func (r *CounterRepository) Next(ctx context.Context, name string) (int64, error) {
	next, err := r.store.Increment(ctx, collectionCounters, name, "value", 1)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return next, nil
}
