package repository

import (
	"context"
	"sort"
	"sync"
	"testing"

	"confessbot/internal/store"
)

func TestCounterRepository_SequentialNumbers(t *testing.T) {
	counters := NewCounterRepository(store.NewMemoryStore())
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := counters.Next(ctx, ConfessionNumberCounter)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Errorf("next = %d, want %d", got, want)
		}
	}
}

func TestCounterRepository_IndependentCounters(t *testing.T) {
	counters := NewCounterRepository(store.NewMemoryStore())
	ctx := context.Background()

	if _, err := counters.Next(ctx, ConfessionNumberCounter); err != nil {
		t.Fatalf("next: %v", err)
	}
	other, err := counters.Next(ctx, "other_counter")
	if err != nil {
		t.Fatalf("next other: %v", err)
	}
	if other != 1 {
		t.Errorf("independent counter starts at %d, want 1", other)
	}
}

// Concurrent submitters must each get a unique, gap-free number.
func TestCounterRepository_ConcurrentUniqueness(t *testing.T) {
	counters := NewCounterRepository(store.NewMemoryStore())
	ctx := context.Background()
	const n = 50

	numbers := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := counters.Next(ctx, ConfessionNumberCounter)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			numbers[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, v := range numbers {
		if v != int64(i+1) {
			t.Fatalf("numbers[%d] = %d, want %d", i, v, i+1)
		}
	}
}
