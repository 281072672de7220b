package repository

import (
	"context"
	"errors"
	"testing"

	"confessbot/internal/model"
	"confessbot/internal/store"
)

func newUserRepo() *UserRepository {
	return NewUserRepository(store.NewMemoryStore())
}

func TestGetOrCreate_DefaultsOnFirstContact(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo()

	u, err := repo.GetOrCreate(ctx, 1, "Alice")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if u.Username != model.AnonymousName {
		t.Errorf("Username = %q, want placeholder", u.Username)
	}
	if !u.IsActive {
		t.Error("new user not active")
	}
	if u.Followers == nil || u.Following == nil {
		t.Error("follow lists not initialized")
	}

	// Second contact returns the stored profile, not a reset one.
	if err := repo.Update(ctx, 1, map[string]any{"username": "alice_a"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	u, err = repo.GetOrCreate(ctx, 1, "SomeoneElse")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if u.Username != "alice_a" {
		t.Errorf("Username = %q, want preserved alice_a", u.Username)
	}
}

func TestGet_Missing(t *testing.T) {
	repo := newUserRepo()
	if _, err := repo.Get(context.Background(), 404); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("Get() error = %v, want ErrUserNotFound", err)
	}
}

func TestAddFollowEdge_SetSemantics(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo()
	if _, err := repo.GetOrCreate(ctx, 1, "Alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetOrCreate(ctx, 2, "Bob"); err != nil {
		t.Fatal(err)
	}

	added, err := repo.AddFollowEdge(ctx, 1, 2)
	if err != nil || !added {
		t.Fatalf("AddFollowEdge() = %v, %v, want true, nil", added, err)
	}
	added, err = repo.AddFollowEdge(ctx, 1, 2)
	if err != nil || added {
		t.Fatalf("duplicate AddFollowEdge() = %v, %v, want false, nil", added, err)
	}

	alice, _ := repo.Get(ctx, 1)
	bob, _ := repo.Get(ctx, 2)
	if len(alice.Following) != 1 || len(bob.Followers) != 1 {
		t.Errorf("edges: following=%v followers=%v, want one each", alice.Following, bob.Followers)
	}
}

func TestAddFollowEdge_MissingFollower(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo()
	if _, err := repo.GetOrCreate(ctx, 2, "Bob"); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.AddFollowEdge(ctx, 404, 2); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("AddFollowEdge() error = %v, want ErrUserNotFound", err)
	}
}

func TestRemoveFollowEdge_AbsentEdgeIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo()
	if _, err := repo.GetOrCreate(ctx, 1, "Alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetOrCreate(ctx, 2, "Bob"); err != nil {
		t.Fatal(err)
	}

	if err := repo.RemoveFollowEdge(ctx, 1, 2); err != nil {
		t.Errorf("RemoveFollowEdge() error = %v, want nil", err)
	}
}

func TestUsernameTaken(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo()
	if _, err := repo.GetOrCreate(ctx, 1, "Alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetOrCreate(ctx, 2, "Bob"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Update(ctx, 1, map[string]any{"username": "night_owl"}); err != nil {
		t.Fatal(err)
	}

	taken, err := repo.UsernameTaken(ctx, "night_owl", 2)
	if err != nil || !taken {
		t.Errorf("UsernameTaken(other) = %v, %v, want true, nil", taken, err)
	}
	taken, err = repo.UsernameTaken(ctx, "night_owl", 1)
	if err != nil || taken {
		t.Errorf("UsernameTaken(self) = %v, %v, want false, nil", taken, err)
	}
	taken, err = repo.UsernameTaken(ctx, "unclaimed", 2)
	if err != nil || taken {
		t.Errorf("UsernameTaken(unclaimed) = %v, %v, want false, nil", taken, err)
	}
}

func TestIncrementReputation(t *testing.T) {
	ctx := context.Background()
	repo := newUserRepo()
	if _, err := repo.GetOrCreate(ctx, 1, "Alice"); err != nil {
		t.Fatal(err)
	}

	if err := repo.IncrementReputation(ctx, 1, 10); err != nil {
		t.Fatalf("IncrementReputation() error = %v", err)
	}
	if err := repo.IncrementReputation(ctx, 1, 5); err != nil {
		t.Fatalf("IncrementReputation() error = %v", err)
	}

	u, _ := repo.Get(ctx, 1)
	if u.Reputation != 15 {
		t.Errorf("Reputation = %d, want 15", u.Reputation)
	}
}
