package service

import (
	"context"
	"errors"
	"testing"

	"confessbot/internal/model"
	"confessbot/internal/queue"
)

func TestFollow_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.mustUser(ctx, 1, "Alice")
	e.mustUser(ctx, 2, "Bob")
	svc := e.socialService()

	if err := svc.Follow(ctx, 1, 2); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	alice, _ := e.users.Get(ctx, 1)
	bob, _ := e.users.Get(ctx, 2)
	if !alice.IsFollowing(2) {
		t.Error("follower's following list missing target")
	}
	if len(bob.Followers) != 1 || bob.Followers[0] != 1 {
		t.Errorf("target Followers = %v, want [1]", bob.Followers)
	}

	if got := e.publisher.byType(queue.EventUserFollowed); len(got) != 1 {
		t.Errorf("followed events = %d, want 1", len(got))
	}

	if err := svc.Unfollow(ctx, 1, 2); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	alice, _ = e.users.Get(ctx, 1)
	bob, _ = e.users.Get(ctx, 2)
	if alice.IsFollowing(2) || len(bob.Followers) != 0 {
		t.Error("edge not removed symmetrically")
	}
}

func TestFollow_Self(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.mustUser(ctx, 1, "Alice")

	if err := e.socialService().Follow(ctx, 1, 1); !errors.Is(err, model.ErrCannotFollowSelf) {
		t.Errorf("Follow(self) error = %v, want ErrCannotFollowSelf", err)
	}
}

func TestFollow_Duplicate(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.mustUser(ctx, 1, "Alice")
	e.mustUser(ctx, 2, "Bob")
	svc := e.socialService()

	if err := svc.Follow(ctx, 1, 2); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if err := svc.Follow(ctx, 1, 2); !errors.Is(err, model.ErrAlreadyFollowing) {
		t.Errorf("duplicate Follow() error = %v, want ErrAlreadyFollowing", err)
	}

	bob, _ := e.users.Get(ctx, 2)
	if len(bob.Followers) != 1 {
		t.Errorf("Followers = %v, want single entry", bob.Followers)
	}
}

func TestFollow_MissingTarget(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.mustUser(ctx, 1, "Alice")

	if err := e.socialService().Follow(ctx, 1, 404); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("Follow() error = %v, want ErrUserNotFound", err)
	}
}

func TestUnfollow_NeverFollowedIsNoop(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.mustUser(ctx, 1, "Alice")
	e.mustUser(ctx, 2, "Bob")

	if err := e.socialService().Unfollow(ctx, 1, 2); err != nil {
		t.Errorf("Unfollow() error = %v, want nil", err)
	}
}
