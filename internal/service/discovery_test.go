package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"confessbot/internal/model"
)

func (e *env) discoveryService() *DiscoveryService {
	return NewDiscoveryService(e.confessions, e.threads, e.users, e.leaderboard)
}

// seedCatalog approves a handful of confessions with hashtags and
// varying comment counts.
func seedCatalog(t *testing.T, e *env) []*model.Confession {
	t.Helper()
	ctx := context.Background()
	e.mustUser(ctx, testAuthorID, "Alice")

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc := e.confessionService(testAdminID).WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	texts := []string{
		"exam season again #study #stress",
		"crushing on a classmate #love",
		"skipped lecture to sleep #study",
	}
	var out []*model.Confession
	for _, text := range texts {
		c, err := svc.Submit(ctx, testAuthorID, text)
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if _, err := svc.Approve(ctx, testAdminID, c.ID); err != nil {
			t.Fatalf("Approve() error = %v", err)
		}
		out = append(out, c)
	}
	return out
}

func TestTrending_OrdersByComments(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	seeded := seedCatalog(t, e)
	e.mustUser(ctx, testCommenterID, "Bob")

	comments := e.commentService()
	for i := 0; i < 3; i++ {
		if _, err := comments.Add(ctx, seeded[1].ID, testCommenterID, fmt.Sprintf("hot take %d", i)); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if _, err := comments.Add(ctx, seeded[0].ID, testCommenterID, "quiet reply"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	trending, err := e.discoveryService().Trending(ctx)
	if err != nil {
		t.Fatalf("Trending() error = %v", err)
	}
	if len(trending) != 3 {
		t.Fatalf("len = %d, want 3", len(trending))
	}
	if trending[0].ID != seeded[1].ID {
		t.Errorf("top trending = %s, want most commented %s", trending[0].ID, seeded[1].ID)
	}
}

func TestPopularHashtags(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	seedCatalog(t, e)

	tags, err := e.discoveryService().PopularHashtags(ctx)
	if err != nil {
		t.Fatalf("PopularHashtags() error = %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("len = %d, want 3", len(tags))
	}
	if tags[0].Tag != "#study" || tags[0].Count != 2 {
		t.Errorf("top tag = %+v, want #study x2", tags[0])
	}
	// Ties break alphabetically.
	if tags[1].Tag != "#love" || tags[2].Tag != "#stress" {
		t.Errorf("tie order = %s, %s, want #love, #stress", tags[1].Tag, tags[2].Tag)
	}
}

func TestBestCommenters_UsesLeaderboard(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.mustUser(ctx, testCommenterID, "Bob")
	if err := e.users.Update(ctx, testCommenterID, map[string]any{"username": "bobby"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	e.leaderboard.counts[testCommenterID] = 60

	ranks, err := e.discoveryService().BestCommenters(ctx)
	if err != nil {
		t.Fatalf("BestCommenters() error = %v", err)
	}
	if len(ranks) != 1 {
		t.Fatalf("len = %d, want 1", len(ranks))
	}
	if ranks[0].Username != "bobby" || ranks[0].Count != 60 {
		t.Errorf("rank = %+v, want bobby with 60", ranks[0])
	}
	if ranks[0].Level.Level != 3 {
		t.Errorf("Level = %d, want 3 for 60 comments", ranks[0].Level.Level)
	}
}

func TestBestCommenters_FallsBackToThreadScan(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	seeded := seedCatalog(t, e)
	e.mustUser(ctx, testCommenterID, "Bob")

	if _, err := e.commentService().Add(ctx, seeded[0].ID, testCommenterID, "only comment"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	// Cold cache: the board must be rebuilt from the threads.
	e.leaderboard.counts = map[int64]int64{}

	ranks, err := e.discoveryService().BestCommenters(ctx)
	if err != nil {
		t.Fatalf("BestCommenters() error = %v", err)
	}
	if len(ranks) != 1 || ranks[0].UserID != testCommenterID || ranks[0].Count != 1 {
		t.Errorf("ranks = %+v, want commenter with count 1", ranks)
	}
}

func TestBrowseUsers_FiltersViewerAndNameless(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.mustUser(ctx, 1, "Alice")
	e.mustUser(ctx, 2, "Bob")
	e.mustUser(ctx, 3, "Cara")
	for id, fields := range map[int64]map[string]any{
		1: {"username": "alice_a", "reputation": 30},
		2: {"username": "bob_b", "reputation": 20},
		3: {"reputation": 50}, // still on the placeholder name
	} {
		if err := e.users.Update(ctx, id, fields); err != nil {
			t.Fatalf("Update(%d) error = %v", id, err)
		}
	}

	users, err := e.discoveryService().BrowseUsers(ctx, 1)
	if err != nil {
		t.Fatalf("BrowseUsers() error = %v", err)
	}
	if len(users) != 1 || users[0].TelegramID != 2 {
		t.Errorf("users = %+v, want only user 2", users)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	seeded := seedCatalog(t, e)
	e.mustUser(ctx, testCommenterID, "Bob")
	if _, err := e.commentService().Add(ctx, seeded[0].ID, testCommenterID, "counted comment"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := e.confessionService().Submit(ctx, testAuthorID, "left pending for stats"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	stats, err := e.discoveryService().Stats(ctx, true)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Users != 2 || stats.Confessions != 4 || stats.Comments != 1 {
		t.Errorf("stats = %+v, want 2 users, 4 confessions, 1 comment", stats)
	}
	if stats.PendingConfessions != 1 || stats.ApprovedConfessions != 3 || stats.RejectedConfessions != 0 {
		t.Errorf("breakdown = %+v, want 1 pending, 3 approved, 0 rejected", stats)
	}
}
