package worker

import (
	"context"
	"strings"
	"sync"
	"testing"

	"confessbot/internal/model"
	"confessbot/internal/queue"
	"confessbot/internal/repository"
	"confessbot/internal/store"
)

type delivered struct {
	chatID int64
	text   string
}

type fakeMessenger struct {
	mu         sync.Mutex
	texts      []delivered
	moderation []int64
	channel    []string
}

func (f *fakeMessenger) SendText(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, delivered{chatID: chatID, text: text})
	return nil
}

func (f *fakeMessenger) SendModerationRequest(ctx context.Context, adminID int64, c *model.Confession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moderation = append(f.moderation, adminID)
	return nil
}

func (f *fakeMessenger) PostToChannel(ctx context.Context, c *model.Confession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = append(f.channel, c.ID)
	return nil
}

type fixture struct {
	messenger   *fakeMessenger
	users       *repository.UserRepository
	confessions *repository.ConfessionRepository
	handler     *Handler
}

func newFixture(admins ...int64) *fixture {
	s := store.NewMemoryStore()
	users := repository.NewUserRepository(s)
	confessions := repository.NewConfessionRepository(s)
	messenger := &fakeMessenger{}
	return &fixture{
		messenger:   messenger,
		users:       users,
		confessions: confessions,
		handler:     NewHandler(messenger, users, confessions, admins),
	}
}

func (f *fixture) seedConfession(t *testing.T, authorID int64) *model.Confession {
	t.Helper()
	ctx := context.Background()
	if _, err := f.users.GetOrCreate(ctx, authorID, "Alice"); err != nil {
		t.Fatal(err)
	}
	c := &model.Confession{
		ID:       "confess_seed_1",
		Number:   7,
		AuthorID: authorID,
		Text:     "a confession ready for fan-out",
		Status:   model.StatusPending,
	}
	if err := f.confessions.Create(ctx, c); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestHandleEvent_SubmittedFansOutToAdmins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(100, 200)
	c := f.seedConfession(t, 1)

	err := f.handler.HandleEvent(ctx, queue.NewConfessionSubmittedEvent(queue.ConfessionRef{
		ID: c.ID, Number: c.Number, AuthorID: c.AuthorID,
	}))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if len(f.messenger.moderation) != 2 {
		t.Fatalf("moderation requests = %v, want both admins", f.messenger.moderation)
	}
	if f.messenger.moderation[0] != 100 || f.messenger.moderation[1] != 200 {
		t.Errorf("moderation targets = %v, want [100 200]", f.messenger.moderation)
	}
}

func TestHandleEvent_SubmittedWithoutAdminsIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	c := f.seedConfession(t, 1)

	err := f.handler.HandleEvent(ctx, queue.NewConfessionSubmittedEvent(queue.ConfessionRef{
		ID: c.ID, Number: c.Number, AuthorID: c.AuthorID,
	}))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if len(f.messenger.moderation) != 0 {
		t.Errorf("moderation requests = %v, want none", f.messenger.moderation)
	}
}

func TestHandleEvent_ApprovedPostsAndNotifiesAuthor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(100)
	c := f.seedConfession(t, 1)

	err := f.handler.HandleEvent(ctx, queue.NewConfessionApprovedEvent(queue.ConfessionRef{
		ID: c.ID, Number: c.Number, AuthorID: c.AuthorID,
	}, 100))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if len(f.messenger.channel) != 1 || f.messenger.channel[0] != c.ID {
		t.Errorf("channel posts = %v, want [%s]", f.messenger.channel, c.ID)
	}
	if len(f.messenger.texts) != 1 || f.messenger.texts[0].chatID != 1 {
		t.Fatalf("author notices = %+v, want one to author", f.messenger.texts)
	}
}

func TestHandleEvent_RejectedCarriesReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(100)
	c := f.seedConfession(t, 1)

	err := f.handler.HandleEvent(ctx, queue.NewConfessionRejectedEvent(queue.ConfessionRef{
		ID: c.ID, Number: c.Number, AuthorID: c.AuthorID,
	}, 100, "too identifying"))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if len(f.messenger.texts) != 1 {
		t.Fatalf("notices = %+v, want one", f.messenger.texts)
	}
	if got := f.messenger.texts[0].text; !strings.Contains(got, "too identifying") {
		t.Errorf("notice = %q, want the rejection reason included", got)
	}
}

func TestHandleEvent_CommentSkipsSelf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(100)
	c := f.seedConfession(t, 1)

	err := f.handler.HandleEvent(ctx, queue.NewCommentAddedEvent(queue.ConfessionRef{
		ID: c.ID, Number: c.Number, AuthorID: c.AuthorID,
	}, c.AuthorID, "talking to myself"))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if len(f.messenger.texts) != 0 {
		t.Errorf("notices = %+v, want none for self-comment", f.messenger.texts)
	}
}

func TestHandleEvent_CommentRespectsPreference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(100)
	c := f.seedConfession(t, 1)

	event := queue.NewCommentAddedEvent(queue.ConfessionRef{
		ID: c.ID, Number: c.Number, AuthorID: c.AuthorID,
	}, 2, "someone replied")

	if err := f.handler.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if len(f.messenger.texts) != 1 {
		t.Fatalf("notices = %+v, want one while enabled", f.messenger.texts)
	}

	err := f.users.Update(ctx, c.AuthorID, map[string]any{
		"notifications": map[string]bool{model.NotifyNewComment: false},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.handler.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if len(f.messenger.texts) != 1 {
		t.Errorf("notices = %+v, want no new notice after opting out", f.messenger.texts)
	}
}

func TestHandleEvent_FollowedNamesFollower(t *testing.T) {
	ctx := context.Background()
	f := newFixture(100)
	if _, err := f.users.GetOrCreate(ctx, 1, "Alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.users.GetOrCreate(ctx, 2, "Bob"); err != nil {
		t.Fatal(err)
	}
	if err := f.users.Update(ctx, 2, map[string]any{"username": "bobby"}); err != nil {
		t.Fatal(err)
	}

	if err := f.handler.HandleEvent(ctx, queue.NewUserFollowedEvent(2, 1)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if len(f.messenger.texts) != 1 || f.messenger.texts[0].chatID != 1 {
		t.Fatalf("notices = %+v, want one to the followee", f.messenger.texts)
	}
	if got := f.messenger.texts[0].text; !strings.Contains(got, "bobby") {
		t.Errorf("notice = %q, want follower name included", got)
	}
}

func TestHandleEvent_UnknownTypeIgnored(t *testing.T) {
	f := newFixture(100)
	if err := f.handler.HandleEvent(context.Background(), queue.NotificationEvent{Type: "mystery"}); err != nil {
		t.Errorf("HandleEvent() error = %v, want nil for unknown type", err)
	}
}

