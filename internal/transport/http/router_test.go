package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"confessbot/internal/bot"
	"confessbot/internal/cache"
	"confessbot/internal/queue"
	"confessbot/internal/repository"
	"confessbot/internal/service"
	"confessbot/internal/store"
)

type recordingSender struct {
	sent []string
}

func (r *recordingSender) SendText(ctx context.Context, chatID int64, text string) error {
	r.sent = append(r.sent, text)
	return nil
}

func (r *recordingSender) SendWithMarkup(ctx context.Context, chatID int64, text string, markup interface{}) error {
	r.sent = append(r.sent, text)
	return nil
}

func (r *recordingSender) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, queue.NotificationEvent) (string, error) {
	return "1-0", nil
}

type emptyLeaderboard struct{}

func (emptyLeaderboard) RecordComment(context.Context, int64) error      { return nil }
func (emptyLeaderboard) Count(context.Context, int64) (int64, error)     { return 0, nil }
func (emptyLeaderboard) Top(context.Context, int) ([]cache.Entry, error) { return nil, nil }

type allowGuard struct{}

func (allowGuard) CheckCooldown(context.Context, int64, string, time.Duration) (bool, time.Duration, error) {
	return true, 0, nil
}
func (allowGuard) SetCooldown(context.Context, int64, string) error { return nil }
func (allowGuard) CheckCommentRateLimit(context.Context, int64, time.Duration, int) (bool, error) {
	return true, nil
}
func (allowGuard) RecordComment(context.Context, int64) error { return nil }

func newTestRouter(sender *recordingSender) http.Handler {
	s := store.NewMemoryStore()
	users := repository.NewUserRepository(s)
	confessions := repository.NewConfessionRepository(s)
	threads := repository.NewThreadRepository(s)
	counters := repository.NewCounterRepository(s)
	states := repository.NewStateRepository(s)

	confessionSvc := service.NewConfessionService(
		confessions, threads, users, counters, states, allowGuard{}, noopPublisher{}, nil)
	commentSvc := service.NewCommentService(
		threads, confessions, users, allowGuard{}, emptyLeaderboard{}, noopPublisher{})
	profileSvc := service.NewProfileService(users, nil)
	socialSvc := service.NewSocialService(users, noopPublisher{})
	discoverySvc := service.NewDiscoveryService(confessions, threads, users, emptyLeaderboard{})

	botRouter := bot.NewRouter(sender, profileSvc, confessionSvc, commentSvc, socialSvc, discoverySvc, states)
	return NewRouter(RouterConfig{Bot: botRouter, Discovery: discoverySvc})
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestRouter(&recordingSender{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	handler := newTestRouter(&recordingSender{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
		Stats  struct {
			Users int64 `json:"users"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Status != "online" {
		t.Errorf("status = %q, want online", body.Status)
	}
}

func TestWebhook_MalformedPayloadStillAcknowledged(t *testing.T) {
	handler := newTestRouter(&recordingSender{})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 so Telegram does not redeliver", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["acknowledged"] != true {
		t.Errorf("body = %v, want acknowledged", body)
	}
}

func TestWebhook_DispatchesUpdate(t *testing.T) {
	sender := &recordingSender{}
	handler := newTestRouter(sender)

	payload := `{
		"update_id": 1,
		"message": {
			"message_id": 10,
			"from": {"id": 1001, "first_name": "Alice"},
			"chat": {"id": 555},
			"text": "hello"
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sender.sent) == 0 {
		t.Error("update was not dispatched to the bot router")
	}
}
