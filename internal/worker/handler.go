package worker

import (
	"context"
	"fmt"
	"log"

	"confessbot/internal/model"
	"confessbot/internal/queue"
)

// Messenger is the slice of the chat transport the worker needs.
// Delivery is best-effort: errors are logged by the caller and the
// message is acknowledged anyway.
type Messenger interface {
	// SendText sends a plain text message to a chat.
	SendText(ctx context.Context, chatID int64, text string) error

	// SendModerationRequest sends a confession preview with
	// approve/reject actions to an admin.
	SendModerationRequest(ctx context.Context, adminID int64, c *model.Confession) error

	// PostToChannel publishes an approved confession to the public
	// channel with a view-comments action.
	PostToChannel(ctx context.Context, c *model.Confession) error
}

// UserProvider looks up users for notification-preference checks.
type UserProvider interface {
	Get(ctx context.Context, id int64) (*model.User, error)
}

// ConfessionProvider looks up confessions for moderation fan-out and
// channel posts.
type ConfessionProvider interface {
	Get(ctx context.Context, id string) (*model.Confession, error)
}

// Handler delivers notification events read from the queue.
type Handler struct {
	messenger   Messenger
	users       UserProvider
	confessions ConfessionProvider
	admins      []int64
}

// NewHandler creates a notification handler. admins is the immutable
// admin list loaded from configuration at startup.
func NewHandler(messenger Messenger, users UserProvider, confessions ConfessionProvider, admins []int64) *Handler {
	return &Handler{
		messenger:   messenger,
		users:       users,
		confessions: confessions,
		admins:      admins,
	}
}

// HandleEvent routes an event to the matching delivery path.
func (h *Handler) HandleEvent(ctx context.Context, event queue.NotificationEvent) error {
	switch event.Type {
	case queue.EventConfessionSubmitted:
		return h.handleSubmitted(ctx, event)
	case queue.EventConfessionApproved:
		return h.handleApproved(ctx, event)
	case queue.EventConfessionRejected:
		return h.handleRejected(ctx, event)
	case queue.EventCommentAdded:
		return h.handleCommentAdded(ctx, event)
	case queue.EventUserFollowed:
		return h.handleFollowed(ctx, event)
	default:
		log.Printf("[Handler] Unknown event type=%s, skipping", event.Type)
		return nil
	}
}

// handleSubmitted fans a pending confession out to every admin.
// Per-admin failures are logged and do not stop the rest of the fan-out.
func (h *Handler) handleSubmitted(ctx context.Context, event queue.NotificationEvent) error {
	if len(h.admins) == 0 {
		log.Printf("[Handler] No admins configured, confession %s has no reviewers", event.ConfessionID)
		return nil
	}
	c, err := h.confessions.Get(ctx, event.ConfessionID)
	if err != nil {
		return fmt.Errorf("load confession %s: %w", event.ConfessionID, err)
	}
	for _, adminID := range h.admins {
		if err := h.messenger.SendModerationRequest(ctx, adminID, c); err != nil {
			log.Printf("[Handler] Moderation request to admin=%d failed: %v", adminID, err)
		}
	}
	return nil
}

func (h *Handler) handleApproved(ctx context.Context, event queue.NotificationEvent) error {
	c, err := h.confessions.Get(ctx, event.ConfessionID)
	if err != nil {
		return fmt.Errorf("load confession %s: %w", event.ConfessionID, err)
	}
	if err := h.messenger.PostToChannel(ctx, c); err != nil {
		log.Printf("[Handler] Channel post for #%d failed: %v", c.Number, err)
	}
	msg := fmt.Sprintf(
		"🎉 *Your Confession #%d was approved!*\n\nIt has been posted to the channel.\n\n⭐ +%d reputation points",
		c.Number, model.ReputationApproveBonus)
	h.notify(ctx, event.AuthorID, model.NotifyNewConfession, msg)
	return nil
}

func (h *Handler) handleRejected(ctx context.Context, event queue.NotificationEvent) error {
	msg := fmt.Sprintf(
		"❌ *Confession Not Approved*\n\nReason: %s\n\nYou can submit a new one.",
		event.Preview)
	h.notify(ctx, event.AuthorID, model.NotifyNewConfession, msg)
	return nil
}

func (h *Handler) handleCommentAdded(ctx context.Context, event queue.NotificationEvent) error {
	// Authors are not notified about their own comments.
	if event.ActorID == event.AuthorID {
		return nil
	}
	msg := fmt.Sprintf(
		"💬 *New Comment on Your Confession*\n\nConfession #%d has a new comment!\n\n\"%s\"",
		event.ConfessionNumber, event.Preview)
	h.notify(ctx, event.AuthorID, model.NotifyNewComment, msg)
	return nil
}

func (h *Handler) handleFollowed(ctx context.Context, event queue.NotificationEvent) error {
	follower, err := h.users.Get(ctx, event.ActorID)
	name := model.AnonymousName
	if err == nil {
		name = follower.Username
	}
	msg := fmt.Sprintf("🎉 *New Follower!*\n\n%s is now following you!", name)
	h.notify(ctx, event.AuthorID, model.NotifyNewFollower, msg)
	return nil
}

// notify sends a message if the target user's preference for the kind is
// enabled. Lookup and delivery failures are logged and swallowed.
func (h *Handler) notify(ctx context.Context, userID int64, kind, msg string) {
	user, err := h.users.Get(ctx, userID)
	if err != nil {
		log.Printf("[Handler] Notify user=%d lookup failed: %v", userID, err)
		return
	}
	if !user.NotificationsEnabled(kind) {
		return
	}
	if err := h.messenger.SendText(ctx, userID, msg); err != nil {
		log.Printf("[Handler] Notify user=%d kind=%s failed: %v", userID, kind, err)
	}
}
