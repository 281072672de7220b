package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the notification stream
const (
	EventConfessionSubmitted = "confession_submitted"
	EventConfessionApproved  = "confession_approved"
	EventConfessionRejected  = "confession_rejected"
	EventCommentAdded        = "comment_added"
	EventUserFollowed        = "user_followed"
)

// Stream and consumer group names
const (
	StreamNotifications = "stream:notifications"

	ConsumerGroupNotifications = "notification_workers"
)

// NotificationEvent is the single event shape published to the
// notification stream. Services publish after their store writes commit;
// workers deliver through the chat transport, best-effort.
type NotificationEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix seconds when the event occurred

	// Confession events
	ConfessionID     string `json:"confession_id,omitempty"`
	ConfessionNumber int64  `json:"confession_number,omitempty"`
	AuthorID         int64  `json:"author_id,omitempty"`

	// Who acted: the commenter, the follower, the deciding admin
	ActorID int64 `json:"actor_id,omitempty"`

	// Short text payload: comment preview or rejection reason
	Preview string `json:"preview,omitempty"`
}

// NewConfessionSubmittedEvent announces a fresh pending confession.
// Workers fan it out to every configured admin with moderation actions.
func NewConfessionSubmittedEvent(c ConfessionRef) NotificationEvent {
	return NotificationEvent{
		Type:             EventConfessionSubmitted,
		Timestamp:        time.Now().Unix(),
		ConfessionID:     c.ID,
		ConfessionNumber: c.Number,
		AuthorID:         c.AuthorID,
	}
}

// NewConfessionApprovedEvent announces an approval. Workers publish the
// confession to the channel and notify the author.
func NewConfessionApprovedEvent(c ConfessionRef, adminID int64) NotificationEvent {
	return NotificationEvent{
		Type:             EventConfessionApproved,
		Timestamp:        time.Now().Unix(),
		ConfessionID:     c.ID,
		ConfessionNumber: c.Number,
		AuthorID:         c.AuthorID,
		ActorID:          adminID,
	}
}

// NewConfessionRejectedEvent announces a rejection with its reason.
func NewConfessionRejectedEvent(c ConfessionRef, adminID int64, reason string) NotificationEvent {
	return NotificationEvent{
		Type:             EventConfessionRejected,
		Timestamp:        time.Now().Unix(),
		ConfessionID:     c.ID,
		ConfessionNumber: c.Number,
		AuthorID:         c.AuthorID,
		ActorID:          adminID,
		Preview:          reason,
	}
}

// NewCommentAddedEvent announces a new comment on a confession.
// Workers notify the author unless they commented themselves or turned
// comment notifications off.
func NewCommentAddedEvent(c ConfessionRef, commenterID int64, preview string) NotificationEvent {
	return NotificationEvent{
		Type:             EventCommentAdded,
		Timestamp:        time.Now().Unix(),
		ConfessionID:     c.ID,
		ConfessionNumber: c.Number,
		AuthorID:         c.AuthorID,
		ActorID:          commenterID,
		Preview:          preview,
	}
}

// NewUserFollowedEvent announces a new follower. AuthorID carries the
// followee here.
func NewUserFollowedEvent(followerID, followeeID int64) NotificationEvent {
	return NotificationEvent{
		Type:      EventUserFollowed,
		Timestamp: time.Now().Unix(),
		ActorID:   followerID,
		AuthorID:  followeeID,
	}
}

// ConfessionRef is the slice of a confession an event needs.
type ConfessionRef struct {
	ID       string
	Number   int64
	AuthorID int64
}

// ToMap converts the event for Redis XADD. Streams store field-value
// pairs, so the full event is serialized into a "data" field.
func (e NotificationEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseNotificationEvent parses an event from stream message values.
func ParseNotificationEvent(values map[string]interface{}) (NotificationEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return NotificationEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}
	var event NotificationEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return NotificationEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
