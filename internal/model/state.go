package model

// ConversationState tags the multi-step input flow a user is currently
// mid-way through. A user has at most one; setting a new one overwrites
// any pending flow (switching flows silently abandons the old one).
type ConversationState string

const (
	StateAwaitingUsername        ConversationState = "awaiting_username"
	StateAwaitingConfession      ConversationState = "awaiting_confession"
	StateAwaitingComment         ConversationState = "awaiting_comment"
	StateAwaitingBio             ConversationState = "awaiting_bio"
	StateAwaitingRejectionReason ConversationState = "awaiting_rejection_reason"
)

// UserState is the store-backed conversation record. It survives process
// restarts and is shared across stateless webhook handlers.
// ConfessionID scopes comment and rejection flows to a specific target so
// a reply can never be misapplied to the wrong confession.
type UserState struct {
	State        ConversationState `json:"state"`
	ConfessionID string            `json:"confession_id,omitempty"`
	ChatID       int64             `json:"chat_id,omitempty"`
}
