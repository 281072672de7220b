package model

import (
	"errors"
	"fmt"
	"time"
)

// ConfessionStatus is the moderation state of a confession.
// pending -> approved and pending -> rejected are the only legal
// transitions; both are terminal.
type ConfessionStatus string

const (
	StatusPending  ConfessionStatus = "pending"
	StatusApproved ConfessionStatus = "approved"
	StatusRejected ConfessionStatus = "rejected"
)

// Confession is a single anonymous text submission.
// ID is opaque (author id + submission time); Number is the human-facing
// sequential number assigned exactly once by the sequence counter.
type Confession struct {
	ID              string           `json:"id"`
	Number          int64            `json:"number"`
	AuthorID        int64            `json:"author_id"`
	Text            string           `json:"text"`
	Status          ConfessionStatus `json:"status"`
	Hashtags        []string         `json:"hashtags,omitempty"`
	TotalComments   int64            `json:"total_comments"`
	Likes           int64            `json:"likes"`
	CreatedAt       time.Time        `json:"created_at"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
}

// Confession constraints
const (
	MinConfessionLength = 5
	MaxConfessionLength = 1000
)

// Confession errors
var (
	ErrConfessionNotFound = errors.New("confession not found")
	ErrTextTooShort       = errors.New("confession text too short")
	ErrTextTooLong        = errors.New("confession text too long")
	ErrAlreadyDecided     = errors.New("confession already decided")
)

// CooldownError reports that a submission arrived inside the cooldown
// window. Remaining is how long the user has to wait.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, wait %s", e.Remaining.Round(time.Second))
}
