package model

import (
	"errors"
	"time"
)

// Comment is a single entry in a confession's thread.
// UserName is a display-name snapshot taken at posting time so threads
// render without a user lookup per comment.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	PostedAt  string    `json:"posted_at"` // human-readable snapshot
	CreatedAt time.Time `json:"created_at"`
}

// Thread holds all comments for one confession, plus a denormalized
// snapshot of the confession so the thread renders standalone.
// Invariant: TotalComments always equals len(Comments).
type Thread struct {
	ConfessionID     string    `json:"confession_id"`
	ConfessionNumber int64     `json:"confession_number"`
	ConfessionText   string    `json:"confession_text"`
	Comments         []Comment `json:"comments"`
	TotalComments    int64     `json:"total_comments"`
}

// ThreadPage is one page of a thread, 1-based.
// An out-of-range page yields an empty Comments slice, not an error.
type ThreadPage struct {
	ConfessionID     string
	ConfessionNumber int64
	ConfessionText   string
	Comments         []Comment
	Page             int
	TotalPages       int
	StartIndex       int // 0-based index of the first comment on this page
	Total            int
}

// Comment constraints
const (
	MinCommentLength = 3
	CommentsPerPage  = 3
)

// Thread errors
var (
	ErrThreadNotFound  = errors.New("comment thread not found")
	ErrCommentTooShort = errors.New("comment too short")
	ErrRateLimited     = errors.New("too many comments, slow down")
)
