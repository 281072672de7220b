package model

import (
	"errors"
	"time"
)

// Notification preference keys. All default to enabled for new users.
const (
	NotifyNewFollower   = "new_follower"
	NotifyNewComment    = "new_comment"
	NotifyNewConfession = "new_confession"
)

// User represents a member of the confession community.
// Users are created lazily on first contact and never deleted;
// blocking is a soft flag (IsActive=false).
type User struct {
	TelegramID       int64           `json:"telegram_id"`
	Username         string          `json:"username"` // display name, "Anonymous" until set
	FirstName        string          `json:"first_name,omitempty"`
	Bio              *string         `json:"bio,omitempty"`
	Reputation       int64           `json:"reputation"`
	DailyStreak      int             `json:"daily_streak"`
	LastCheckin      *time.Time      `json:"last_checkin,omitempty"`
	TotalConfessions int64           `json:"total_confessions"`
	Followers        []int64         `json:"followers"`
	Following        []int64         `json:"following"`
	IsActive         bool            `json:"is_active"`
	Notifications    map[string]bool `json:"notifications"`
	JoinedAt         time.Time       `json:"joined_at"`
}

// NotificationsEnabled reports whether the user wants notifications of the
// given kind. Missing keys default to enabled.
func (u *User) NotificationsEnabled(kind string) bool {
	if u.Notifications == nil {
		return true
	}
	enabled, ok := u.Notifications[kind]
	if !ok {
		return true
	}
	return enabled
}

// IsFollowing reports whether the user follows the given target.
func (u *User) IsFollowing(targetID int64) bool {
	for _, id := range u.Following {
		if id == targetID {
			return true
		}
	}
	return false
}

// HasUsername reports whether the user has picked a display name yet.
func (u *User) HasUsername() bool {
	return u.Username != "" && u.Username != AnonymousName
}

// User constraints
const (
	AnonymousName  = "Anonymous"
	MinUsernameLen = 3
	MaxUsernameLen = 20
	MaxBioLength   = 100
)

// Reputation bonuses
const (
	ReputationApproveBonus = 10
	ReputationCommentBonus = 5
	ReputationCheckinBonus = 2
)

// User errors
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserBlocked      = errors.New("user is blocked")
	ErrInvalidUsername  = errors.New("invalid username format")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrBioTooLong       = errors.New("bio too long")
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	ErrNotAdmin         = errors.New("admin capability required")
)
