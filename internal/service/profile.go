package service

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"confessbot/internal/model"
	"confessbot/internal/repository"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ProfileService manages user profiles: lazy creation, display names,
// bios, soft-blocking and the daily check-in streak.
type ProfileService struct {
	users  *repository.UserRepository
	admins map[int64]bool
	now    func() time.Time
}

func NewProfileService(users *repository.UserRepository, adminIDs []int64) *ProfileService {
	return &ProfileService{
		users:  users,
		admins: adminSet(adminIDs),
		now:    time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	s.now = now
	return s
}

// IsAdmin reports whether the user is in the configured admin pool.
func (s *ProfileService) IsAdmin(userID int64) bool {
	return s.admins[userID]
}

// GetOrCreate returns the profile, creating it on first contact.
func (s *ProfileService) GetOrCreate(ctx context.Context, userID int64, firstName string) (*model.User, error) {
	return s.users.GetOrCreate(ctx, userID, firstName)
}

// Get returns an existing profile.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.Get(ctx, userID)
}

// SetUsername validates and saves a display name. Returns
// model.ErrInvalidUsername for format violations and
// model.ErrUsernameTaken when another user holds the name.
func (s *ProfileService) SetUsername(ctx context.Context, userID int64, raw string) error {
	name := strings.TrimSpace(raw)
	if len(name) < model.MinUsernameLen || len(name) > model.MaxUsernameLen || !usernamePattern.MatchString(name) {
		return model.ErrInvalidUsername
	}
	if !strings.EqualFold(name, model.AnonymousName) {
		taken, err := s.users.UsernameTaken(ctx, name, userID)
		if err != nil {
			return err
		}
		if taken {
			return model.ErrUsernameTaken
		}
	}
	if err := s.users.Update(ctx, userID, map[string]any{"username": name}); err != nil {
		return err
	}
	log.Printf("[ProfileService] User %d set username=%s", userID, name)
	return nil
}

// SetBio saves a bio, capped at MaxBioLength characters.
func (s *ProfileService) SetBio(ctx context.Context, userID int64, raw string) error {
	bio := strings.TrimSpace(raw)
	if utf8.RuneCountInString(bio) > model.MaxBioLength {
		return model.ErrBioTooLong
	}
	return s.users.Update(ctx, userID, map[string]any{"bio": bio})
}

// SetNotification toggles a notification preference for the user.
func (s *ProfileService) SetNotification(ctx context.Context, userID int64, kind string, enabled bool) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	prefs := user.Notifications
	if prefs == nil {
		prefs = map[string]bool{}
	}
	prefs[kind] = enabled
	return s.users.Update(ctx, userID, map[string]any{"notifications": prefs})
}

// CheckIn records the daily check-in: once per calendar day, streak
// continues only on consecutive days, and awards the check-in bonus.
// Returns the new streak length.
func (s *ProfileService) CheckIn(ctx context.Context, userID int64) (int, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	today := now.Format("2006-01-02")
	if user.LastCheckin != nil && user.LastCheckin.UTC().Format("2006-01-02") == today {
		return user.DailyStreak, model.ErrAlreadyCheckedIn
	}

	streak := 1
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	if user.LastCheckin != nil && user.LastCheckin.UTC().Format("2006-01-02") == yesterday {
		streak = user.DailyStreak + 1
	}

	err = s.users.Update(ctx, userID, map[string]any{
		"daily_streak": streak,
		"last_checkin": now,
	})
	if err != nil {
		return 0, err
	}
	if err := s.users.IncrementReputation(ctx, userID, model.ReputationCheckinBonus); err != nil {
		log.Printf("[ProfileService] Check-in reputation bump failed user=%d err=%v", userID, err)
	}

	log.Printf("[ProfileService] User %d checked in, streak=%d", userID, streak)
	return streak, nil
}

// SetBlocked soft-blocks or unblocks a user. Admin capability required.
func (s *ProfileService) SetBlocked(ctx context.Context, adminID, targetID int64, blocked bool) error {
	if !s.IsAdmin(adminID) {
		return model.ErrNotAdmin
	}
	if err := s.users.Update(ctx, targetID, map[string]any{"is_active": !blocked}); err != nil {
		return err
	}
	log.Printf("[ProfileService] Admin %d set blocked=%v for user %d", adminID, blocked, targetID)
	return nil
}

func adminSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
