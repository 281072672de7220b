package service

import (
	"context"
	"log"

	"confessbot/internal/model"
	"confessbot/internal/queue"
	"confessbot/internal/repository"
)

// SocialService mutates the follower graph. The relation is a true set:
// follower/following lists are always written symmetrically and a
// duplicate follow is refused rather than appended twice.
type SocialService struct {
	users     *repository.UserRepository
	publisher queue.Publisher
}

func NewSocialService(users *repository.UserRepository, publisher queue.Publisher) *SocialService {
	return &SocialService{users: users, publisher: publisher}
}

// Follow adds userID -> targetID. Self-follows are refused, as are
// duplicates (model.ErrAlreadyFollowing).
func (s *SocialService) Follow(ctx context.Context, userID, targetID int64) error {
	if userID == targetID {
		return model.ErrCannotFollowSelf
	}
	// Both profiles must exist before touching either list.
	if _, err := s.users.Get(ctx, userID); err != nil {
		return err
	}
	if _, err := s.users.Get(ctx, targetID); err != nil {
		return err
	}

	added, err := s.users.AddFollowEdge(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if !added {
		return model.ErrAlreadyFollowing
	}

	if s.publisher != nil {
		event := queue.NewUserFollowedEvent(userID, targetID)
		if _, err := s.publisher.Publish(ctx, queue.StreamNotifications, event); err != nil {
			log.Printf("[SocialService] Publish %s failed: %v", event.Type, err)
		}
	}

	log.Printf("[SocialService] User %d followed %d", userID, targetID)
	return nil
}

// Unfollow removes userID -> targetID symmetrically. Unfollowing a user
// who was never followed is a harmless no-op.
func (s *SocialService) Unfollow(ctx context.Context, userID, targetID int64) error {
	if _, err := s.users.Get(ctx, targetID); err != nil {
		return err
	}
	if err := s.users.RemoveFollowEdge(ctx, userID, targetID); err != nil {
		return err
	}
	log.Printf("[SocialService] User %d unfollowed %d", userID, targetID)
	return nil
}
