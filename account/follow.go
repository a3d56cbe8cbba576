package account

import (
	"context"
	"fmt"
	"slices"

	"github.com/momentlog/momentlog/domain"
)

// FollowState reports how the signed-in user relates to targetID.
func (s *Service) FollowState(ctx context.Context, targetID string) (domain.FollowState, error) {
	uid, err := s.me()
	if err != nil {
		return domain.FollowNone, err
	}
	target, err := s.store.Profile(ctx, targetID)
	if err != nil {
		return domain.FollowNone, err
	}
	return stateOf(target, uid), nil
}

func stateOf(target domain.UserProfile, uid string) domain.FollowState {
	switch {
	case slices.Contains(target.Followers, uid):
		return domain.FollowActive
	case slices.Contains(target.PendingFollowers, uid):
		return domain.FollowRequested
	}
	return domain.FollowNone
}

// Follow follows targetID. Private profiles get a request instead, which
// the owner approves or declines.
func (s *Service) Follow(ctx context.Context, targetID string) (domain.FollowState, error) {
	uid, err := s.me()
	if err != nil {
		return domain.FollowNone, err
	}
	if uid == targetID {
		return domain.FollowNone, domain.ErrSelfFollow
	}
	target, err := s.store.Profile(ctx, targetID)
	if err != nil {
		return domain.FollowNone, fmt.Errorf("load target: %w", err)
	}
	if st := stateOf(target, uid); st != domain.FollowNone {
		return st, nil
	}
	if target.Private {
		if err := s.store.AddFollowRequest(ctx, uid, targetID); err != nil {
			return domain.FollowNone, fmt.Errorf("request follow: %w", err)
		}
		return domain.FollowRequested, nil
	}
	if err := s.store.AddFollower(ctx, uid, targetID); err != nil {
		return domain.FollowNone, fmt.Errorf("follow: %w", err)
	}
	return domain.FollowActive, nil
}

// Unfollow removes the follow edge or withdraws a pending request.
func (s *Service) Unfollow(ctx context.Context, targetID string) error {
	uid, err := s.me()
	if err != nil {
		return err
	}
	target, err := s.store.Profile(ctx, targetID)
	if err != nil {
		return fmt.Errorf("load target: %w", err)
	}
	switch stateOf(target, uid) {
	case domain.FollowActive:
		return s.store.RemoveFollower(ctx, uid, targetID)
	case domain.FollowRequested:
		return s.store.ResolveFollowRequest(ctx, targetID, uid, false)
	}
	return nil
}

// Approve accepts a pending request on the signed-in user's profile.
func (s *Service) Approve(ctx context.Context, requesterID string) error {
	return s.resolve(ctx, requesterID, true)
}

// Decline rejects a pending request on the signed-in user's profile.
func (s *Service) Decline(ctx context.Context, requesterID string) error {
	return s.resolve(ctx, requesterID, false)
}

func (s *Service) resolve(ctx context.Context, requesterID string, approve bool) error {
	uid, err := s.me()
	if err != nil {
		return err
	}
	p, err := s.store.Profile(ctx, uid)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if !slices.Contains(p.PendingFollowers, requesterID) {
		return domain.ErrNotFound
	}
	return s.store.ResolveFollowRequest(ctx, uid, requesterID, approve)
}
