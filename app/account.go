package app

import (
	"context"

	"github.com/momentlog/momentlog/domain"
)

// AccountStore persists profiles, username reservations and the follow graph.
// Rules (formats, self-follow, privacy) live in the account package.
type AccountStore interface {
	// Profile returns the profile with follower, following and pending sets.
	Profile(ctx context.Context, userID string) (domain.UserProfile, error)

	// ProfileByUsername resolves a reserved (lower-case) username.
	ProfileByUsername(ctx context.Context, username string) (domain.UserProfile, error)

	// CreateProfile inserts a new profile and reserves its username.
	CreateProfile(ctx context.Context, p domain.UserProfile) (string, error)

	// UpdateProfile stores display name, avatar, bio and privacy.
	UpdateProfile(ctx context.Context, p domain.UserProfile) error

	// ReserveUsername moves the user's reservation to username atomically.
	ReserveUsername(ctx context.Context, userID, username string) error

	// AddFollower records followerID following targetID and notifies target.
	AddFollower(ctx context.Context, followerID, targetID string) error

	// RemoveFollower deletes the edge if present.
	RemoveFollower(ctx context.Context, followerID, targetID string) error

	// AddFollowRequest records a pending request and notifies target.
	AddFollowRequest(ctx context.Context, requesterID, targetID string) error

	// ResolveFollowRequest removes the pending entry and, when approve is
	// set, adds the follower edge in the same transaction.
	ResolveFollowRequest(ctx context.Context, targetID, requesterID string, approve bool) error
}

// NotificationService reads and clears a user's inbox.
type NotificationService interface {
	Notifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	DeleteNotification(ctx context.Context, userID, id string) error
	ClearNotifications(ctx context.Context, userID string) error
}
