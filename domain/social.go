package domain

import "slices"

// Comment belongs to exactly one moment and is deleted with it.
type Comment struct {
	ID        string
	MomentID  string
	Author    Author
	Text      string
	Likes     []string
	CreatedAt Timestamp
}

// DefaultAvatar is used when a profile has no avatar set.
const DefaultAvatar = "🙂"

// UserProfile is one account.
type UserProfile struct {
	ID               string
	DisplayName      string
	Username         string
	Avatar           string
	Bio              string
	Private          bool
	Verified         bool
	EarlyUser        bool
	Followers        []string
	Following        []string
	PendingFollowers []string
}

// Tier returns the account class used for text limits and editing.
func (p UserProfile) Tier() Tier {
	if p.EarlyUser {
		return TierEarlyUser
	}
	return TierStandard
}

// AvatarOrDefault returns the avatar, falling back to DefaultAvatar.
func (p UserProfile) AvatarOrDefault() string {
	if p.Avatar == "" {
		return DefaultAvatar
	}
	return p.Avatar
}

// Follows reports whether the profile follows uid.
func (p UserProfile) Follows(uid string) bool { return slices.Contains(p.Following, uid) }

// AsAuthor captures the author snapshot stored on new moments and comments.
func (p UserProfile) AsAuthor() Author {
	name := p.DisplayName
	if name == "" {
		name = p.Username
	}
	return Author{
		ID:        p.ID,
		Name:      name,
		Avatar:    p.AvatarOrDefault(),
		Verified:  p.Verified,
		EarlyUser: p.EarlyUser,
	}
}

// FollowState is the outcome of a follow action.
type FollowState int

const (
	FollowNone FollowState = iota
	FollowRequested
	FollowActive
)

// NotificationType names the action that produced a notification.
type NotificationType string

const (
	NotifyLike          NotificationType = "like"
	NotifyComment       NotificationType = "comment"
	NotifyFollow        NotificationType = "follow"
	NotifyFollowRequest NotificationType = "follow_request"
)

// Notification is an inbox entry for TargetID. Only Read ever changes.
type Notification struct {
	ID        string
	TargetID  string
	Sender    Author
	Type      NotificationType
	MomentID  string
	Read      bool
	CreatedAt Timestamp
}
