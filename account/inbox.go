package account

import (
	"context"

	"github.com/momentlog/momentlog/domain"
)

// inboxLimit caps how many notifications the inbox shows.
const inboxLimit = 50

// Inbox returns the signed-in user's notifications, newest first.
func (s *Service) Inbox(ctx context.Context) ([]domain.Notification, error) {
	uid, err := s.me()
	if err != nil {
		return nil, err
	}
	return s.notes.Notifications(ctx, uid, inboxLimit)
}

// MarkRead marks one notification as read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	uid, err := s.me()
	if err != nil {
		return err
	}
	return s.notes.MarkNotificationRead(ctx, uid, id)
}

// Dismiss deletes one notification.
func (s *Service) Dismiss(ctx context.Context, id string) error {
	uid, err := s.me()
	if err != nil {
		return err
	}
	return s.notes.DeleteNotification(ctx, uid, id)
}

// ClearInbox deletes every notification of the signed-in user.
func (s *Service) ClearInbox(ctx context.Context) error {
	uid, err := s.me()
	if err != nil {
		return err
	}
	return s.notes.ClearNotifications(ctx, uid)
}

// Unread counts unread entries in items.
func Unread(items []domain.Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}
