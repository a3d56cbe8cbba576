package sqlite

import (
	"context"
	"fmt"

	"github.com/momentlog/momentlog/domain"
)

// notify writes an inbox entry for targetID. Acting on one's own content
// produces none.
func (s *Store) notify(ctx context.Context, tx dbtx, targetID, senderID string, kind domain.NotificationType, momentID string) error {
	if targetID == "" || targetID == senderID {
		return nil
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO notifications
		(id, target_id, sender_id, sender_name, sender_avatar, type, moment_id, read, created_at)
		SELECT ?, ?, ?,
			COALESCE((SELECT CASE WHEN display_name = '' THEN username ELSE display_name END FROM users WHERE id = ?), ?),
			COALESCE((SELECT avatar FROM users WHERE id = ?), ''),
			?, ?, 0, ?`,
		newID(), targetID, senderID, senderID, senderID, senderID, string(kind), momentID, s.nowMillis())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Notifications returns userID's inbox, newest first.
func (s *Store) Notifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, target_id, sender_id, sender_name, sender_avatar, type,
		moment_id, read, created_at FROM notifications WHERE target_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var (
			n       domain.Notification
			kind    string
			created int64
		)
		if err := rows.Scan(&n.ID, &n.TargetID, &n.Sender.ID, &n.Sender.Name, &n.Sender.Avatar, &kind,
			&n.MomentID, &n.Read, &created); err != nil {
			return nil, err
		}
		n.Type = domain.NotificationType(kind)
		n.CreatedAt = domain.TimestampFromMillis(created)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flips the read flag of one of userID's entries.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND target_id = ?`, id, userID)
	return affected(res, err, domain.ErrNotFound)
}

// DeleteNotification removes one of userID's entries.
func (s *Store) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND target_id = ?`, id, userID)
	return affected(res, err, domain.ErrNotFound)
}

// ClearNotifications empties userID's inbox.
func (s *Store) ClearNotifications(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE target_id = ?`, userID)
	return err
}
