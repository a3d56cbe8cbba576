package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/momentlog/momentlog/domain"
)

// Profile returns a profile with its follower, following and pending sets.
func (s *Store) Profile(ctx context.Context, userID string) (domain.UserProfile, error) {
	var p domain.UserProfile
	err := s.db.QueryRowContext(ctx, `SELECT id, username, display_name, avatar, bio, private, verified, early_user
		FROM users WHERE id = ?`, userID).
		Scan(&p.ID, &p.Username, &p.DisplayName, &p.Avatar, &p.Bio, &p.Private, &p.Verified, &p.EarlyUser)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("query profile: %w", err)
	}

	if p.Followers, err = s.ids(ctx, `SELECT follower_id FROM follows WHERE target_id = ? ORDER BY created_at`, p.ID); err != nil {
		return domain.UserProfile{}, err
	}
	if p.Following, err = s.ids(ctx, `SELECT target_id FROM follows WHERE follower_id = ? ORDER BY created_at`, p.ID); err != nil {
		return domain.UserProfile{}, err
	}
	if p.PendingFollowers, err = s.ids(ctx, `SELECT requester_id FROM follow_requests WHERE target_id = ? ORDER BY created_at`, p.ID); err != nil {
		return domain.UserProfile{}, err
	}
	return p, nil
}

func (s *Store) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ProfileByUsername resolves a lower-case username.
func (s *Store) ProfileByUsername(ctx context.Context, username string) (domain.UserProfile, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.UserProfile{}, err
	}
	return s.Profile(ctx, id)
}

// CreateProfile inserts p and reserves its username.
func (s *Store) CreateProfile(ctx context.Context, p domain.UserProfile) (string, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if err := insertUser(ctx, s.db, p, s.nowMillis()); err != nil {
		return "", err
	}
	return p.ID, nil
}

func insertUser(ctx context.Context, db dbtx, p domain.UserProfile, created int64) error {
	_, err := db.ExecContext(ctx, `INSERT INTO users
		(id, username, display_name, avatar, bio, private, verified, early_user, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Username, p.DisplayName, p.Avatar, p.Bio, p.Private, p.Verified, p.EarlyUser, created)
	if isUniqueViolation(err) {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateProfile stores the editable fields.
func (s *Store) UpdateProfile(ctx context.Context, p domain.UserProfile) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET display_name = ?, avatar = ?, bio = ?, private = ?
		WHERE id = ?`, p.DisplayName, p.Avatar, p.Bio, p.Private, p.ID)
	return affected(res, err, domain.ErrNotFound)
}

// ReserveUsername moves userID's reservation to username.
func (s *Store) ReserveUsername(ctx context.Context, userID, username string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET username = ? WHERE id = ?`, username, userID)
	if isUniqueViolation(err) {
		return domain.ErrUsernameTaken
	}
	return affected(res, err, domain.ErrNotFound)
}

// AddFollower records the edge, clears any pending request and notifies
// the target.
func (s *Store) AddFollower(ctx context.Context, followerID, targetID string) error {
	return s.withTx(ctx, func(tx dbtx) error {
		added, err := s.addFollow(ctx, tx, followerID, targetID)
		if err != nil || !added {
			return err
		}
		return s.notify(ctx, tx, targetID, followerID, domain.NotifyFollow, "")
	})
}

func (s *Store) addFollow(ctx context.Context, tx dbtx, followerID, targetID string) (bool, error) {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM follow_requests WHERE requester_id = ? AND target_id = ?`, followerID, targetID); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO follows (follower_id, target_id, created_at)
		VALUES (?, ?, ?)`, followerID, targetID, s.nowMillis())
	if err != nil {
		return false, fmt.Errorf("insert follow: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RemoveFollower deletes the edge if present.
func (s *Store) RemoveFollower(ctx context.Context, followerID, targetID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM follows WHERE follower_id = ? AND target_id = ?`, followerID, targetID)
	return err
}

// AddFollowRequest records a pending request and notifies the target.
func (s *Store) AddFollowRequest(ctx context.Context, requesterID, targetID string) error {
	return s.withTx(ctx, func(tx dbtx) error {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO follow_requests (requester_id, target_id, created_at)
			VALUES (?, ?, ?)`, requesterID, targetID, s.nowMillis())
		if err != nil {
			return fmt.Errorf("insert follow request: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.notify(ctx, tx, targetID, requesterID, domain.NotifyFollowRequest, "")
	})
}

// ResolveFollowRequest drops the pending entry and, on approval, adds the
// follower edge in the same transaction.
func (s *Store) ResolveFollowRequest(ctx context.Context, targetID, requesterID string, approve bool) error {
	return s.withTx(ctx, func(tx dbtx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM follow_requests WHERE requester_id = ? AND target_id = ?`, requesterID, targetID)
		if err := affected(res, err, domain.ErrNotFound); err != nil {
			return err
		}
		if !approve {
			return nil
		}
		_, err = s.addFollow(ctx, tx, requesterID, targetID)
		return err
	})
}
