package sqlite

import (
	"context"
	"fmt"

	"github.com/momentlog/momentlog/domain"
)

// Comments returns a moment's comments, oldest first.
func (s *Store) Comments(ctx context.Context, momentID string) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.moment_id, c.author_id, c.author_name, c.author_avatar,
		c.text, c.created_at,
		COALESCE((SELECT group_concat(l.user_id, ',') FROM comment_likes l WHERE l.comment_id = c.id), '')
		FROM comments c WHERE c.moment_id = ? ORDER BY c.created_at, c.id`, momentID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var out []domain.Comment
	for rows.Next() {
		var (
			c       domain.Comment
			created int64
			likes   string
		)
		if err := rows.Scan(&c.ID, &c.MomentID, &c.Author.ID, &c.Author.Name, &c.Author.Avatar,
			&c.Text, &created, &likes); err != nil {
			return nil, err
		}
		c.CreatedAt = domain.TimestampFromMillis(created)
		c.Likes = splitIDs(likes)
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddComment stores c under momentID, bumps the counter and notifies the
// author.
func (s *Store) AddComment(ctx context.Context, momentID string, c domain.Comment) (string, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	created := c.CreatedAt.Millis()
	if !c.CreatedAt.Valid() {
		created = s.nowMillis()
	}
	err := s.withTx(ctx, func(tx dbtx) error {
		author, err := momentAuthor(ctx, tx, momentID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO comments
			(id, moment_id, author_id, author_name, author_avatar, text, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID, momentID, c.Author.ID, c.Author.Name, c.Author.Avatar, c.Text, created); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE moments SET comments_count = comments_count + 1 WHERE id = ?`, momentID); err != nil {
			return err
		}
		return s.notify(ctx, tx, author, c.Author.ID, domain.NotifyComment, momentID)
	})
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// DeleteComment removes the comment and decrements the counter, never
// below zero.
func (s *Store) DeleteComment(ctx context.Context, momentID, commentID string) error {
	return s.withTx(ctx, func(tx dbtx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ? AND moment_id = ?`, commentID, momentID)
		if err := affected(res, err, domain.ErrNotFound); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE moments SET comments_count = MAX(comments_count - 1, 0) WHERE id = ?`, momentID)
		return err
	})
}
