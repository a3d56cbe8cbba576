package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
)

const defaultLimit = 10

const momentColumns = `m.id, m.author_id, m.author_name, m.author_avatar, m.author_verified, m.author_early,
	m.text, m.media, m.location, m.venue, m.sticker, m.music_display, m.music_preview, m.voice_url,
	m.theme, m.mood, m.visibility, m.is_public, m.author_private, m.comments_count,
	m.created_at, m.created_valid, m.moment_date, m.collection_id, m.verified_location,
	COALESCE((SELECT group_concat(l.user_id, ',') FROM moment_likes l WHERE l.moment_id = m.id), '')`

// visibleTo restricts moments to what viewer may see: everything of their
// own, otherwise public moments and friends-only moments of followed
// authors, and nothing of a private profile the viewer does not follow.
const visibleTo = `(m.author_id = ? OR (
	(m.visibility = 'public' OR (m.visibility = 'friends' AND EXISTS (
		SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.target_id = m.author_id)))
	AND (COALESCE((SELECT u.private FROM users u WHERE u.id = m.author_id), 0) = 0 OR EXISTS (
		SELECT 1 FROM follows f WHERE f.follower_id = ? AND f.target_id = m.author_id))
))`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMoment(r rowScanner) (domain.Moment, error) {
	var (
		m                   domain.Moment
		media, vis, likes   string
		isPublic, validTime bool
		created             int64
	)
	err := r.Scan(&m.ID, &m.Author.ID, &m.Author.Name, &m.Author.Avatar, &m.Author.Verified, &m.Author.EarlyUser,
		&m.Text, &media, &m.Location, &m.Venue, &m.Sticker, &m.Music.Display, &m.Music.PreviewURL, &m.VoiceURL,
		&m.Theme, &m.Mood, &vis, &isPublic, &m.AuthorPrivate, &m.CommentsCount,
		&created, &validTime, &m.MomentDate, &m.CollectionID, &m.VerifiedLocation,
		&likes)
	if err != nil {
		return domain.Moment{}, err
	}
	if media != "" && media != "[]" {
		if err := json.Unmarshal([]byte(media), &m.Media); err != nil {
			return domain.Moment{}, fmt.Errorf("decode media of %s: %w", m.ID, err)
		}
	}
	m.Visibility = domain.VisibilityFromLegacy(vis, isPublic)
	if validTime {
		m.CreatedAt = domain.TimestampFromMillis(created)
	}
	m.Likes = splitIDs(likes)
	return m, nil
}

// page runs a newest-first keyset query over moments.
func (s *Store) page(ctx context.Context, where string, args []any, after *app.Cursor, limit int) (app.Page, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	q := "SELECT " + momentColumns + " FROM moments m WHERE " + where
	if after != nil {
		q += " AND (m.created_at < ? OR (m.created_at = ? AND m.id < ?))"
		args = append(args, after.CreatedAt, after.CreatedAt, after.ID)
	}
	q += " ORDER BY m.created_at DESC, m.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return app.Page{}, fmt.Errorf("query moments: %w", err)
	}
	defer rows.Close()

	var items []domain.Moment
	for rows.Next() {
		m, err := scanMoment(rows)
		if err != nil {
			return app.Page{}, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return app.Page{}, err
	}
	if len(items) == 0 {
		return app.Page{}, nil
	}
	return app.Page{Items: items, Next: app.CursorAfter(items[len(items)-1])}, nil
}

// OwnMoments returns every moment userID authored.
func (s *Store) OwnMoments(ctx context.Context, userID string, after *app.Cursor, limit int) (app.Page, error) {
	return s.page(ctx, "m.author_id = ?", []any{userID}, after, limit)
}

// FollowingMoments returns moments of authorIDs that viewerID may see.
func (s *Store) FollowingMoments(ctx context.Context, authorIDs []string, viewerID string, after *app.Cursor, limit int) (app.Page, error) {
	if len(authorIDs) == 0 {
		return app.Page{}, nil
	}
	args := make([]any, 0, len(authorIDs)+3)
	for _, id := range authorIDs {
		args = append(args, id)
	}
	args = append(args, viewerID, viewerID, viewerID)
	where := "m.author_id IN (" + placeholders(len(authorIDs)) + ") AND " + visibleTo
	return s.page(ctx, where, args, after, limit)
}

// PublicMoments returns public moments of authors whose profile was public
// when they posted.
func (s *Store) PublicMoments(ctx context.Context, after *app.Cursor, limit int) (app.Page, error) {
	return s.page(ctx, "m.visibility = 'public' AND m.author_private = 0", nil, after, limit)
}

// MomentsByUser returns userID's moments visible to viewerID.
func (s *Store) MomentsByUser(ctx context.Context, userID, viewerID string, limit int) (app.Page, error) {
	return s.page(ctx, "m.author_id = ? AND "+visibleTo, []any{userID, viewerID, viewerID, viewerID}, nil, limit)
}

// Moment returns one moment by id.
func (s *Store) Moment(ctx context.Context, id string) (domain.Moment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+momentColumns+" FROM moments m WHERE m.id = ?", id)
	m, err := scanMoment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Moment{}, domain.ErrNotFound
	}
	return m, err
}

// CreateMoment stores m, assigning an id when it has none.
func (s *Store) CreateMoment(ctx context.Context, m domain.Moment) (string, error) {
	if m.ID == "" {
		m.ID = newID()
	}
	if err := insertMoment(ctx, s.db, m); err != nil {
		return "", err
	}
	return m.ID, nil
}

func insertMoment(ctx context.Context, db dbtx, m domain.Moment) error {
	media := []byte("[]")
	if len(m.Media) > 0 {
		var err error
		if media, err = json.Marshal(m.Media); err != nil {
			return fmt.Errorf("encode media: %w", err)
		}
	}
	vis := m.Visibility
	if !vis.Valid() {
		vis = domain.VisibilityPublic
	}
	_, err := db.ExecContext(ctx, `INSERT INTO moments (
		id, author_id, author_name, author_avatar, author_verified, author_early,
		text, media, location, venue, sticker, music_display, music_preview, voice_url,
		theme, mood, visibility, is_public, author_private, comments_count,
		created_at, created_valid, moment_date, collection_id, verified_location
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Author.ID, m.Author.Name, m.Author.Avatar, m.Author.Verified, m.Author.EarlyUser,
		m.Text, string(media), m.Location, m.Venue, m.Sticker, m.Music.Display, m.Music.PreviewURL, m.VoiceURL,
		m.Theme, m.Mood, string(vis), vis.IsPublic(), m.AuthorPrivate, max(m.CommentsCount, 0),
		m.CreatedAt.Millis(), m.CreatedAt.Valid(), m.MomentDate, m.CollectionID, m.VerifiedLocation,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("moment %s already exists: %w", m.ID, err)
		}
		return fmt.Errorf("insert moment: %w", err)
	}
	for _, uid := range m.Likes {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO moment_likes (moment_id, user_id) VALUES (?, ?)`, m.ID, uid); err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
	}
	return nil
}

// UpdateMoment applies a partial edit.
func (s *Store) UpdateMoment(ctx context.Context, id string, patch app.MomentPatch) error {
	if patch.Text == nil {
		return nil
	}
	res, err := s.db.ExecContext(ctx, `UPDATE moments SET text = ? WHERE id = ?`, *patch.Text, id)
	return affected(res, err, domain.ErrNotFound)
}

// DeleteMoment removes the moment with its likes, comments and
// notifications.
func (s *Store) DeleteMoment(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx dbtx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM moments WHERE id = ?`, id)
		if err := affected(res, err, domain.ErrNotFound); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM notifications WHERE moment_id = ?`, id)
		return err
	})
}

// SetLike adds or removes userID from the like set. A new like notifies the
// author.
func (s *Store) SetLike(ctx context.Context, id, userID string, liked bool) error {
	return s.withTx(ctx, func(tx dbtx) error {
		author, err := momentAuthor(ctx, tx, id)
		if err != nil {
			return err
		}
		if !liked {
			_, err := tx.ExecContext(ctx, `DELETE FROM moment_likes WHERE moment_id = ? AND user_id = ?`, id, userID)
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO moment_likes (moment_id, user_id) VALUES (?, ?)`, id, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.notify(ctx, tx, author, userID, domain.NotifyLike, id)
	})
}

func momentAuthor(ctx context.Context, db dbtx, id string) (string, error) {
	var author string
	err := db.QueryRowContext(ctx, `SELECT author_id FROM moments WHERE id = ?`, id).Scan(&author)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return author, err
}

// SetVisibility stores the tag and the legacy public flag together.
func (s *Store) SetVisibility(ctx context.Context, id string, v domain.Visibility) error {
	if !v.Valid() {
		return fmt.Errorf("%w: visibility %q", domain.ErrValidation, v)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE moments SET visibility = ?, is_public = ? WHERE id = ?`, string(v), v.IsPublic(), id)
	return affected(res, err, domain.ErrNotFound)
}
