package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/momentlog/momentlog/domain"
)

// Export is the JSON document accepted by Import. Timestamps may be RFC
// 3339 strings, {seconds, nanoseconds} objects or epoch milliseconds.
// Records written before visibility tags existed carry only isPublic.
type Export struct {
	Users    []exportUser    `json:"users"`
	Moments  []exportMoment  `json:"moments"`
	Comments []exportComment `json:"comments"`
}

type exportUser struct {
	ID               string   `json:"id"`
	Username         string   `json:"username"`
	DisplayName      string   `json:"displayName"`
	Avatar           string   `json:"avatar"`
	Bio              string   `json:"bio"`
	Private          bool     `json:"isPrivate"`
	Verified         bool     `json:"verified"`
	EarlyUser        bool     `json:"earlyUser"`
	Following        []string `json:"following"`
	PendingFollowers []string `json:"pendingFollowers"`
}

type exportMoment struct {
	ID               string             `json:"id"`
	UserID           string             `json:"userId"`
	AuthorName       string             `json:"authorName"`
	AuthorAvatar     string             `json:"authorAvatar"`
	Verified         bool               `json:"verified"`
	EarlyUser        bool               `json:"earlyUser"`
	Text             string             `json:"text"`
	Media            []domain.MediaItem `json:"media"`
	Location         string             `json:"location"`
	Venue            string             `json:"venue"`
	Sticker          string             `json:"sticker"`
	Music            string             `json:"music"`
	MusicPreview     string             `json:"musicPreview"`
	VoiceURL         string             `json:"voiceUrl"`
	Theme            string             `json:"theme"`
	Mood             string             `json:"mood"`
	Visibility       string             `json:"visibility"`
	IsPublic         *bool              `json:"isPublic"`
	AuthorPrivate    bool               `json:"authorPrivate"`
	Likes            []string           `json:"likes"`
	CommentsCount    int                `json:"commentsCount"`
	CreatedAt        domain.Timestamp   `json:"createdAt"`
	MomentDate       string             `json:"momentDate"`
	CollectionID     string             `json:"collectionId"`
	VerifiedLocation bool               `json:"verifiedLocation"`
}

type exportComment struct {
	ID           string           `json:"id"`
	MomentID     string           `json:"momentId"`
	UserID       string           `json:"userId"`
	AuthorName   string           `json:"authorName"`
	AuthorAvatar string           `json:"authorAvatar"`
	Text         string           `json:"text"`
	Likes        []string         `json:"likes"`
	CreatedAt    domain.Timestamp `json:"createdAt"`
}

func (e exportMoment) moment() domain.Moment {
	public := true
	if e.IsPublic != nil {
		public = *e.IsPublic
	}
	return domain.Moment{
		ID: e.ID,
		Author: domain.Author{
			ID: e.UserID, Name: e.AuthorName, Avatar: e.AuthorAvatar,
			Verified: e.Verified, EarlyUser: e.EarlyUser,
		},
		Text:             e.Text,
		Media:            e.Media,
		Location:         e.Location,
		Venue:            e.Venue,
		Sticker:          e.Sticker,
		Music:            domain.Music{Display: e.Music, PreviewURL: e.MusicPreview},
		VoiceURL:         e.VoiceURL,
		Theme:            e.Theme,
		Mood:             e.Mood,
		Visibility:       domain.VisibilityFromLegacy(e.Visibility, public),
		AuthorPrivate:    e.AuthorPrivate,
		Likes:            e.Likes,
		CommentsCount:    e.CommentsCount,
		CreatedAt:        e.CreatedAt,
		MomentDate:       e.MomentDate,
		CollectionID:     e.CollectionID,
		VerifiedLocation: e.VerifiedLocation,
	}
}

// ImportStats counts what Import wrote. Records whose id already exists,
// or whose parent is missing, are skipped.
type ImportStats struct {
	Users    int
	Moments  int
	Comments int
	Skipped  int
}

// Import loads an export in one transaction.
func (s *Store) Import(ctx context.Context, r io.Reader) (ImportStats, error) {
	var doc Export
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return ImportStats{}, fmt.Errorf("%w: decode export: %v", domain.ErrValidation, err)
	}

	var st ImportStats
	err := s.withTx(ctx, func(tx dbtx) error {
		for _, u := range doc.Users {
			ok, err := s.importUser(ctx, tx, u)
			if err != nil {
				return err
			}
			st.count(ok, &st.Users)
		}
		for _, u := range doc.Users {
			if err := s.importEdges(ctx, tx, u); err != nil {
				return err
			}
		}
		for _, m := range doc.Moments {
			ok, err := importMoment(ctx, tx, m)
			if err != nil {
				return err
			}
			st.count(ok, &st.Moments)
		}
		for _, c := range doc.Comments {
			ok, err := s.importComment(ctx, tx, c)
			if err != nil {
				return err
			}
			st.count(ok, &st.Comments)
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	s.log.Info().Int("users", st.Users).Int("moments", st.Moments).Int("comments", st.Comments).
		Int("skipped", st.Skipped).Msg("import finished")
	return st, nil
}

func (st *ImportStats) count(written bool, n *int) {
	if written {
		*n++
	} else {
		st.Skipped++
	}
}

func exists(ctx context.Context, tx dbtx, query string, args ...any) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) importUser(ctx context.Context, tx dbtx, u exportUser) (bool, error) {
	if u.ID == "" || u.Username == "" {
		return false, nil
	}
	found, err := exists(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, u.ID)
	if err != nil || found {
		return false, err
	}
	p := domain.UserProfile{
		ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, Avatar: u.Avatar, Bio: u.Bio,
		Private: u.Private, Verified: u.Verified, EarlyUser: u.EarlyUser,
	}
	if err := insertUser(ctx, tx, p, s.nowMillis()); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) importEdges(ctx context.Context, tx dbtx, u exportUser) error {
	now := s.nowMillis()
	for _, target := range u.Following {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO follows (follower_id, target_id, created_at)
			SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE id = ?) AND EXISTS (SELECT 1 FROM users WHERE id = ?)`,
			u.ID, target, now, u.ID, target); err != nil {
			return fmt.Errorf("import follow: %w", err)
		}
	}
	for _, requester := range u.PendingFollowers {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO follow_requests (requester_id, target_id, created_at)
			SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE id = ?) AND EXISTS (SELECT 1 FROM users WHERE id = ?)`,
			requester, u.ID, now, requester, u.ID); err != nil {
			return fmt.Errorf("import follow request: %w", err)
		}
	}
	return nil
}

func importMoment(ctx context.Context, tx dbtx, e exportMoment) (bool, error) {
	if e.ID == "" || e.UserID == "" {
		return false, nil
	}
	found, err := exists(ctx, tx, `SELECT 1 FROM moments WHERE id = ?`, e.ID)
	if err != nil || found {
		return false, err
	}
	return true, insertMoment(ctx, tx, e.moment())
}

func (s *Store) importComment(ctx context.Context, tx dbtx, c exportComment) (bool, error) {
	if c.ID == "" || c.MomentID == "" {
		return false, nil
	}
	found, err := exists(ctx, tx, `SELECT 1 FROM comments WHERE id = ?`, c.ID)
	if err != nil || found {
		return false, err
	}
	parent, err := exists(ctx, tx, `SELECT 1 FROM moments WHERE id = ?`, c.MomentID)
	if err != nil || !parent {
		return false, err
	}
	created := c.CreatedAt.Millis()
	if !c.CreatedAt.Valid() {
		created = s.nowMillis()
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO comments
		(id, moment_id, author_id, author_name, author_avatar, text, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.MomentID, c.UserID, c.AuthorName, c.AuthorAvatar, c.Text, created); err != nil {
		return false, fmt.Errorf("import comment: %w", err)
	}
	for _, uid := range c.Likes {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO comment_likes (comment_id, user_id) VALUES (?, ?)`, c.ID, uid); err != nil {
			return false, fmt.Errorf("import comment like: %w", err)
		}
	}
	return true, nil
}
