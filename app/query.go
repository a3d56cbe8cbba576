package app

import (
	"context"

	"github.com/momentlog/momentlog/domain"
)

// Cursor marks the item a page ends on. The next page starts strictly after
// it. Callers outside the store treat it as opaque and pass it back verbatim.
type Cursor struct {
	CreatedAt int64
	ID        string
}

// CursorAfter returns the cursor positioned on m.
func CursorAfter(m domain.Moment) *Cursor {
	return &Cursor{CreatedAt: m.CreatedAt.Millis(), ID: m.ID}
}

// Page is one slice of a view, newest first. An empty Items is the only
// "no more data" signal.
type Page struct {
	Items []domain.Moment
	Next  *Cursor
}

// QuerySource reads moments page by page from the backing store.
type QuerySource interface {
	// OwnMoments returns the user's own moments, every visibility.
	OwnMoments(ctx context.Context, userID string, after *Cursor, limit int) (Page, error)

	// FollowingMoments returns moments by the given authors that viewerID may
	// see. Callers keep authorIDs within the store's "in" filter limit.
	FollowingMoments(ctx context.Context, authorIDs []string, viewerID string, after *Cursor, limit int) (Page, error)

	// PublicMoments returns public moments of public profiles for explore.
	PublicMoments(ctx context.Context, after *Cursor, limit int) (Page, error)

	// MomentsByUser returns a user's moments visible to viewerID.
	MomentsByUser(ctx context.Context, userID, viewerID string, limit int) (Page, error)

	// Comments returns a moment's comments, oldest first.
	Comments(ctx context.Context, momentID string) ([]domain.Comment, error)
}
