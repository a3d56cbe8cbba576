package feed

import (
	"context"

	"github.com/momentlog/momentlog/app"
)

// Pager fetches one page of a view starting after the given cursor.
type Pager interface {
	FetchPage(ctx context.Context, after *app.Cursor, limit int) (app.Page, error)
}

// PagerFunc adapts a function to Pager.
type PagerFunc func(ctx context.Context, after *app.Cursor, limit int) (app.Page, error)

func (f PagerFunc) FetchPage(ctx context.Context, after *app.Cursor, limit int) (app.Page, error) {
	return f(ctx, after, limit)
}

// OwnPager pages through the viewer's own moments.
func OwnPager(src app.QuerySource, viewerID string) Pager {
	return PagerFunc(func(ctx context.Context, after *app.Cursor, limit int) (app.Page, error) {
		return src.OwnMoments(ctx, viewerID, after, limit)
	})
}

// PublicPager pages through explore.
func PublicPager(src app.QuerySource) Pager {
	return PagerFunc(func(ctx context.Context, after *app.Cursor, limit int) (app.Page, error) {
		return src.PublicMoments(ctx, after, limit)
	})
}

// profileLimit bounds the single profile page regardless of the feed page size.
const profileLimit = 50

// ProfilePager returns a single page of a user's moments and then reports
// the end. The profile query is not cursor based.
func ProfilePager(src app.QuerySource, userID, viewerID string) Pager {
	return PagerFunc(func(ctx context.Context, after *app.Cursor, _ int) (app.Page, error) {
		if after != nil {
			return app.Page{}, nil
		}
		return src.MomentsByUser(ctx, userID, viewerID, profileLimit)
	})
}
