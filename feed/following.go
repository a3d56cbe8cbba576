package feed

import (
	"context"
	"sync"

	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
)

// DefaultChunkSize is the store's cardinality limit for an "in" filter.
const DefaultChunkSize = 10

// FollowingPager unions the viewer's own moments with those of every
// followed user. Authors are split into chunks, each chunk is queried in
// parallel, and the results are merged into one page.
type FollowingPager struct {
	Source    app.QuerySource
	ViewerID  string
	Following []string
	ChunkSize int
}

// authorChunks puts the viewer in the first chunk so personal moments show
// up in one's own following feed, even when following nobody.
func (p FollowingPager) authorChunks() [][]string {
	size := p.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	seen := map[string]struct{}{p.ViewerID: {}}
	ids := []string{p.ViewerID}
	for _, id := range p.Following {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// FetchPage runs one query per chunk concurrently. Any failing chunk fails
// the page; the merge is deterministic regardless of completion order.
func (p FollowingPager) FetchPage(ctx context.Context, after *app.Cursor, limit int) (app.Page, error) {
	chunks := p.authorChunks()
	results := make([][]domain.Moment, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	wg.Add(len(chunks))
	for i, chunk := range chunks {
		go func() {
			defer wg.Done()
			page, err := p.Source.FollowingMoments(ctx, chunk, p.ViewerID, after, limit)
			results[i], errs[i] = page.Items, err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return app.Page{}, err
		}
	}

	var merged []domain.Moment
	for _, items := range results {
		merged = append(merged, items...)
	}
	merged = dedupeLatest(merged)
	sortNewestFirst(merged)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	if len(merged) == 0 {
		return app.Page{}, nil
	}
	return app.Page{Items: merged, Next: app.CursorAfter(merged[len(merged)-1])}, nil
}
