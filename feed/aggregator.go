package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
)

// DefaultPageSize is the number of moments requested per page.
const DefaultPageSize = 10

// LoadOutcome reports what LoadNextPage did.
type LoadOutcome int

const (
	// LoadSkipped: a load was already in flight or there is no more data.
	LoadSkipped LoadOutcome = iota
	// LoadAppended: a non-empty page was appended.
	LoadAppended
	// LoadExhausted: the source returned an empty page.
	LoadExhausted
	// LoadFailed: the source failed; the view now reports no more data.
	LoadFailed
	// LoadStale: the view was reset while loading; the result was dropped.
	LoadStale
)

func (o LoadOutcome) String() string {
	switch o {
	case LoadSkipped:
		return "skipped"
	case LoadAppended:
		return "appended"
	case LoadExhausted:
		return "exhausted"
	case LoadFailed:
		return "failed"
	case LoadStale:
		return "stale"
	}
	return "unknown"
}

// ChangeReason says why the caches changed.
type ChangeReason string

const (
	ChangeReset    ChangeReason = "reset"
	ChangePage     ChangeReason = "page"
	ChangeEnd      ChangeReason = "end"
	ChangeMutation ChangeReason = "mutation"
	ChangeMine     ChangeReason = "mine"
)

// Change is emitted after every cache mutation so a renderer can redraw
// and rebind per-item behavior.
type Change struct {
	View       View
	Generation uint64
	Reason     ChangeReason
}

type subscriber struct {
	id int
	fn func(Change)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// WithLogger sets the logger used for degraded loads.
func WithLogger(l *zerolog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = *l
		}
	}
}

// Aggregator owns the local feed cache of the active view and the "my own
// moments" cache. It is safe for concurrent use; the mutex is never held
// across a source call.
type Aggregator struct {
	pageSize int
	log      zerolog.Logger

	mu      sync.Mutex
	view    View
	pager   Pager
	items   []domain.Moment // append order, may hold several copies of an id
	mine    []domain.Moment
	cursor  *app.Cursor
	hasMore bool
	loading bool
	gen     uint64

	subs    []subscriber
	nextSub int
}

// NewAggregator returns an empty aggregator on the following view with no
// pager attached.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		pageSize: DefaultPageSize,
		log:      zerolog.Nop(),
		view:     ViewFollowing,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ResetForView discards the feed cache, cursor, more-data flag and any held
// load guard, and starts a new generation for view. A nil pager marks a view
// without a feed. Loads still running for an older generation are dropped
// when they return.
func (a *Aggregator) ResetForView(view View, pager Pager) uint64 {
	a.mu.Lock()
	a.gen++
	a.view = view
	a.pager = pager
	a.items = nil
	a.cursor = nil
	a.hasMore = pager != nil
	a.loading = false
	ch := Change{View: view, Generation: a.gen, Reason: ChangeReset}
	a.mu.Unlock()

	a.emit(ch)
	return ch.Generation
}

// LoadNextPage fetches and appends the next page of the active view.
// It never returns an error: failures are logged and end pagination.
func (a *Aggregator) LoadNextPage(ctx context.Context) LoadOutcome {
	a.mu.Lock()
	if a.loading || !a.hasMore || a.pager == nil {
		a.mu.Unlock()
		return LoadSkipped
	}
	a.loading = true
	gen, view, pager, after := a.gen, a.view, a.pager, a.cursor
	a.mu.Unlock()

	page, err := a.fetch(ctx, pager, after)

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		a.log.Debug().Stringer("view", view).Uint64("generation", gen).Msg("dropping stale page")
		return LoadStale
	}
	a.loading = false

	var outcome LoadOutcome
	reason := ChangeEnd
	switch {
	case err != nil:
		a.hasMore = false
		outcome = LoadFailed
	case len(page.Items) == 0:
		a.hasMore = false
		outcome = LoadExhausted
	default:
		a.items = append(a.items, page.Items...)
		if page.Next != nil {
			a.cursor = page.Next
		} else {
			a.cursor = app.CursorAfter(page.Items[len(page.Items)-1])
		}
		outcome = LoadAppended
		reason = ChangePage
	}
	ch := Change{View: view, Generation: gen, Reason: reason}
	a.mu.Unlock()

	if err != nil {
		a.log.Warn().Err(err).Stringer("view", view).Msg("page load failed; treating as end of feed")
	}
	a.emit(ch)
	return outcome
}

func (a *Aggregator) fetch(ctx context.Context, pager Pager, after *app.Cursor) (page app.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page fetch panicked: %v", r)
		}
	}()
	return pager.FetchPage(ctx, after, a.pageSize)
}

// Materialize returns the deduplicated, newest-first projection of the feed
// cache, filtered by the search query.
func (a *Aggregator) Materialize(query string) []domain.Moment {
	a.mu.Lock()
	items := make([]domain.Moment, len(a.items))
	copy(items, a.items)
	a.mu.Unlock()

	items = dedupeLatest(items)
	sortNewestFirst(items)
	return ParseFilter(query).Apply(items)
}

// Mine returns the "my own moments" cache, newest first.
func (a *Aggregator) Mine() []domain.Moment {
	a.mu.Lock()
	items := make([]domain.Moment, len(a.mine))
	copy(items, a.mine)
	a.mu.Unlock()

	items = dedupeLatest(items)
	sortNewestFirst(items)
	return items
}

// ReplaceMine swaps in a freshly loaded "my own moments" cache.
func (a *Aggregator) ReplaceMine(items []domain.Moment) {
	a.mu.Lock()
	a.mine = append([]domain.Moment(nil), items...)
	ch := Change{View: a.view, Generation: a.gen, Reason: ChangeMine}
	a.mu.Unlock()

	a.emit(ch)
}

// Apply runs t against both caches as one step. No reader observes one
// cache updated and the other not.
func (a *Aggregator) Apply(t Transition) {
	a.mu.Lock()
	next := t(Snapshot{Feed: a.items, Mine: a.mine})
	a.items, a.mine = next.Feed, next.Mine
	ch := Change{View: a.view, Generation: a.gen, Reason: ChangeMutation}
	a.mu.Unlock()

	a.emit(ch)
}

// Lookup returns the latest cached copy of id from either cache.
func (a *Aggregator) Lookup(id string) (domain.Moment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.items) - 1; i >= 0; i-- {
		if a.items[i].ID == id {
			return a.items[i], true
		}
	}
	for i := len(a.mine) - 1; i >= 0; i-- {
		if a.mine[i].ID == id {
			return a.mine[i], true
		}
	}
	return domain.Moment{}, false
}

// View returns the active view.
func (a *Aggregator) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// HasMore reports whether another page may exist.
func (a *Aggregator) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasMore
}

// Loading reports whether a page load of the current generation is in flight.
func (a *Aggregator) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// Cursor returns a copy of the pagination cursor, nil before the first page.
func (a *Aggregator) Cursor() *app.Cursor {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cursor == nil {
		return nil
	}
	c := *a.cursor
	return &c
}

// Generation returns the current view generation.
func (a *Aggregator) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen
}

// Subscribe registers fn for change events. Events are delivered on the
// goroutine that caused the change, after the lock is released.
func (a *Aggregator) Subscribe(fn func(Change)) (cancel func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs = append(a.subs, subscriber{id: id, fn: fn})
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, s := range a.subs {
			if s.id == id {
				a.subs = append(a.subs[:i:i], a.subs[i+1:]...)
				return
			}
		}
	}
}

func (a *Aggregator) emit(ch Change) {
	a.mu.Lock()
	subs := make([]subscriber, len(a.subs))
	copy(subs, a.subs)
	a.mu.Unlock()

	for _, s := range subs {
		s.fn(ch)
	}
}
