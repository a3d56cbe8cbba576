package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
	core "github.com/momentlog/momentlog/feed"
	"github.com/momentlog/momentlog/tui/common"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// memBackend serves public pages in order and records mutations.
type memBackend struct {
	mu              sync.Mutex
	pages           [][]domain.Moment
	served          int
	comments        map[string][]domain.Comment
	likes           []bool
	deleted         []string
	deletedComments []string
	visibility      []domain.Visibility
	err             error
}

func (b *memBackend) OwnMoments(context.Context, string, *app.Cursor, int) (app.Page, error) {
	return app.Page{}, nil
}

func (b *memBackend) FollowingMoments(context.Context, []string, string, *app.Cursor, int) (app.Page, error) {
	return app.Page{}, nil
}

func (b *memBackend) PublicMoments(context.Context, *app.Cursor, int) (app.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.served >= len(b.pages) {
		return app.Page{}, nil
	}
	p := b.pages[b.served]
	b.served++
	return app.Page{Items: p, Next: app.CursorAfter(p[len(p)-1])}, nil
}

func (b *memBackend) MomentsByUser(context.Context, string, string, int) (app.Page, error) {
	return app.Page{}, nil
}

func (b *memBackend) Comments(_ context.Context, id string) ([]domain.Comment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Comment(nil), b.comments[id]...), nil
}

func (b *memBackend) CreateMoment(context.Context, domain.Moment) (string, error) {
	return "new", b.err
}

func (b *memBackend) UpdateMoment(context.Context, string, app.MomentPatch) error { return b.err }

func (b *memBackend) DeleteMoment(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.deleted = append(b.deleted, id)
	return nil
}

func (b *memBackend) SetLike(_ context.Context, _, _ string, liked bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.likes = append(b.likes, liked)
	return b.err
}

func (b *memBackend) SetVisibility(_ context.Context, _ string, v domain.Visibility) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.visibility = append(b.visibility, v)
	return nil
}

func (b *memBackend) AddComment(context.Context, string, domain.Comment) (string, error) {
	return "c-new", b.err
}

func (b *memBackend) DeleteComment(_ context.Context, momentID, commentID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.deletedComments = append(b.deletedComments, commentID)
	cs := b.comments[momentID]
	for i, c := range cs {
		if c.ID == commentID {
			b.comments[momentID] = append(cs[:i:i], cs[i+1:]...)
			break
		}
	}
	return nil
}

type stubIdentity struct{ id string }

func (s stubIdentity) CurrentUser() (app.User, bool) { return app.User{ID: s.id}, s.id != "" }
func (stubIdentity) OnAuthChange(func(app.User, bool)) func() { return func() {} }

type stubAccounts struct {
	mu       sync.Mutex
	profiles map[string]domain.UserProfile
	state    domain.FollowState
	follows  []string
}

func (s *stubAccounts) Profile(_ context.Context, uid string) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[uid]
	if !ok {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubAccounts) FollowState(context.Context, string) (domain.FollowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *stubAccounts) Follow(_ context.Context, id string) (domain.FollowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follows = append(s.follows, "+"+id)
	s.state = domain.FollowActive
	return s.state, nil
}

func (s *stubAccounts) Unfollow(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follows = append(s.follows, "-"+id)
	s.state = domain.FollowNone
	return nil
}

type harness struct {
	backend  *memBackend
	accounts *stubAccounts
	agg      *core.Aggregator
	model    Model
}

func newHarness(t *testing.T, viewer string, pages ...[]domain.Moment) *harness {
	t.Helper()
	backend := &memBackend{pages: pages, comments: map[string][]domain.Comment{}}
	accounts := &stubAccounts{profiles: map[string]domain.UserProfile{
		"me":    {ID: "me", DisplayName: "Me"},
		"alice": {ID: "alice", DisplayName: "Alice", Username: "alice"},
	}}
	ident := stubIdentity{id: viewer}
	agg := core.NewAggregator(core.WithPageSize(3))
	sess := core.NewSession(agg, core.SessionConfig{Source: backend, Identity: ident, Profiles: accounts})
	coord := core.NewCoordinator(agg, core.Services{
		Source:   backend,
		Sink:     backend,
		Identity: ident,
		Profiles: accounts,
		Reloader: sess,
		Now:      func() time.Time { return testNow },
	})
	m := New(Deps{
		Session:     sess,
		Aggregator:  agg,
		Coordinator: coord,
		Accounts:    accounts,
		Source:      backend,
		Identity:    ident,
		Now:         func() time.Time { return testNow },
	}, "")
	// A static cursor keeps the search box from scheduling blink timers.
	m.filterInput.Cursor.SetMode(cursor.CursorStatic)
	return &harness{backend: backend, accounts: accounts, agg: agg, model: m}
}

// run executes cmd, flattening batches, and feeds every produced message
// back into the model. Non-model messages are returned.
func (h *harness) run(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		switch msg := msg.(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case common.StatusMsg, ComposeRequestMsg, PrefsChangedMsg:
			out = append(out, msg)
		default:
			var next tea.Cmd
			h.model, next = h.model.Update(msg)
			queue = append(queue, next)
		}
	}
	// Stand-in for the root's change bridge.
	h.model, _ = h.model.Update(ChangedMsg{Change: core.Change{Reason: core.ChangeMutation}})
	return out
}

func (h *harness) press(t *testing.T, keys ...string) []tea.Msg {
	t.Helper()
	var out []tea.Msg
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var cmd tea.Cmd
		h.model, cmd = h.model.Update(msg)
		out = append(out, h.run(t, cmd)...)
	}
	return out
}

func moment(id, author string, minutesAgo int) domain.Moment {
	return domain.Moment{
		ID:         id,
		Author:     domain.Author{ID: author, Name: "Name " + author, Avatar: "🙂"},
		Text:       "moment " + id,
		Visibility: domain.VisibilityPublic,
		CreatedAt:  domain.TimestampOf(testNow.Add(-time.Duration(minutesAgo) * time.Minute)),
	}
}

func ids(items []domain.Moment) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.ID
	}
	return out
}

func mediaAt(url string) domain.MediaItem {
	return domain.MediaItem{Kind: domain.MediaImage, URL: url}
}
