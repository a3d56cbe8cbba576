package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
)

var errBackend = errors.New("backend down")

// stubSource serves scripted pages per query kind and counts calls.
type stubSource struct {
	mu        sync.Mutex
	own       func(after *app.Cursor, limit int) (app.Page, error)
	following func(authors []string, after *app.Cursor, limit int) (app.Page, error)
	public    func(after *app.Cursor, limit int) (app.Page, error)
	byUser    func(userID string, limit int) (app.Page, error)
	comments  map[string][]domain.Comment
	calls     int
	authors   [][]string
}

func (s *stubSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSource) hit() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *stubSource) OwnMoments(_ context.Context, _ string, after *app.Cursor, limit int) (app.Page, error) {
	s.hit()
	if s.own == nil {
		return app.Page{}, nil
	}
	return s.own(after, limit)
}

func (s *stubSource) FollowingMoments(_ context.Context, authors []string, _ string, after *app.Cursor, limit int) (app.Page, error) {
	s.mu.Lock()
	s.calls++
	s.authors = append(s.authors, append([]string(nil), authors...))
	s.mu.Unlock()
	if s.following == nil {
		return app.Page{}, nil
	}
	return s.following(authors, after, limit)
}

func (s *stubSource) PublicMoments(_ context.Context, after *app.Cursor, limit int) (app.Page, error) {
	s.hit()
	if s.public == nil {
		return app.Page{}, nil
	}
	return s.public(after, limit)
}

func (s *stubSource) MomentsByUser(_ context.Context, userID, _ string, limit int) (app.Page, error) {
	s.hit()
	if s.byUser == nil {
		return app.Page{}, nil
	}
	return s.byUser(userID, limit)
}

func (s *stubSource) Comments(_ context.Context, momentID string) ([]domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Comment(nil), s.comments[momentID]...), nil
}

// scripted returns each page in turn, then empty pages.
func scripted(pages ...[]domain.Moment) func(*app.Cursor, int) (app.Page, error) {
	var mu sync.Mutex
	i := 0
	return func(*app.Cursor, int) (app.Page, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(pages) {
			return app.Page{}, nil
		}
		p := pages[i]
		i++
		return app.Page{Items: p}, nil
	}
}

type stubSink struct {
	mu         sync.Mutex
	err        error
	created    []domain.Moment
	likes      []bool
	deleted    []string
	visibility []domain.Visibility
	comments   []domain.Comment
	patches    []app.MomentPatch
}

func (s *stubSink) CreateMoment(_ context.Context, m domain.Moment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.created = append(s.created, m)
	return "new-id", nil
}

func (s *stubSink) UpdateMoment(_ context.Context, _ string, p app.MomentPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.patches = append(s.patches, p)
	return nil
}

func (s *stubSink) DeleteMoment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubSink) SetLike(_ context.Context, _, _ string, liked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes = append(s.likes, liked)
	return s.err
}

func (s *stubSink) SetVisibility(_ context.Context, _ string, v domain.Visibility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.visibility = append(s.visibility, v)
	return nil
}

func (s *stubSink) AddComment(_ context.Context, _ string, c domain.Comment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.comments = append(s.comments, c)
	return "c1", nil
}

func (s *stubSink) DeleteComment(context.Context, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

type stubIdentity struct {
	mu        sync.Mutex
	user      app.User
	signedIn  bool
	listeners []func(app.User, bool)
}

func signedInAs(id string) *stubIdentity {
	return &stubIdentity{user: app.User{ID: id, DisplayName: "User " + id}, signedIn: true}
}

func (s *stubIdentity) CurrentUser() (app.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.signedIn
}

func (s *stubIdentity) OnAuthChange(fn func(app.User, bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
	return func() {}
}

func (s *stubIdentity) signOut() {
	s.mu.Lock()
	s.user, s.signedIn = app.User{}, false
	ls := append([]func(app.User, bool){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		fn(app.User{}, false)
	}
}

type stubProfiles map[string]domain.UserProfile

func (s stubProfiles) Profile(_ context.Context, id string) (domain.UserProfile, error) {
	p, ok := s[id]
	if !ok {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	return p, nil
}

type stubPlayer struct{ stops int }

func (p *stubPlayer) StopAll() { p.stops++ }

func at(s string) domain.Timestamp { return domain.ParseTimestamp(s) }

func makeMoment(id, author string, created time.Time) domain.Moment {
	return domain.Moment{
		ID:         id,
		Author:     domain.Author{ID: author, Name: "Author " + author},
		Text:       "hello from " + id,
		Visibility: domain.VisibilityPublic,
		CreatedAt:  domain.TimestampOf(created),
	}
}

func ids(items []domain.Moment) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.ID
	}
	return out
}

func equalIDs(got []domain.Moment, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}
