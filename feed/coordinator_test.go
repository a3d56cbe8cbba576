package feed

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type reloadCounter struct{ n int }

func (r *reloadCounter) Reload(context.Context) { r.n++ }

type stubMedia struct {
	kinds []domain.MediaKind
	err   error
}

func (m *stubMedia) Upload(_ context.Context, _ []byte, kind domain.MediaKind) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.kinds = append(m.kinds, kind)
	return "https://media.example/" + string(kind), nil
}

type stubMusic struct{ err error }

func (m stubMusic) Resolve(context.Context, string) (domain.Music, error) {
	if m.err != nil {
		return domain.Music{}, m.err
	}
	return domain.Music{Display: "Song - Artist", PreviewURL: "https://cdn.example/p.mp3"}, nil
}

type fixture struct {
	agg    *Aggregator
	src    *stubSource
	sink   *stubSink
	media  *stubMedia
	reload *reloadCounter
	coord  *Coordinator
}

// newFixture seeds the explore feed and the mine cache with the given items.
func newFixture(t *testing.T, profile domain.UserProfile, feed ...domain.Moment) *fixture {
	t.Helper()
	f := &fixture{
		agg:    NewAggregator(),
		src:    &stubSource{public: scripted(feed)},
		sink:   &stubSink{},
		media:  &stubMedia{},
		reload: &reloadCounter{},
	}
	f.agg.ResetForView(ViewExplore, PublicPager(f.src))
	f.agg.LoadNextPage(context.Background())

	var mine []domain.Moment
	for _, m := range feed {
		if m.OwnedBy(profile.ID) {
			mine = append(mine, m)
		}
	}
	f.agg.ReplaceMine(mine)

	f.coord = NewCoordinator(f.agg, Services{
		Source:   f.src,
		Sink:     f.sink,
		Media:    f.media,
		Music:    stubMusic{},
		Identity: signedInAs(profile.ID),
		Profiles: stubProfiles{profile.ID: profile},
		Reloader: f.reload,
		Now:      func() time.Time { return now },
	})
	return f
}

func TestToggleLike_OptimisticAndPersisted(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"}, makeMoment("a", "other", now))

	if liked := f.coord.ToggleLike(context.Background(), "a"); !liked {
		t.Fatalf("expected liked after toggle")
	}
	m, _ := f.agg.Lookup("a")
	if !m.LikedBy("me") {
		t.Fatalf("expected like in cache")
	}
	if len(f.sink.likes) != 1 || !f.sink.likes[0] {
		t.Fatalf("expected one SetLike(true) call, got %v", f.sink.likes)
	}
}

func TestToggleLike_RollbackRestoresExactPriorState(t *testing.T) {
	orig := makeMoment("a", "me", now)
	orig.Likes = []string{"me", "x", "y"}
	f := newFixture(t, domain.UserProfile{ID: "me"}, orig)
	f.sink.err = errBackend

	if liked := f.coord.ToggleLike(context.Background(), "a"); !liked {
		t.Fatalf("expected the prior liked state to be reported after rollback")
	}
	feedCopy := f.agg.Materialize("")[0]
	if !slices.Equal(feedCopy.Likes, orig.Likes) {
		t.Fatalf("expected feed likes %v, got %v", orig.Likes, feedCopy.Likes)
	}
	mineCopy := f.agg.Mine()[0]
	if !slices.Equal(mineCopy.Likes, orig.Likes) {
		t.Fatalf("expected mine likes %v, got %v", orig.Likes, mineCopy.Likes)
	}
}

func TestToggleLike_RollbackRestoresEachCacheSeparately(t *testing.T) {
	orig := makeMoment("a", "me", now)
	orig.Likes = []string{"x"}
	f := newFixture(t, domain.UserProfile{ID: "me"}, orig)
	stale := orig
	stale.Likes = []string{"y", "x"}
	f.agg.ReplaceMine([]domain.Moment{stale})
	f.sink.err = errBackend

	f.coord.ToggleLike(context.Background(), "a")

	if got := f.agg.Materialize("")[0].Likes; !slices.Equal(got, []string{"x"}) {
		t.Fatalf("feed likes = %v", got)
	}
	if got := f.agg.Mine()[0].Likes; !slices.Equal(got, []string{"y", "x"}) {
		t.Fatalf("mine likes = %v", got)
	}
}

func TestToggleLike_SignedOutOrUnknownIsNoop(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"}, makeMoment("a", "other", now))
	if f.coord.ToggleLike(context.Background(), "missing") {
		t.Fatalf("expected false for unknown moment")
	}
	f.coord.svc.Identity = &stubIdentity{}
	if f.coord.ToggleLike(context.Background(), "a") {
		t.Fatalf("expected false when signed out")
	}
	if len(f.sink.likes) != 0 {
		t.Fatalf("expected no backend calls, got %v", f.sink.likes)
	}
}

func TestDelete_RemovesFromBothCaches(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"},
		makeMoment("a", "me", now), makeMoment("b", "other", now.Add(-time.Hour)))

	if err := f.coord.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.agg.Materialize(""); !equalIDs(got, "b") {
		t.Fatalf("expected feed [b], got %v", ids(got))
	}
	if got := f.agg.Mine(); len(got) != 0 {
		t.Fatalf("expected empty mine cache, got %v", ids(got))
	}
}

func TestDelete_RejectsNonOwnerAndKeepsCachesOnFailure(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"},
		makeMoment("a", "me", now), makeMoment("b", "other", now))

	if err := f.coord.Delete(context.Background(), "b"); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	f.sink.err = errBackend
	if err := f.coord.Delete(context.Background(), "a"); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if len(f.agg.Materialize("")) != 2 || len(f.agg.Mine()) != 1 {
		t.Fatalf("expected caches unchanged after failed delete")
	}
}

func TestToggleVisibility_ThreeTogglesReturnToStart(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"}, makeMoment("a", "me", now))
	f.agg.ResetForView(ViewMyMoments, OwnPager(f.src, "me"))
	f.agg.Apply(func(s Snapshot) Snapshot {
		s.Feed = []domain.Moment{makeMoment("a", "me", now)}
		return s
	})

	want := []domain.Visibility{domain.VisibilityFriends, domain.VisibilityPrivate, domain.VisibilityPublic}
	for i, w := range want {
		got, err := f.coord.ToggleVisibility(context.Background(), "a")
		if err != nil {
			t.Fatalf("toggle %d: unexpected error: %v", i+1, err)
		}
		if got != w {
			t.Fatalf("toggle %d: expected %s, got %s", i+1, w, got)
		}
	}
	m, _ := f.agg.Lookup("a")
	if m.Visibility != domain.VisibilityPublic {
		t.Fatalf("expected public after three toggles, got %s", m.Visibility)
	}
}

func TestToggleVisibility_DropsFromExplore(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"}, makeMoment("a", "me", now))

	got, err := f.coord.ToggleVisibility(context.Background(), "a")
	if err != nil || got != domain.VisibilityFriends {
		t.Fatalf("expected friends, got %s, %v", got, err)
	}
	if len(f.agg.Materialize("")) != 0 {
		t.Fatalf("expected moment to leave explore once not public")
	}
	if mine := f.agg.Mine(); len(mine) != 1 || mine[0].Visibility != domain.VisibilityFriends {
		t.Fatalf("expected mine cache updated, got %+v", mine)
	}
}

func TestToggleVisibility_BackendFailureLeavesCaches(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"}, makeMoment("a", "me", now))
	f.sink.err = errBackend

	got, err := f.coord.ToggleVisibility(context.Background(), "a")
	if !errors.Is(err, errBackend) || got != domain.VisibilityPublic {
		t.Fatalf("expected backend error and unchanged visibility, got %s, %v", got, err)
	}
	if len(f.agg.Materialize("")) != 1 {
		t.Fatalf("expected moment to stay in feed")
	}
}

func TestComments_AdjustCounterNeverBelowZero(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"}, makeMoment("a", "me", now))
	ctx := context.Background()

	if _, err := f.coord.AddComment(ctx, "a", "  nice  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m, _ := f.agg.Lookup("a"); m.CommentsCount != 1 {
		t.Fatalf("expected count 1, got %d", m.CommentsCount)
	}
	if f.sink.comments[0].Text != "nice" || f.sink.comments[0].Author.ID != "me" {
		t.Fatalf("unexpected stored comment: %+v", f.sink.comments[0])
	}
	f.src.comments = map[string][]domain.Comment{"a": {f.sink.comments[0]}}
	f.src.comments["a"][0].ID = "c1"
	for range 2 {
		if err := f.coord.DeleteComment(ctx, "a", "c1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if m, _ := f.agg.Lookup("a"); m.CommentsCount != 0 {
		t.Fatalf("expected count floored at 0, got %d", m.CommentsCount)
	}
	if mine := f.agg.Mine(); mine[0].CommentsCount != 0 {
		t.Fatalf("expected mine count 0, got %d", mine[0].CommentsCount)
	}
}

func TestDeleteComment_AuthorOrMomentOwnerOnly(t *testing.T) {
	comment := func(id, author string) domain.Comment {
		return domain.Comment{ID: id, MomentID: "a", Author: domain.Author{ID: author}, Text: "hi"}
	}
	cases := []struct {
		name    string
		viewer  string
		comment string
		want    error
	}{
		{name: "stranger", viewer: "mallory", comment: "by-bob", want: domain.ErrNotOwner},
		{name: "comment author", viewer: "bob", comment: "by-bob"},
		{name: "moment owner", viewer: "alice", comment: "by-bob"},
		{name: "missing comment", viewer: "alice", comment: "gone", want: domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orig := makeMoment("a", "alice", now)
			orig.CommentsCount = 1
			f := newFixture(t, domain.UserProfile{ID: tc.viewer}, orig)
			f.src.comments = map[string][]domain.Comment{"a": {comment("by-bob", "bob")}}

			err := f.coord.DeleteComment(context.Background(), "a", tc.comment)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			wantCount := 1
			if tc.want == nil {
				wantCount = 0
			}
			if m, _ := f.agg.Lookup("a"); m.CommentsCount != wantCount {
				t.Fatalf("expected count %d, got %d", wantCount, m.CommentsCount)
			}
		})
	}
}

func TestAddComment_RejectsBlankBeforeBackend(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"}, makeMoment("a", "me", now))
	if _, err := f.coord.AddComment(context.Background(), "a", "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(f.sink.comments) != 0 {
		t.Fatalf("expected no backend call")
	}
}

func TestCreate_ValidatesBeforeAnyNetworkCall(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"})
	ctx := context.Background()

	cases := []struct {
		name  string
		draft domain.Draft
		want  error
	}{
		{"empty", domain.Draft{Text: "   "}, domain.ErrEmptyMoment},
		{"too long", domain.Draft{Text: strings.Repeat("x", 501)}, domain.ErrTextTooLong},
		{"bad visibility", domain.Draft{Text: "hi", Visibility: "secret"}, domain.ErrValidation},
		{"too many media", domain.Draft{Media: make([]domain.MediaItem, 11)}, domain.ErrValidation},
	}
	for _, tc := range cases {
		if _, err := f.coord.Create(ctx, tc.draft); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if len(f.sink.created) != 0 || len(f.media.kinds) != 0 {
		t.Fatalf("expected no backend calls for rejected drafts")
	}
}

func TestCreate_EarlyUserHasLongerLimit(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me", EarlyUser: true})
	if _, err := f.coord.Create(context.Background(), domain.Draft{Text: strings.Repeat("x", 1500)}); err != nil {
		t.Fatalf("expected early user to post 1500 runes, got %v", err)
	}
}

func TestCreate_UploadsResolvesAndReloads(t *testing.T) {
	profile := domain.UserProfile{ID: "me", DisplayName: "Me", Private: true}
	f := newFixture(t, profile)
	f.src.own = scripted([]domain.Moment{makeMoment("new-id", "me", now)})

	id, err := f.coord.Create(context.Background(), domain.Draft{
		Text:      " hello ",
		Media:     []domain.MediaItem{{Kind: domain.MediaImage, Data: []byte{0x89, 'P', 'N', 'G'}}},
		Voice:     &domain.MediaItem{Kind: domain.MediaAudio, Data: []byte("ogg")},
		MusicLink: "https://www.deezer.com/track/3135556",
	})
	if err != nil || id != "new-id" {
		t.Fatalf("expected new-id, got %q, %v", id, err)
	}

	m := f.sink.created[0]
	if m.Text != "hello" || m.Author.ID != "me" || m.Author.Name != "Me" {
		t.Fatalf("unexpected author or text: %+v", m)
	}
	if !m.AuthorPrivate || m.Visibility != domain.VisibilityPublic {
		t.Fatalf("expected privacy snapshot and default visibility, got %+v", m)
	}
	if len(m.Media) != 1 || m.Media[0].URL == "" || m.Media[0].Data != nil {
		t.Fatalf("expected uploaded media, got %+v", m.Media)
	}
	if m.VoiceURL != "https://media.example/audio" {
		t.Fatalf("expected voice url, got %q", m.VoiceURL)
	}
	if m.Music.Display != "Song - Artist" {
		t.Fatalf("expected resolved music, got %+v", m.Music)
	}
	if m.CreatedAt.Millis() != now.UnixMilli() {
		t.Fatalf("expected client timestamp, got %s", m.CreatedAt)
	}
	if f.reload.n != 1 {
		t.Fatalf("expected one reload of the active view, got %d", f.reload.n)
	}
	if got := f.agg.Mine(); !equalIDs(got, "new-id") {
		t.Fatalf("expected mine cache refreshed, got %v", ids(got))
	}
}

func TestCreate_MusicFallsBackToRawLink(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"})
	f.coord.svc.Music = stubMusic{err: errBackend}

	link := "https://open.spotify.com/track/abc"
	if _, err := f.coord.Create(context.Background(), domain.Draft{Text: "x", MusicLink: link}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.sink.created[0].Music; got.Display != link || got.PreviewURL != link {
		t.Fatalf("expected raw link fallback, got %+v", got)
	}
}

func TestCreate_InlineMediaWithoutSinkFails(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"})
	f.coord.svc.Media = nil

	_, err := f.coord.Create(context.Background(), domain.Draft{
		Media: []domain.MediaItem{{Kind: domain.MediaImage, Data: []byte("x")}},
	})
	if !errors.Is(err, domain.ErrMediaUnavailable) {
		t.Fatalf("expected ErrMediaUnavailable, got %v", err)
	}
}

func TestCreate_SignedOut(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"})
	f.coord.svc.Identity = &stubIdentity{}
	if _, err := f.coord.Create(context.Background(), domain.Draft{Text: "x"}); !errors.Is(err, domain.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
}

func TestEdit_Rules(t *testing.T) {
	recent := makeMoment("a", "me", now.Add(-5*time.Minute))
	old := makeMoment("b", "me", now.Add(-time.Hour))
	ctx := context.Background()

	f := newFixture(t, domain.UserProfile{ID: "me"}, recent)
	if err := f.coord.Edit(ctx, "a", "new"); !errors.Is(err, domain.ErrPremiumOnly) {
		t.Fatalf("expected ErrPremiumOnly for standard tier, got %v", err)
	}

	f = newFixture(t, domain.UserProfile{ID: "me", EarlyUser: true}, recent, old)
	if err := f.coord.Edit(ctx, "b", "new"); !errors.Is(err, domain.ErrEditWindowClosed) {
		t.Fatalf("expected ErrEditWindowClosed, got %v", err)
	}
	if err := f.coord.Edit(ctx, "a", "new text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m, _ := f.agg.Lookup("a"); m.Text != "new text" {
		t.Fatalf("expected edited text in cache, got %q", m.Text)
	}
	if mine := f.agg.Mine(); mine[0].Text != "new text" {
		t.Fatalf("expected edited text in mine cache, got %q", mine[0].Text)
	}
	if p := f.sink.patches[0]; p.Text == nil || *p.Text != "new text" {
		t.Fatalf("unexpected patch: %+v", p)
	}
}

func TestRefreshMine_PagesUntilEmpty(t *testing.T) {
	f := newFixture(t, domain.UserProfile{ID: "me"})
	var cursors []*app.Cursor
	pages := scripted(
		[]domain.Moment{makeMoment("c", "me", now), makeMoment("b", "me", now.Add(-time.Minute))},
		[]domain.Moment{makeMoment("a", "me", now.Add(-time.Hour))},
	)
	f.src.own = func(after *app.Cursor, limit int) (app.Page, error) {
		cursors = append(cursors, after)
		return pages(after, limit)
	}

	if err := f.coord.RefreshMine(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.agg.Mine(); !equalIDs(got, "c", "b", "a") {
		t.Fatalf("expected [c b a], got %v", ids(got))
	}
	if len(cursors) != 3 || cursors[1].ID != "b" || cursors[2].ID != "a" {
		t.Fatalf("unexpected cursors: %+v", cursors)
	}
}
