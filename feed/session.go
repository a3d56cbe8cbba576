package feed

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentlog/momentlog/app"
)

// Player is the media playback hook stopped on every view transition.
type Player interface {
	StopAll()
}

// SessionConfig wires a Session. Player and Log may be nil.
type SessionConfig struct {
	Source    app.QuerySource
	Identity  app.Identity
	Profiles  ProfileReader
	Player    Player
	ChunkSize int
	Log       *zerolog.Logger
}

// Session is the view state machine: exactly one view is active, and every
// transition resets the aggregator before the first page of the new view
// is requested.
type Session struct {
	agg *Aggregator
	cfg SessionConfig

	// switching serializes transitions from the active-view assignment
	// through the aggregator reset. Page loads run outside it.
	switching sync.Mutex

	mu        sync.Mutex
	active    View
	profileID string
	entered   bool

	cancelAuth func()
}

// NewSession returns a session that has not entered any view yet. Sign-in
// and sign-out reset it to the following view.
func NewSession(agg *Aggregator, cfg SessionConfig) *Session {
	if cfg.Log == nil {
		nop := zerolog.Nop()
		cfg.Log = &nop
	}
	s := &Session{agg: agg, cfg: cfg, active: ViewFollowing}
	if cfg.Identity != nil {
		s.cancelAuth = cfg.Identity.OnAuthChange(func(app.User, bool) {
			s.enter(context.Background(), ViewFollowing, true, func() { s.profileID = "" })
		})
	}
	return s
}

// Close detaches the session from identity changes.
func (s *Session) Close() {
	if s.cancelAuth != nil {
		s.cancelAuth()
	}
}

// Active returns the active view.
func (s *Session) Active() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ProfileID returns the user the profile view targets.
func (s *Session) ProfileID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileID
}

// SwitchTo enters view. Re-entering the active view is a no-op unless
// force is set. It reports whether a transition happened.
func (s *Session) SwitchTo(ctx context.Context, view View, force bool) bool {
	return s.enter(ctx, view, force, nil)
}

// OpenProfile targets the profile view at uid.
func (s *Session) OpenProfile(ctx context.Context, uid string) {
	s.enter(ctx, ViewProfile, true, func() { s.profileID = uid })
}

// enter performs one transition. target runs under s.mu before the view is
// resolved. Overlapping transitions apply in full, one after the other, so
// the active view and the aggregator's view always agree.
func (s *Session) enter(ctx context.Context, view View, force bool, target func()) bool {
	s.switching.Lock()
	s.mu.Lock()
	if target != nil {
		target()
	}
	if s.entered && s.active == view && !force {
		s.mu.Unlock()
		s.switching.Unlock()
		return false
	}
	s.active = view
	s.entered = true
	profileID := s.profileID
	s.mu.Unlock()

	if s.cfg.Player != nil {
		s.cfg.Player.StopAll()
	}
	pager := s.pagerFor(view, profileID)
	s.agg.ResetForView(view, pager)
	s.switching.Unlock()

	s.cfg.Log.Debug().Stringer("view", view).Msg("view entered")
	if pager != nil {
		s.agg.LoadNextPage(ctx)
	}
	return true
}

// Reload re-enters the active view from its first page.
func (s *Session) Reload(ctx context.Context) {
	s.SwitchTo(ctx, s.Active(), true)
}

// LoadMore requests the next page of the active view.
func (s *Session) LoadMore(ctx context.Context) LoadOutcome {
	return s.agg.LoadNextPage(ctx)
}

func (s *Session) pagerFor(view View, profileID string) Pager {
	if !view.HasFeed() {
		return nil
	}
	if view == ViewExplore {
		return PublicPager(s.cfg.Source)
	}
	var viewer string
	if s.cfg.Identity != nil {
		if u, ok := s.cfg.Identity.CurrentUser(); ok {
			viewer = u.ID
		}
	}
	switch view {
	case ViewFollowing:
		if viewer == "" {
			return nil
		}
		return s.followingPager(viewer)
	case ViewMyMoments:
		if viewer == "" {
			return nil
		}
		return OwnPager(s.cfg.Source, viewer)
	case ViewProfile:
		if profileID == "" {
			return nil
		}
		return ProfilePager(s.cfg.Source, profileID, viewer)
	}
	return nil
}

// followingPager resolves the follow list on the first page so the reset
// is never delayed by a profile read. Without a follow list it degrades to
// the viewer's own moments.
func (s *Session) followingPager(viewer string) Pager {
	var inner *FollowingPager
	return PagerFunc(func(ctx context.Context, after *app.Cursor, limit int) (app.Page, error) {
		if inner == nil {
			var following []string
			if s.cfg.Profiles != nil {
				p, err := s.cfg.Profiles.Profile(ctx, viewer)
				if err != nil {
					s.cfg.Log.Warn().Err(err).Msg("follow list unavailable; showing own moments")
				} else {
					following = p.Following
				}
			}
			inner = &FollowingPager{
				Source:    s.cfg.Source,
				ViewerID:  viewer,
				Following: following,
				ChunkSize: s.cfg.ChunkSize,
			}
		}
		return inner.FetchPage(ctx, after, limit)
	})
}

var _ ProfileReader = (app.AccountStore)(nil)
