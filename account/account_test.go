package account

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
)

type memStore struct {
	profiles  map[string]*domain.UserProfile
	usernames map[string]string
	nextID    int
}

func newMemStore(profiles ...domain.UserProfile) *memStore {
	s := &memStore{profiles: map[string]*domain.UserProfile{}, usernames: map[string]string{}}
	for _, p := range profiles {
		p := p
		s.profiles[p.ID] = &p
		if p.Username != "" {
			s.usernames[p.Username] = p.ID
		}
	}
	return s
}

func (s *memStore) Profile(_ context.Context, id string) (domain.UserProfile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	return *p, nil
}

func (s *memStore) ProfileByUsername(ctx context.Context, name string) (domain.UserProfile, error) {
	id, ok := s.usernames[name]
	if !ok {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	return s.Profile(ctx, id)
}

func (s *memStore) CreateProfile(_ context.Context, p domain.UserProfile) (string, error) {
	if _, ok := s.usernames[p.Username]; ok {
		return "", domain.ErrUsernameTaken
	}
	s.nextID++
	p.ID = fmt.Sprintf("u%d", s.nextID)
	s.profiles[p.ID] = &p
	s.usernames[p.Username] = p.ID
	return p.ID, nil
}

func (s *memStore) UpdateProfile(_ context.Context, p domain.UserProfile) error {
	s.profiles[p.ID] = &p
	return nil
}

func (s *memStore) ReserveUsername(_ context.Context, uid, name string) error {
	if owner, ok := s.usernames[name]; ok && owner != uid {
		return domain.ErrUsernameTaken
	}
	p := s.profiles[uid]
	delete(s.usernames, p.Username)
	p.Username = name
	s.usernames[name] = uid
	return nil
}

func (s *memStore) AddFollower(_ context.Context, follower, target string) error {
	s.profiles[target].Followers = append(s.profiles[target].Followers, follower)
	s.profiles[follower].Following = append(s.profiles[follower].Following, target)
	return nil
}

func (s *memStore) RemoveFollower(_ context.Context, follower, target string) error {
	s.profiles[target].Followers = remove(s.profiles[target].Followers, follower)
	s.profiles[follower].Following = remove(s.profiles[follower].Following, target)
	return nil
}

func (s *memStore) AddFollowRequest(_ context.Context, requester, target string) error {
	s.profiles[target].PendingFollowers = append(s.profiles[target].PendingFollowers, requester)
	return nil
}

func (s *memStore) ResolveFollowRequest(ctx context.Context, target, requester string, approve bool) error {
	s.profiles[target].PendingFollowers = remove(s.profiles[target].PendingFollowers, requester)
	if approve {
		return s.AddFollower(ctx, requester, target)
	}
	return nil
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(x string) bool { return x == id })
}

type fixedIdentity struct{ id string }

func (f fixedIdentity) CurrentUser() (app.User, bool) { return app.User{ID: f.id}, f.id != "" }
func (fixedIdentity) OnAuthChange(func(app.User, bool)) func() { return func() {} }

type memNotes struct {
	items []domain.Notification
	calls []string
}

func (n *memNotes) Notifications(_ context.Context, uid string, limit int) ([]domain.Notification, error) {
	n.calls = append(n.calls, fmt.Sprintf("list %s %d", uid, limit))
	return n.items, nil
}
func (n *memNotes) MarkNotificationRead(_ context.Context, uid, id string) error {
	n.calls = append(n.calls, "read "+uid+" "+id)
	return nil
}
func (n *memNotes) DeleteNotification(_ context.Context, uid, id string) error {
	n.calls = append(n.calls, "delete "+uid+" "+id)
	return nil
}
func (n *memNotes) ClearNotifications(_ context.Context, uid string) error {
	n.calls = append(n.calls, "clear "+uid)
	return nil
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("  @Mixed.Case_1 "); got != "mixed.case_1" {
		t.Fatalf("unexpected normalized username %q", got)
	}
}

func TestFindOrCreate(t *testing.T) {
	store := newMemStore(domain.UserProfile{ID: "u0", Username: "alice"})
	svc := New(store, nil, nil)
	ctx := context.Background()

	p, err := svc.FindOrCreate(ctx, "Alice")
	if err != nil || p.ID != "u0" {
		t.Fatalf("expected existing profile, got %+v, %v", p, err)
	}
	p, err = svc.FindOrCreate(ctx, "bob")
	if err != nil || p.ID == "" || p.DisplayName != "bob" || p.Avatar != domain.DefaultAvatar {
		t.Fatalf("expected new profile, got %+v, %v", p, err)
	}
	if _, err := svc.FindOrCreate(ctx, "no"); !errors.Is(err, domain.ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	store := newMemStore(domain.UserProfile{ID: "u0", Username: "alice"})
	svc := New(store, nil, nil)
	if _, err := svc.Register(context.Background(), "alice", "Other"); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestChangeUsername(t *testing.T) {
	store := newMemStore(
		domain.UserProfile{ID: "me", Username: "me_old"},
		domain.UserProfile{ID: "x", Username: "taken"},
	)
	svc := New(store, nil, fixedIdentity{"me"})
	ctx := context.Background()

	if err := svc.ChangeUsername(ctx, "Taken"); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if err := svc.ChangeUsername(ctx, "has space"); !errors.Is(err, domain.ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
	if err := svc.ChangeUsername(ctx, "me_new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, _ := store.ProfileByUsername(ctx, "me_new"); p.ID != "me" {
		t.Fatalf("expected reservation moved, got %+v", p)
	}
}

func TestUpdateProfileValidates(t *testing.T) {
	store := newMemStore(domain.UserProfile{ID: "me", Username: "me"})
	svc := New(store, nil, fixedIdentity{"me"})
	ctx := context.Background()

	if err := svc.UpdateProfile(ctx, ProfileEdit{DisplayName: "  "}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}
	if err := svc.UpdateProfile(ctx, ProfileEdit{DisplayName: "Me", Bio: "hi", Private: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, _ := store.Profile(ctx, "me"); !p.Private || p.DisplayName != "Me" || p.Username != "me" {
		t.Fatalf("unexpected profile after edit: %+v", p)
	}
}

func TestFollowPublicAndPrivate(t *testing.T) {
	store := newMemStore(
		domain.UserProfile{ID: "me"},
		domain.UserProfile{ID: "pub"},
		domain.UserProfile{ID: "priv", Private: true},
	)
	svc := New(store, nil, fixedIdentity{"me"})
	ctx := context.Background()

	if _, err := svc.Follow(ctx, "me"); !errors.Is(err, domain.ErrSelfFollow) {
		t.Fatalf("expected ErrSelfFollow, got %v", err)
	}
	if st, err := svc.Follow(ctx, "pub"); err != nil || st != domain.FollowActive {
		t.Fatalf("expected active follow, got %v, %v", st, err)
	}
	if st, _ := svc.Follow(ctx, "pub"); st != domain.FollowActive {
		t.Fatalf("expected repeat follow to be idempotent")
	}
	if len(store.profiles["pub"].Followers) != 1 {
		t.Fatalf("expected a single follower edge, got %v", store.profiles["pub"].Followers)
	}
	if st, err := svc.Follow(ctx, "priv"); err != nil || st != domain.FollowRequested {
		t.Fatalf("expected request on private profile, got %v, %v", st, err)
	}
	if st, _ := svc.FollowState(ctx, "priv"); st != domain.FollowRequested {
		t.Fatalf("expected requested state, got %v", st)
	}

	if err := svc.Unfollow(ctx, "priv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st, _ := svc.FollowState(ctx, "priv"); st != domain.FollowNone {
		t.Fatalf("expected withdrawn request, got %v", st)
	}
	if err := svc.Unfollow(ctx, "pub"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.profiles["me"].Follows("pub") {
		t.Fatalf("expected follow edge removed")
	}
}

func TestApproveAndDecline(t *testing.T) {
	store := newMemStore(
		domain.UserProfile{ID: "me", Private: true, PendingFollowers: []string{"a", "b"}},
		domain.UserProfile{ID: "a"},
		domain.UserProfile{ID: "b"},
	)
	svc := New(store, nil, fixedIdentity{"me"})
	ctx := context.Background()

	if err := svc.Approve(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Decline(ctx, "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	me := store.profiles["me"]
	if len(me.PendingFollowers) != 0 || !slices.Equal(me.Followers, []string{"a"}) {
		t.Fatalf("unexpected profile after resolve: %+v", me)
	}
	if err := svc.Approve(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown request, got %v", err)
	}
}

func TestSignedOutIsRejected(t *testing.T) {
	svc := New(newMemStore(), &memNotes{}, fixedIdentity{})
	if _, err := svc.Follow(context.Background(), "x"); !errors.Is(err, domain.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
	if _, err := svc.Inbox(context.Background()); !errors.Is(err, domain.ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
}

func TestInboxOperationsScopeToCurrentUser(t *testing.T) {
	notes := &memNotes{items: []domain.Notification{{ID: "n1"}, {ID: "n2", Read: true}}}
	svc := New(newMemStore(), notes, fixedIdentity{"me"})
	ctx := context.Background()

	items, err := svc.Inbox(ctx)
	if err != nil || Unread(items) != 1 {
		t.Fatalf("expected one unread, got %d, %v", Unread(items), err)
	}
	_ = svc.MarkRead(ctx, "n1")
	_ = svc.Dismiss(ctx, "n2")
	_ = svc.ClearInbox(ctx)
	want := []string{"list me 50", "read me n1", "delete me n2", "clear me"}
	if !slices.Equal(notes.calls, want) {
		t.Fatalf("expected %v, got %v", want, notes.calls)
	}
}
