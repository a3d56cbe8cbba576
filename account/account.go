// Package account applies the rules around profiles, usernames and the
// follow graph on top of an app.AccountStore.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/momentlog/momentlog/app"
	"github.com/momentlog/momentlog/domain"
	"github.com/momentlog/momentlog/infra/validation"
)

// Service is the account use-case layer.
type Service struct {
	store    app.AccountStore
	notes    app.NotificationService
	identity app.Identity
}

func New(store app.AccountStore, notes app.NotificationService, identity app.Identity) *Service {
	return &Service{store: store, notes: notes, identity: identity}
}

// NormalizeUsername lower-cases and trims a username, dropping a leading @.
func NormalizeUsername(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	return cases.Lower(language.Und).String(s)
}

func checkUsername(s string) (string, error) {
	name := NormalizeUsername(s)
	if !validation.ValidUsername(name) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidUsername, s)
	}
	return name, nil
}

func (s *Service) me() (string, error) {
	if s.identity == nil {
		return "", domain.ErrNotSignedIn
	}
	u, ok := s.identity.CurrentUser()
	if !ok || u.ID == "" {
		return "", domain.ErrNotSignedIn
	}
	return u.ID, nil
}

// Profile returns the profile of uid.
func (s *Service) Profile(ctx context.Context, uid string) (domain.UserProfile, error) {
	return s.store.Profile(ctx, uid)
}

// FindOrCreate resolves username to a profile, registering it when no one
// holds it yet. The CLI uses it to sign in.
func (s *Service) FindOrCreate(ctx context.Context, username string) (domain.UserProfile, error) {
	name, err := checkUsername(username)
	if err != nil {
		return domain.UserProfile{}, err
	}
	p, err := s.store.ProfileByUsername(ctx, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.UserProfile{}, fmt.Errorf("lookup username: %w", err)
	}
	return s.Register(ctx, name, name)
}

// Register creates a profile with a reserved username.
func (s *Service) Register(ctx context.Context, username, displayName string) (domain.UserProfile, error) {
	name, err := checkUsername(username)
	if err != nil {
		return domain.UserProfile{}, err
	}
	p := domain.UserProfile{
		Username:    name,
		DisplayName: strings.TrimSpace(displayName),
		Avatar:      domain.DefaultAvatar,
	}
	if p.DisplayName == "" {
		p.DisplayName = name
	}
	id, err := s.store.CreateProfile(ctx, p)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("create profile: %w", err)
	}
	p.ID = id
	return p, nil
}

// ChangeUsername moves the signed-in user's reservation to username.
func (s *Service) ChangeUsername(ctx context.Context, username string) error {
	uid, err := s.me()
	if err != nil {
		return err
	}
	name, err := checkUsername(username)
	if err != nil {
		return err
	}
	return s.store.ReserveUsername(ctx, uid, name)
}

// ProfileEdit holds the user-editable profile fields.
type ProfileEdit struct {
	DisplayName string `validate:"required,max=50"`
	Avatar      string `validate:"max=16"`
	Bio         string `validate:"max=160"`
	Private     bool
}

// UpdateProfile stores the edit on the signed-in user's profile.
func (s *Service) UpdateProfile(ctx context.Context, edit ProfileEdit) error {
	uid, err := s.me()
	if err != nil {
		return err
	}
	edit.DisplayName = strings.TrimSpace(edit.DisplayName)
	edit.Bio = strings.TrimSpace(edit.Bio)
	if err := validation.Struct(edit); err != nil {
		return err
	}
	p, err := s.store.Profile(ctx, uid)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	p.DisplayName, p.Avatar, p.Bio, p.Private = edit.DisplayName, edit.Avatar, edit.Bio, edit.Private
	return s.store.UpdateProfile(ctx, p)
}
