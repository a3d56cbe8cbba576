// Package auth keeps the signed-in user in a session file on disk.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/momentlog/momentlog/app"
)

// FileIdentity implements app.Identity on top of a JSON session file.
type FileIdentity struct {
	path string

	mu        sync.Mutex
	user      app.User
	signedIn  bool
	listeners map[int]func(app.User, bool)
	nextID    int
}

// NewFileIdentity loads the session at path. A missing file means signed out.
func NewFileIdentity(path string) (*FileIdentity, error) {
	f := &FileIdentity{path: path, listeners: map[int]func(app.User, bool){}}
	u, err := readSession(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, err
	}
	f.user, f.signedIn = u, true
	return f, nil
}

func readSession(path string) (app.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return app.User{}, err
	}
	var u app.User
	if err := json.Unmarshal(data, &u); err != nil {
		return app.User{}, fmt.Errorf("parse session %s: %w", path, err)
	}
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return app.User{}, fmt.Errorf("session file %s has no user id", path)
	}
	return u, nil
}

// CurrentUser returns the signed-in user.
func (f *FileIdentity) CurrentUser() (app.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, f.signedIn
}

// OnAuthChange registers fn for sign-in and sign-out.
func (f *FileIdentity) OnAuthChange(fn func(app.User, bool)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// SignIn persists u as the current user and notifies listeners.
func (f *FileIdentity) SignIn(u app.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("sign in: empty user id")
	}
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	f.set(u, true)
	return nil
}

// SignOut removes the session file and notifies listeners.
func (f *FileIdentity) SignOut() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	f.set(app.User{}, false)
	return nil
}

func (f *FileIdentity) set(u app.User, signedIn bool) {
	f.mu.Lock()
	f.user, f.signedIn = u, signedIn
	fns := make([]func(app.User, bool), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(u, signedIn)
	}
}
