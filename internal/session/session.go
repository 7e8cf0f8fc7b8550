// Package session owns the current identity and UI theme of the client.
// Everything else reads them through the Store and is told about changes
// through Subscribe.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/port"
)

// Durable storage keys.
const (
	KeyTheme    = "lynix-theme"
	KeyIdentity = "lynix-user"
	KeyToken    = "lynix-token"
)

// Theme is the binary UI theme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Listener is told the new identity (nil when signed out).
type Listener func(identity *domain.User)

// Store holds the current identity, its access token and the theme.
type Store struct {
	mu        sync.Mutex
	local     port.LocalStore
	directory port.Directory
	nav       port.Navigator
	logger    *zap.Logger

	identity  *domain.User
	token     string
	sessionID string
	theme     Theme

	listeners map[int]Listener
	nextID    int
}

// New restores theme and identity from local. A stored identity that cannot
// be decoded is dropped; it never fails startup.
func New(ctx context.Context, local port.LocalStore, directory port.Directory, logger *zap.Logger) *Store {
	s := &Store{
		local:     local,
		directory: directory,
		logger:    logger,
		theme:     ThemeDark,
		listeners: make(map[int]Listener),
	}

	if v, ok, err := local.Get(ctx, KeyTheme); err != nil {
		logger.Warn("session: load theme", zap.Error(err))
	} else if ok && Theme(v) == ThemeLight {
		s.theme = ThemeLight
	}

	raw, ok, err := local.Get(ctx, KeyIdentity)
	switch {
	case err != nil:
		logger.Warn("session: load identity", zap.Error(err))
	case ok:
		u, err := decodeIdentity(raw)
		if err != nil {
			logger.Warn("session: discarding stored identity", zap.Error(err))
			s.forget(ctx)
			break
		}
		s.identity = u
		s.sessionID = uuid.NewString()
		if tok, ok, err := local.Get(ctx, KeyToken); err == nil && ok {
			s.token = tok
		}
	}
	return s
}

func decodeIdentity(raw string) (*domain.User, error) {
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, err
	}
	if u.Username == "" || !u.Role.Valid() {
		return nil, errors.New("incomplete identity record")
	}
	return &u, nil
}

// SetNavigator wires the navigation target used after sign-in and sign-out.
func (s *Store) SetNavigator(nav port.Navigator) {
	s.mu.Lock()
	s.nav = nav
	s.mu.Unlock()
}

// SignIn checks the credentials against the directory. On success the
// identity becomes current and the app goes Home. Failures are reported
// as false, never as an error, and leave no identity behind.
func (s *Store) SignIn(ctx context.Context, identifier, secret string) bool {
	resp, err := s.directory.Login(ctx, identifier, secret)
	if err != nil {
		s.logger.Warn("session: sign-in failed", zap.String("identifier", identifier), zap.Error(err))
		if s.Identity() != nil {
			s.set(ctx, nil, "")
		}
		return false
	}
	u := resp.User.Public()
	s.set(ctx, &u, resp.Token)
	s.navigate(domain.PageHome)
	return true
}

// SignInAsGuest makes the fixed guest identity current without asking the
// directory.
func (s *Store) SignInAsGuest(ctx context.Context) {
	s.set(ctx, domain.GuestUser(), "")
	s.navigate(domain.PageHome)
}

// SignOut clears the identity and goes Home.
func (s *Store) SignOut(ctx context.Context) {
	s.set(ctx, nil, "")
	s.navigate(domain.PageHome)
}

// ToggleTheme flips between dark and light and persists the choice.
func (s *Store) ToggleTheme(ctx context.Context) Theme {
	s.mu.Lock()
	if s.theme == ThemeDark {
		s.theme = ThemeLight
	} else {
		s.theme = ThemeDark
	}
	theme := s.theme
	s.mu.Unlock()

	if err := s.local.Set(ctx, KeyTheme, string(theme)); err != nil {
		s.logger.Warn("session: persist theme", zap.Error(err))
	}
	return theme
}

func (s *Store) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// Identity returns a copy of the current identity, or nil.
func (s *Store) Identity() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	u := *s.identity
	return &u
}

// Token returns the access token of the signed-in user ("" for guests).
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// DropToken forgets a token the server no longer accepts. The identity is
// kept; listeners are not notified.
func (s *Store) DropToken(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if err := s.local.Delete(ctx, KeyToken); err != nil {
		s.logger.Warn("session: forget token", zap.Error(err))
	}
}

// SessionID identifies the current sign-in; it changes on every sign-in.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Subscribe registers fn for identity changes and returns its cancel func.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) set(ctx context.Context, u *domain.User, token string) {
	s.mu.Lock()
	s.identity = u
	s.token = token
	if u != nil {
		s.sessionID = uuid.NewString()
	} else {
		s.sessionID = ""
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if u == nil {
		s.forget(ctx)
	} else {
		s.persist(ctx, u, token)
	}

	for _, l := range listeners {
		if u == nil {
			l(nil)
			continue
		}
		cp := *u
		l(&cp)
	}
}

func (s *Store) persist(ctx context.Context, u *domain.User, token string) {
	raw, err := json.Marshal(u)
	if err != nil {
		s.logger.Warn("session: encode identity", zap.Error(err))
		return
	}
	if err := s.local.Set(ctx, KeyIdentity, string(raw)); err != nil {
		s.logger.Warn("session: persist identity", zap.Error(err))
	}
	if token == "" {
		err = s.local.Delete(ctx, KeyToken)
	} else {
		err = s.local.Set(ctx, KeyToken, token)
	}
	if err != nil {
		s.logger.Warn("session: persist token", zap.Error(err))
	}
}

func (s *Store) forget(ctx context.Context) {
	for _, key := range []string{KeyIdentity, KeyToken} {
		if err := s.local.Delete(ctx, key); err != nil {
			s.logger.Warn("session: clear stored key", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *Store) navigate(page domain.Page) {
	s.mu.Lock()
	nav := s.nav
	s.mu.Unlock()
	if nav != nil {
		nav.Navigate(page)
	}
}
