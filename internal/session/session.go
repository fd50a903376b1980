// Package session holds the reader's authenticated session. A Session is
// created once at startup and passed explicitly to everything that needs
// the bearer token.
package session

import (
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenKey is the credential key the bearer token is stored under.
const tokenKey = "api-token"

// ErrNotLoggedIn is returned when an operation needs a token and none is set.
var ErrNotLoggedIn = errors.New("not logged in")

// SecretStore persists the token between runs. credential.Store satisfies it.
type SecretStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Claims is the subset of the token payload the client cares about.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// Session tracks the bearer token for the current reader. It is safe for
// concurrent use.
type Session struct {
	store SecretStore
	mu    gosync.RWMutex
	token string
}

// New creates a Session and restores a previously saved token, if any.
// A missing token is not an error; the session simply starts logged out.
func New(store SecretStore) *Session {
	s := &Session{store: store}
	if store != nil {
		if tok, err := store.Get(tokenKey); err == nil {
			s.token = tok
		}
	}
	return s
}

// Token returns the current bearer token, or ErrNotLoggedIn.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return "", ErrNotLoggedIn
	}
	return s.token, nil
}

// LoggedIn reports whether a token is present.
func (s *Session) LoggedIn() bool {
	_, err := s.Token()
	return err == nil
}

// Login replaces the token and persists it.
func (s *Session) Login(token string) error {
	if token == "" {
		return errors.New("empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Set(tokenKey, token); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
	}
	s.token = token
	return nil
}

// Logout clears the token in memory and from the secret store.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if s.store != nil {
		if err := s.store.Delete(tokenKey); err != nil {
			return fmt.Errorf("removing token: %w", err)
		}
	}
	return nil
}

// Claims decodes the token payload without verifying the signature. The
// backend verifies every request; the client only reads the claims to
// decide what to show.
func (s *Session) Claims() (Claims, error) {
	tok, err := s.Token()
	if err != nil {
		return Claims{}, err
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, mc); err != nil {
		return Claims{}, fmt.Errorf("parsing token claims: %w", err)
	}

	var c Claims
	c.Subject, _ = mc.GetSubject()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if role, ok := mc["role"].(string); ok {
		c.Role = role
	}
	return c, nil
}

// IsAdmin reports whether the token carries the admin role.
func (s *Session) IsAdmin() bool {
	c, err := s.Claims()
	return err == nil && c.Role == "admin"
}

// Expired reports whether the token has an expiry that is not after now.
// Tokens without an exp claim, or that cannot be parsed, never expire here.
func (s *Session) Expired(now time.Time) bool {
	c, err := s.Claims()
	if err != nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}
