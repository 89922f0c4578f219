// ABOUTME: Persists the single session token in the user's config directory
// ABOUTME: Reads JWT expiry without verifying signatures; the services stay authoritative

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSession is returned when no token is stored.
	ErrNoSession = errors.New("no session")

	// ErrExpired is returned when the stored token's exp claim has passed.
	ErrExpired = errors.New("session expired")
)

// Store keeps at most one session token
type Store interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// sessionData is the on-disk form. The key name is fixed so every
// version of the client reads the same field.
type sessionData struct {
	Token string `json:"token"`
}

// FileStore keeps the token in <configDir>/session.json
type FileStore struct {
	configDir string
	now       func() time.Time
}

// NewFileStore creates a FileStore rooted at configDir
func NewFileStore(configDir string) *FileStore {
	return &FileStore{configDir: configDir, now: time.Now}
}

// Path returns the session file location
func (s *FileStore) Path() string {
	return filepath.Join(s.configDir, "session.json")
}

// Load returns the stored token. An expired token is removed from disk.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}

	var stored sessionData
	if err := json.Unmarshal(data, &stored); err != nil || stored.Token == "" {
		// Corrupt file, treat as signed out
		return "", ErrNoSession
	}

	if Expired(stored.Token, s.now()) {
		if err := s.Clear(); err != nil {
			return "", err
		}
		return "", ErrExpired
	}
	return stored.Token, nil
}

// Save writes the token with owner-only permissions
func (s *FileStore) Save(token string) error {
	if token == "" {
		return errors.New("refusing to save empty token")
	}
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(sessionData{Token: token}, "", "  ")
	if err != nil {
		return err
	}

	// Write then rename so a crash never leaves a half-written token
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path())
}

// Clear removes the stored token. Clearing an absent session is not an error.
func (s *FileStore) Clear() error {
	err := os.Remove(s.Path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// MemoryStore is a Store that never touches disk
type MemoryStore struct {
	mu    sync.Mutex
	token string
	now   func() time.Time
}

// NewMemoryStore creates a MemoryStore, optionally seeded with a token
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token, now: time.Now}
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == "" {
		return "", ErrNoSession
	}
	if Expired(m.token, m.now()) {
		m.token = ""
		return "", ErrExpired
	}
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	if token == "" {
		return errors.New("refusing to save empty token")
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

// Claims is what the client can learn from a token without a key
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ParseClaims reads standard claims from a JWT without verifying it.
// ok is false for opaque tokens.
func ParseClaims(token string) (claims Claims, ok bool) {
	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return Claims{}, false
	}

	claims.Subject = registered.Subject
	if claims.Subject == "" {
		// Identity service tokens may carry only an email claim
		var mapped jwt.MapClaims
		if _, _, err := jwt.NewParser().ParseUnverified(token, &mapped); err == nil {
			if email, ok := mapped["email"].(string); ok {
				claims.Subject = email
			}
		}
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	return claims, true
}

// Expired reports whether token carries an exp claim at or before now.
// Opaque tokens never expire client-side.
func Expired(token string, now time.Time) bool {
	claims, ok := ParseClaims(token)
	if !ok || claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(claims.ExpiresAt)
}

// TokenSource adapts a Store to the client's token callback
func TokenSource(s Store) func() (string, error) {
	return s.Load
}
