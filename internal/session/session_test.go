// ABOUTME: Tests for session token persistence
// ABOUTME: Covers file permissions, JWT expiry handling and logout clearing

package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestFileStore_LoadEmpty(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	require.NoError(t, store.Save("opaque-token"))

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", token)

	info, err := os.Stat(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_UsesWellKnownKey(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, store.Save("abc"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var raw map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]string{"token": "abc"}, raw)
}

func TestFileStore_ClearRemovesToken(t *testing.T) {
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Save("abc"))

	require.NoError(t, store.Clear())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	// Clearing twice is fine
	assert.NoError(t, store.Clear())
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte("not json"), 0600))

	_, err := NewFileStore(dir).Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_ExpiredTokenIsCleared(t *testing.T) {
	store := NewFileStore(t.TempDir())
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	expired := signedToken(t, jwt.MapClaims{"sub": "driver@example.com", "exp": now.Add(-time.Minute).Unix()})
	require.NoError(t, store.Save(expired))

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrExpired)

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "expired session file should be removed")
}

func TestFileStore_SaveRejectsEmpty(t *testing.T) {
	assert.Error(t, NewFileStore(t.TempDir()).Save(""))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore("")
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Save("tok"))
	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestParseClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("subject and expiry", func(t *testing.T) {
		claims, ok := ParseClaims(signedToken(t, jwt.MapClaims{"sub": "u-1", "exp": exp.Unix()}))
		require.True(t, ok)
		assert.Equal(t, "u-1", claims.Subject)
		assert.True(t, claims.ExpiresAt.Equal(exp))
	})

	t.Run("email fallback", func(t *testing.T) {
		claims, ok := ParseClaims(signedToken(t, jwt.MapClaims{"email": "driver@example.com"}))
		require.True(t, ok)
		assert.Equal(t, "driver@example.com", claims.Subject)
		assert.True(t, claims.ExpiresAt.IsZero())
	})

	t.Run("opaque token", func(t *testing.T) {
		_, ok := ParseClaims("not-a-jwt")
		assert.False(t, ok)
	})
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	assert.False(t, Expired("opaque", now))
	assert.False(t, Expired(signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), now))
	assert.True(t, Expired(signedToken(t, jwt.MapClaims{"exp": now.Unix()}), now))
}
