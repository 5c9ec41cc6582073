package store_test

import (
	"os"
	"path/filepath"
	"testing"

	auth "github.com/goliatone/go-donor-auth"
	"github.com/goliatone/go-donor-auth/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := store.NewFileStore(path, "")

	_, err := s.Read()
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	require.NoError(t, s.Save("tok-1"))

	token, err := store.NewFileStore(path, auth.DefaultTokenKey).Read()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())

	_, err = s.Read()
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestFileStore_SlotsAreIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	a := store.NewFileStore(path, "a")
	b := store.NewFileStore(path, "b")

	require.NoError(t, a.Save("token-a"))
	require.NoError(t, b.Save("token-b"))
	require.NoError(t, a.Clear())

	_, err := a.Read()
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	token, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, "token-b", token)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := store.NewFileStore(path, "").Read()
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestFileStore_DrivesSessionProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := store.NewFileStore(path, "")
	require.NoError(t, s.Save("not-a-token"))

	p := auth.NewSessionProvider(nil, s, auth.WithProviderLogger(auth.NopLogger{}))
	p.Init()

	assert.Equal(t, auth.StateAnonymous, p.State())
	_, err := s.Read()
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}
