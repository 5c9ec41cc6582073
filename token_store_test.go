package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-donor-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenStore(t *testing.T) {
	store := auth.NewMemoryTokenStore()

	_, err := store.Read()
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	require.NoError(t, store.Save("first"))
	require.NoError(t, store.Save("second"))

	token, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	_, err = store.Read()
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestMemoryTokenStore_Seed(t *testing.T) {
	token, err := auth.NewMemoryTokenStore("seeded").Read()
	require.NoError(t, err)
	assert.Equal(t, "seeded", token)
}
