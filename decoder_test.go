package auth_test

import (
	"encoding/base64"
	"testing"

	auth "github.com/goliatone/go-donor-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeToken_Scenario(t *testing.T) {
	token := "a.eyJlbWFpbCI6ImFAYi5jb20iLCJyb2xlIjoiZG9ub3IiLCJzdGF0dXMiOiJhY3RpdmUifQ.c"

	identity, err := auth.DecodeToken(token)
	require.NoError(t, err)

	assert.Equal(t, auth.Identity{
		Email:  "a@b.com",
		Role:   "donor",
		Status: "active",
	}, identity)
}

func TestDecodeToken_IgnoresOtherClaims(t *testing.T) {
	token := makeToken(t, map[string]any{
		"email":  "vol@example.com",
		"role":   "volunteer",
		"status": "blocked",
		"exp":    1,
		"name":   "ignored",
	})

	identity, err := auth.DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "vol@example.com", identity.Email)
	assert.Equal(t, "volunteer", identity.Role)
	assert.Equal(t, "blocked", identity.Status)
	assert.True(t, identity.IsBlocked())
}

func TestDecodeToken_PaddedAndStandardAlphabet(t *testing.T) {
	payload := []byte(`{"email":"pad@example.com","role":"admin","status":"active","n":"??>"}`)

	padded := "h." + base64.URLEncoding.EncodeToString(payload) + ".s"
	identity, err := auth.DecodeToken(padded)
	require.NoError(t, err)
	assert.Equal(t, "pad@example.com", identity.Email)

	std := "h." + base64.StdEncoding.EncodeToString(payload) + ".s"
	identity, err = auth.DecodeToken(std)
	require.NoError(t, err)
	assert.Equal(t, "admin", identity.Role)
}

func TestDecodeToken_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"single segment", "abc"},
		{"two segments", "a.eyJlbWFpbCI6ImFAYi5jb20ifQ"},
		{"four segments", "a.eyJlbWFpbCI6ImFAYi5jb20ifQ.c.d"},
		{"empty payload", "a..c"},
		{"bad base64", "a.!!!notbase64!!!.c"},
		{"not json", "a." + base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".c"},
		{"json array", "a." + base64.RawURLEncoding.EncodeToString([]byte(`["a@b.com"]`)) + ".c"},
		{"no email", "a." + base64.RawURLEncoding.EncodeToString([]byte(`{"role":"donor"}`)) + ".c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := auth.DecodeToken(tt.token)
			require.Error(t, err)
			assert.True(t, auth.IsDecodeError(err))
			assert.Equal(t, auth.Identity{}, identity)
		})
	}
}
