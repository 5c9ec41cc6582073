package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	auth "github.com/goliatone/go-donor-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Authorization string
	RequestID     string
	Method        string
	Path          string
	Body          string
}

func newCaptureServer(t *testing.T, status int, body string) (*httptest.Server, func() []capturedRequest) {
	t.Helper()

	var mu sync.Mutex
	var captured []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		captured = append(captured, capturedRequest{
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get(auth.HeaderRequestID),
			Method:        r.Method,
			Path:          r.URL.RequestURI(),
			Body:          string(raw),
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), captured...)
	}
}

func TestSecureClient_AttachesBearerToken(t *testing.T) {
	srv, requests := newCaptureServer(t, http.StatusOK, `{"ok":true}`)
	store := auth.NewMemoryTokenStore("T")

	client := auth.NewSecureClient(srv.URL, store,
		auth.WithClientLogger(auth.NopLogger{}),
		auth.WithRequestIDGenerator(func() string { return "req-1" }),
	)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/requests?email=a%40b.com", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, "Bearer T", got[0].Authorization)
	assert.Equal(t, "req-1", got[0].RequestID)
	assert.Equal(t, "/requests?email=a%40b.com", got[0].Path)

	assert.Empty(t, req.Header.Get("Authorization"), "caller request must not be mutated")
}

func TestSecureClient_NoTokenNoHeader(t *testing.T) {
	srv, requests := newCaptureServer(t, http.StatusOK, `{}`)
	client := auth.NewSecureClient(srv.URL, auth.NewMemoryTokenStore(), auth.WithClientLogger(auth.NopLogger{}))

	require.NoError(t, client.DoJSON(context.Background(), http.MethodGet, "/requests", nil, nil))

	got := requests()
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Authorization)
	assert.NotEmpty(t, got[0].RequestID)
}

func TestSecureClient_ForbiddenForcesLogout(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden, `{"message":"forbidden access"}`)
	store := auth.NewMemoryTokenStore(scenarioToken)

	p := newProvider(nil, store)
	p.Init()
	require.Equal(t, auth.StateAuthenticated, p.State())

	nav := &recordingNavigator{}
	client := auth.NewSecureClient(srv.URL, store,
		auth.WithClientLogger(auth.NopLogger{}),
		auth.WithUnauthorizedHandler(p.UnauthorizedHandler(nav, auth.DefaultLoginPath)),
	)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/requests", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, err = store.Read()
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
	assert.Equal(t, auth.StateAnonymous, p.State())
	assert.Equal(t, []string{"/login"}, nav.Calls())
}

func TestSecureClient_UnauthorizedWithoutHandlerClearsStore(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusUnauthorized, `{"error":"token expired"}`)
	store := auth.NewMemoryTokenStore("T")
	client := auth.NewSecureClient(srv.URL, store, auth.WithClientLogger(auth.NopLogger{}))

	err := client.DoJSON(context.Background(), http.MethodGet, "/requests", nil, nil)
	require.Error(t, err)
	assert.True(t, auth.IsAuthorizationFailure(err))
	assert.Equal(t, "token expired", auth.MessageOr(err, "fallback"))

	_, readErr := store.Read()
	assert.ErrorIs(t, readErr, auth.ErrTokenNotFound)
}

func TestSecureClient_ServerErrorPassesThrough(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusInternalServerError, `{"message":"boom"}`)
	store := auth.NewMemoryTokenStore("T")

	called := false
	client := auth.NewSecureClient(srv.URL, store,
		auth.WithClientLogger(auth.NopLogger{}),
		auth.WithUnauthorizedHandler(func(context.Context, int) { called = true }),
	)

	err := client.DoJSON(context.Background(), http.MethodPost, "/requests", map[string]string{"a": "b"}, nil)
	require.Error(t, err)
	assert.True(t, auth.IsStatus(err, http.StatusInternalServerError))
	assert.False(t, called)

	token, readErr := store.Read()
	require.NoError(t, readErr)
	assert.Equal(t, "T", token)
}

func TestSecureClient_DoJSON(t *testing.T) {
	srv, requests := newCaptureServer(t, http.StatusCreated, `{"insertedId":"abc123"}`)
	client := auth.NewSecureClient(srv.URL+"/", auth.NewMemoryTokenStore("T"), auth.WithClientLogger(auth.NopLogger{}))

	var out struct {
		InsertedID string `json:"insertedId"`
	}
	err := client.DoJSON(context.Background(), http.MethodPost, "/requests", map[string]string{"bloodGroup": "A+"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "abc123", out.InsertedID)

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPost, got[0].Method)
	assert.Equal(t, "/requests", got[0].Path)

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(got[0].Body), &body))
	assert.Equal(t, "A+", body["bloodGroup"])
}

func TestSecureClient_BaseURLTrimmed(t *testing.T) {
	client := auth.NewSecureClient("http://localhost:5000/", nil)
	assert.Equal(t, "http://localhost:5000", client.BaseURL())
	assert.NotNil(t, client.HTTPClient())
}
