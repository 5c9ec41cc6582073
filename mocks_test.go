package auth_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"

	auth "github.com/goliatone/go-donor-auth"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthService implements auth.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, payload auth.RegistrationRequest) (*auth.AuthResponse, error) {
	args := m.Called(ctx, payload)
	res, _ := args.Get(0).(*auth.AuthResponse)
	return res, args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*auth.AuthResponse, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(*auth.AuthResponse)
	return res, args.Error(1)
}

// failingStore errors on every call
type failingStore struct {
	err error
}

func (s failingStore) Save(string) error      { return s.err }
func (s failingStore) Read() (string, error) { return "", s.err }
func (s failingStore) Clear() error          { return s.err }

// recordingNavigator remembers navigation requests
type recordingNavigator struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNavigator) Navigate(to string, returnTo string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, to)
}

func (n *recordingNavigator) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(claims)
	require.NoError(t, err)
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(raw) + ".sig"
}
