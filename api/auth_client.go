package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	auth "github.com/goliatone/go-donor-auth"
)

// DefaultBaseURL is used when no API base URL is configured
const DefaultBaseURL = "http://localhost:5000"

var _ auth.AuthService = &AuthClient{}

// AuthClient talks to the public auth endpoints. It never sends a bearer
// token.
type AuthClient struct {
	baseURL    string
	httpClient *http.Client
	logger     auth.Logger
}

// AuthClientOption customizes an AuthClient
type AuthClientOption func(*AuthClient)

// WithHTTPClient overrides the default client
func WithHTTPClient(hc *http.Client) AuthClientOption {
	return func(c *AuthClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger auth.Logger) AuthClientOption {
	return func(c *AuthClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewAuthClient creates a client for baseURL, DefaultBaseURL when empty
func NewAuthClient(baseURL string, opts ...AuthClientOption) *AuthClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: auth.NopLogger{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Register creates an account
func (c *AuthClient) Register(ctx context.Context, payload auth.RegistrationRequest) (*auth.AuthResponse, error) {
	var res auth.AuthResponse
	if err := c.post(ctx, "/auth/register", payload, &res); err != nil {
		return nil, fmt.Errorf("api.Register: %w", err)
	}
	return &res, nil
}

// Login exchanges credentials for a token
func (c *AuthClient) Login(ctx context.Context, email, password string) (*auth.AuthResponse, error) {
	payload := auth.LoginRequest{
		Email:    email,
		Password: password,
	}

	var res auth.AuthResponse
	if err := c.post(ctx, "/auth/login", payload, &res); err != nil {
		return nil, fmt.Errorf("api.Login: %w", err)
	}
	return &res, nil
}

func (c *AuthClient) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("POST %s", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}

	return auth.DecodeResponse(resp, out)
}
