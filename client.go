package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HeaderRequestID carries a per request correlation ID
const HeaderRequestID = "X-Request-ID"

// ClientOption customizes a SecureClient
type ClientOption func(*SecureClient)

// WithHTTPClient sets the underlying client. Its transport is wrapped.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *SecureClient) {
		if hc != nil {
			c.base = hc
		}
	}
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *SecureClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUnauthorizedHandler sets the capability run on 401/403
func WithUnauthorizedHandler(h UnauthorizedHandler) ClientOption {
	return func(c *SecureClient) {
		c.onUnauthorized = h
	}
}

// WithClientLogger sets the logger
func WithClientLogger(logger Logger) ClientOption {
	return func(c *SecureClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestIDGenerator overrides the X-Request-ID generator
func WithRequestIDGenerator(gen func() string) ClientOption {
	return func(c *SecureClient) {
		c.requestID = gen
	}
}

// SecureClient calls protected endpoints with the stored bearer token
type SecureClient struct {
	baseURL        string
	store          TokenStore
	base           *http.Client
	timeout        time.Duration
	onUnauthorized UnauthorizedHandler
	logger         Logger
	requestID      func() string
	httpClient     *http.Client
}

// NewSecureClient creates a client for baseURL reading tokens from store
func NewSecureClient(baseURL string, store TokenStore, opts ...ClientOption) *SecureClient {
	c := &SecureClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		store:     store,
		timeout:   30 * time.Second,
		logger:    defLogger{},
		requestID: func() string { return uuid.NewString() },
	}

	for _, opt := range opts {
		opt(c)
	}

	base := c.base
	if base == nil {
		base = &http.Client{}
	}

	next := base.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	hc := *base
	hc.Transport = &bearerTransport{client: c, next: next}
	if hc.Timeout == 0 {
		hc.Timeout = c.timeout
	}
	c.httpClient = &hc

	return c
}

// HTTPClient returns the wrapped client, useful for other SDKs
func (c *SecureClient) HTTPClient() *http.Client {
	return c.httpClient
}

// BaseURL returns the API base URL
func (c *SecureClient) BaseURL() string {
	return c.baseURL
}

// Do sends req. Responses pass through unchanged; a 401/403 additionally
// runs the unauthorized handler before returning.
func (c *SecureClient) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// DoJSON sends body as JSON to path and decodes a 2xx answer into out.
// Non-2xx answers become service errors, see NewServiceError.
func (c *SecureClient) DoJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}

	return DecodeResponse(resp, out)
}

// DecodeResponse closes resp.Body, maps non-2xx answers to service errors
// and decodes 2xx JSON into out when out is not nil.
func DecodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return NewServiceError(resp.StatusCode, errorMessage(raw))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func errorMessage(raw []byte) string {
	payload := errorPayload{}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return ""
}

type bearerTransport struct {
	client *SecureClient
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c := t.client

	// RoundTrippers must not mutate the caller's request
	out := req.Clone(req.Context())

	if c.store != nil {
		if token, err := c.store.Read(); err == nil && token != "" {
			out.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if c.requestID != nil && out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, c.requestID())
	}

	resp, err := t.next.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Info("Authorization failure %d on %s %s", resp.StatusCode, req.Method, req.URL.Path)
		if c.onUnauthorized != nil {
			c.onUnauthorized(req.Context(), resp.StatusCode)
		} else if c.store != nil {
			// no capability wired, at least drop the rejected token
			_ = c.store.Clear()
		}
	}

	return resp, nil
}
