package csrf

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSecureKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

func newApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(New(cfg))
	app.Get("/form", func(c *fiber.Ctx) error {
		return c.SendString(TokenFromContext(c))
	})
	app.Post("/form", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

// fetchToken performs a GET and returns the token and the binding cookie
func fetchToken(t *testing.T, app *fiber.App) (string, *http.Cookie) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/form", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var binding *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == DefaultCookieName {
			binding = c
		}
	}
	require.NotNil(t, binding)

	return string(raw), binding
}

func postForm(app *fiber.App, token string, binding *http.Cookie) (*http.Response, error) {
	form := url.Values{}
	if token != "" {
		form.Set(DefaultFormFieldName, token)
	}
	req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	if binding != nil {
		req.AddCookie(&http.Cookie{Name: binding.Name, Value: binding.Value})
	}
	return app.Test(req)
}

func TestStatelessTokenValidationSuccess(t *testing.T) {
	app := newApp(Config{SecureKey: newTestSecureKey()})

	token, binding := fetchToken(t, app)
	require.NotEmpty(t, token)

	resp, err := postForm(app, token, binding)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTokenAcceptedFromHeader(t *testing.T) {
	app := newApp(Config{SecureKey: newTestSecureKey()})
	token, binding := fetchToken(t, app)

	req := httptest.NewRequest(http.MethodPost, "/form", nil)
	req.Header.Set(DefaultHeaderName, token)
	req.AddCookie(&http.Cookie{Name: binding.Name, Value: binding.Value})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatelessTokenValidationMismatch(t *testing.T) {
	app := newApp(Config{SecureKey: newTestSecureKey()})
	_, binding := fetchToken(t, app)

	resp, err := postForm(app, "tampered", binding)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestTokenMissing(t *testing.T) {
	app := newApp(Config{SecureKey: newTestSecureKey()})
	_, binding := fetchToken(t, app)

	resp, err := postForm(app, "", binding)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenBoundToBrowser(t *testing.T) {
	app := newApp(Config{SecureKey: newTestSecureKey()})
	token, _ := fetchToken(t, app)
	_, other := fetchToken(t, app)

	resp, err := postForm(app, token, other)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = postForm(app, token, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStatelessTokenExpiration(t *testing.T) {
	cfg := configDefault(Config{SecureKey: newTestSecureKey(), Expiration: time.Minute})
	binding := strings.Repeat("ab", cfg.TokenLength)

	token, err := generateToken(cfg, binding, time.Now().Add(-2*time.Minute))
	require.NoError(t, err)

	var captured error
	cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
		captured = err
		return c.SendStatus(fiber.StatusForbidden)
	}

	app := fiber.New()
	app.Use(New(cfg))
	app.Post("/form", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := postForm(app, token, &http.Cookie{Name: DefaultCookieName, Value: binding})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.ErrorIs(t, captured, ErrTokenExpired)
}

func TestFilterSkipsValidation(t *testing.T) {
	app := newApp(Config{
		SecureKey: newTestSecureKey(),
		Filter:    func(c *fiber.Ctx) bool { return c.Path() == "/form" },
	})

	resp, err := postForm(app, "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestShortSecureKeyPanics(t *testing.T) {
	require.Panics(t, func() {
		New(Config{SecureKey: []byte("short")})
	})
}
