package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key required")
)

// DefaultTokenLength is the default nonce length in bytes
const DefaultTokenLength = 32

// DefaultContextKey is the locals key holding the token for templates
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the default name for the CSRF token form field
const DefaultFormFieldName = "_token"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// DefaultCookieName is the cookie binding tokens to a browser
const DefaultCookieName = "csrf_binding"

type Config struct {
	// Filter skips the middleware when it returns true
	Filter func(*fiber.Ctx) bool

	TokenLength int

	// ContextKey is the locals key for the token. The hidden input and the
	// header name are exposed as csrf_field and csrf_header_name.
	ContextKey    string
	FormFieldName string
	HeaderName    string

	// TokenLookup defines where to look for the token
	// Format: "form:_token,header:X-CSRF-Token"
	TokenLookup string

	// CookieName holds the random browser binding the token is signed for
	CookieName string

	ErrorHandler   func(*fiber.Ctx, error) error
	SuccessHandler fiber.Handler

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	Expiration time.Duration

	// SecureKey signs the tokens, at least 32 bytes. A random key is used
	// when empty, which invalidates tokens on restart.
	SecureKey []byte
}

// TokenExtractor defines a function to extract token from request
type TokenExtractor func(*fiber.Ctx) string

// New creates the CSRF middleware. Tokens are stateless: an HMAC over a
// timestamp, a nonce and the browser binding cookie.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		binding, issued, err := browserBinding(c, cfg)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		token, err := generateToken(cfg, binding, time.Now())
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, token)
		c.Locals("csrf_field", `<input type="hidden" name="`+cfg.FormFieldName+`" value="`+html.EscapeString(token)+`">`)
		c.Locals("csrf_header_name", cfg.HeaderName)

		method := strings.ToUpper(c.Method())
		if slices.Contains(cfg.SafeMethods, method) {
			return cfg.SuccessHandler(c)
		}

		if issued {
			// a fresh binding cannot have signed anything yet
			return cfg.ErrorHandler(c, ErrTokenMismatch)
		}

		if err := validateToken(c, cfg, binding, time.Now()); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		return cfg.SuccessHandler(c)
	}
}

// TokenFromContext returns the token generated for the current request
func TokenFromContext(c *fiber.Ctx, key ...string) string {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	token, _ := c.Locals(k).(string)
	return token
}

func browserBinding(c *fiber.Ctx, cfg Config) (string, bool, error) {
	if v := c.Cookies(cfg.CookieName); v != "" {
		if _, err := hex.DecodeString(v); err == nil && len(v) == cfg.TokenLength*2 {
			return v, false, nil
		}
	}

	binding, err := randomHex(cfg.TokenLength)
	if err != nil {
		return "", false, err
	}

	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    binding,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})

	return binding, true, nil
}

func randomHex(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func generateToken(cfg Config, binding string, now time.Time) (string, error) {
	if len(cfg.SecureKey) == 0 {
		return "", ErrSecureKeyMissing
	}

	nonce, err := randomHex(cfg.TokenLength)
	if err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%d:%s:%s", now.UTC().Unix(), nonce, binding)

	token := payload + ":" + hex.EncodeToString(sign(cfg.SecureKey, payload))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func validateToken(c *fiber.Ctx, cfg Config, binding string, now time.Time) error {
	token := extractToken(c, cfg)
	if token == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestampStr, nonceHex, bindingFromToken, signatureHex := parts[0], parts[1], parts[2], parts[3]

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(nonceHex); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrTokenMismatch
	}

	if !hmac.Equal(signature, sign(cfg.SecureKey, strings.Join(parts[:3], ":"))) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(bindingFromToken), []byte(binding)) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(cfg.Expiration)
		if now.UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}

func extractToken(c *fiber.Ctx, cfg Config) string {
	for _, extractor := range getExtractors(cfg.TokenLookup, cfg.FormFieldName, cfg.HeaderName) {
		if token := extractor(c); token != "" {
			return token
		}
	}
	return ""
}

// getExtractors returns token extractors based on configuration
func getExtractors(tokenLookup, formField, header string) []TokenExtractor {
	if tokenLookup == "" {
		return []TokenExtractor{
			extractorFromForm(formField),
			extractorFromHeader(header),
		}
	}

	var extractors []TokenExtractor
	for _, part := range strings.Split(tokenLookup, ",") {
		part = strings.TrimSpace(part)
		if field, ok := strings.CutPrefix(part, "form:"); ok {
			extractors = append(extractors, extractorFromForm(field))
		} else if name, ok := strings.CutPrefix(part, "header:"); ok {
			extractors = append(extractors, extractorFromHeader(name))
		}
	}

	return extractors
}

func extractorFromForm(fieldName string) TokenExtractor {
	return func(c *fiber.Ctx) string {
		return c.FormValue(fieldName)
	}
}

func extractorFromHeader(headerName string) TokenExtractor {
	return func(c *fiber.Ctx) string {
		return c.Get(headerName)
	}
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions, fiber.MethodTrace}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)

	return cfg
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	switch err {
	case ErrTokenMissing:
		return c.Status(fiber.StatusBadRequest).SendString("CSRF token missing")
	case ErrTokenMismatch:
		return c.Status(fiber.StatusForbidden).SendString("CSRF token mismatch")
	case ErrTokenExpired:
		return c.Status(fiber.StatusForbidden).SendString("CSRF token expired")
	case ErrSecureKeyMissing:
		return c.Status(fiber.StatusInternalServerError).SendString("CSRF configuration error")
	default:
		return c.Status(fiber.StatusInternalServerError).SendString("CSRF validation error")
	}
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}
