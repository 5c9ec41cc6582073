package sessionguard

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-donor-auth"
)

// DefaultRejectedRouteKey is the cookie remembering the rejected path
const DefaultRejectedRouteKey = "rejected_route"

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	// WaitHandler renders the placeholder while the session initializes
	WaitHandler fiber.Handler
	// RedirectHandler sends anonymous users to the login entry point
	RedirectHandler func(*fiber.Ctx, auth.GuardDecision) error
	// ErrorHandler handles authenticated users failing the role checks
	ErrorHandler func(*fiber.Ctx, error) error

	// Guard is required
	Guard *auth.RouteGuard

	// ContextKey is the locals key holding the identity for handlers and templates
	ContextKey       string
	RejectedRouteKey string
	RejectedRouteTTL time.Duration

	// MinimumRole specifies the minimum role level required
	MinimumRole auth.UserRole
	// RejectBlocked denies blocked accounts
	RejectBlocked bool

	// ContextEnricher propagates the identity to the standard Go context
	ContextEnricher func(*fiber.Ctx, auth.Identity)
}

// New guards the routes it is mounted on
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		decision := cfg.Guard.Check(c.OriginalURL())

		switch decision.Action {
		case auth.GuardWait:
			return cfg.WaitHandler(c)
		case auth.GuardRedirect:
			return cfg.RedirectHandler(c, decision)
		}

		identity := *decision.Identity

		if err := authorize(identity, cfg); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, identity)

		if cfg.ContextEnricher != nil {
			cfg.ContextEnricher(c, identity)
		}

		return cfg.SuccessHandler(c)
	}
}

func authorize(identity auth.Identity, cfg Config) error {
	if cfg.RejectBlocked && identity.IsBlocked() {
		return fmt.Errorf("access denied: account %s is blocked", identity.Email)
	}

	if cfg.MinimumRole != "" && !auth.UserRole(identity.Role).IsAtLeast(cfg.MinimumRole) {
		return fmt.Errorf("access denied: minimum role '%s' required", cfg.MinimumRole)
	}

	return nil
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Guard == nil {
		panic("AUTH: session guard configuration: Guard is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "current_user"
	}

	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = DefaultRejectedRouteKey
	}

	if cfg.RejectedRouteTTL == 0 {
		cfg.RejectedRouteTTL = 5 * time.Minute
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.WaitHandler == nil {
		cfg.WaitHandler = func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(fiber.StatusServiceUnavailable).SendString("Loading...")
		}
	}

	if cfg.RedirectHandler == nil {
		key, ttl := cfg.RejectedRouteKey, cfg.RejectedRouteTTL
		cfg.RedirectHandler = func(c *fiber.Ctx, decision auth.GuardDecision) error {
			SetRedirect(c, key, decision.ReturnTo, ttl)
			return c.Redirect(decision.Location, RedirectStatus(c))
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusForbidden).SendString(err.Error())
		}
	}

	if cfg.ContextEnricher == nil {
		cfg.ContextEnricher = func(c *fiber.Ctx, identity auth.Identity) {
			c.SetUserContext(auth.WithIdentity(c.UserContext(), identity))
		}
	}

	return cfg
}

// RedirectStatus is 302 for GET and 303 for anything else, so a rejected
// form post turns into a GET of the login page.
func RedirectStatus(c *fiber.Ctx) int {
	if c.Method() == fiber.MethodGet {
		return fiber.StatusFound
	}
	return fiber.StatusSeeOther
}

// IdentityFromLocals returns the identity stored by the guard
func IdentityFromLocals(c *fiber.Ctx, key ...string) (auth.Identity, bool) {
	k := "current_user"
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	identity, ok := c.Locals(k).(auth.Identity)
	return identity, ok
}

// SetRedirect remembers the rejected path in a short lived cookie
func SetRedirect(c *fiber.Ctx, key, path string, ttl time.Duration) {
	if path == "" {
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     key,
		Value:    path,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// GetRedirect resolves the return path after login. The from query
// parameter wins over the cookie; unsafe values fall back to def. The cookie
// is consumed.
func GetRedirect(c *fiber.Ctx, key, def string) string {
	from := c.Query(auth.DefaultReturnParam)
	if from == "" {
		from = c.FormValue(auth.DefaultReturnParam)
	}
	if from == "" {
		from = c.Cookies(key)
	}

	if c.Cookies(key) != "" {
		c.Cookie(&fiber.Cookie{
			Name:     key,
			Value:    "",
			Path:     "/",
			Expires:  time.Now().Add(-time.Hour * (24 * 365)),
			HTTPOnly: true,
		})
	}

	return auth.SafeReturnPath(from, def)
}
