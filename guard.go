package auth

import (
	"net/url"
	"strings"
)

// DefaultLoginPath is the login entry point
const DefaultLoginPath = "/login"

// DefaultReturnParam is the query parameter carrying the rejected path
const DefaultReturnParam = "from"

// GuardAction is what a protected view should do
type GuardAction int

const (
	// GuardWait renders a placeholder, the session is still initializing
	GuardWait GuardAction = iota
	// GuardRender admits the protected view
	GuardRender
	// GuardRedirect sends the user to the login entry point
	GuardRedirect
)

func (a GuardAction) String() string {
	switch a {
	case GuardWait:
		return "wait"
	case GuardRender:
		return "render"
	case GuardRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// GuardDecision is the outcome of RouteGuard.Check
type GuardDecision struct {
	Action   GuardAction
	Identity *Identity
	// Location is the login URL including the return parameter
	Location string
	// ReturnTo is the originally requested path
	ReturnTo string
}

// RouteGuard admits protected views only for authenticated sessions
type RouteGuard struct {
	Session     SessionReader
	LoginPath   string
	ReturnParam string
}

// NewRouteGuard creates a guard using the default login path
func NewRouteGuard(session SessionReader) *RouteGuard {
	return &RouteGuard{
		Session:     session,
		LoginPath:   DefaultLoginPath,
		ReturnParam: DefaultReturnParam,
	}
}

// Check decides what to do with a navigation attempt to path
func (g *RouteGuard) Check(path string) GuardDecision {
	snap := g.Session.Snapshot()

	switch snap.State {
	case StateInitializing:
		return GuardDecision{Action: GuardWait}
	case StateAuthenticated:
		return GuardDecision{Action: GuardRender, Identity: snap.Identity}
	}

	return GuardDecision{
		Action:   GuardRedirect,
		Location: g.LoginURL(path),
		ReturnTo: path,
	}
}

// LoginURL builds the login location recording returnTo
func (g *RouteGuard) LoginURL(returnTo string) string {
	loginPath := g.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}

	if returnTo == "" || returnTo == loginPath {
		return loginPath
	}

	param := g.ReturnParam
	if param == "" {
		param = DefaultReturnParam
	}

	q := url.Values{}
	q.Set(param, returnTo)
	return loginPath + "?" + q.Encode()
}

// SafeReturnPath returns from when it is a local absolute path, otherwise
// the fallback. Protocol relative and absolute URLs are rejected.
func SafeReturnPath(from, fallback string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return fallback
	}

	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return fallback
	}

	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}

	return from
}
