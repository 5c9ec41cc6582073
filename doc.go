// Package auth provides the client-side session lifecycle used by the donor
// portal and the donorctl CLI: a single-slot token store, an unverified token
// decoder, a session provider, a route guard and a bearer request client.
//
// Session lifecycle:
//   - SessionProvider is an injected state container. Init rehydrates the
//     identity from the TokenStore exactly once; tokens that cannot be decoded
//     are cleared and the session starts anonymous.
//   - Register and SignIn talk to the external AuthService and persist the
//     returned token. SignOut always succeeds and is idempotent.
//   - A sign-out bumps a generation counter. Sign-in or registration results
//     that resolve after a sign-out are discarded and return
//     ErrSessionSuperseded.
//
// Tokens are never verified here. The backend owns signatures and expiry; the
// decoded claims are only used to decide what to render.
//
// Route guarding:
//   - RouteGuard maps the session state to render, wait or redirect. While the
//     provider is initializing no redirect decision is taken.
//   - middleware/sessionguard adapts the guard to fiber routes.
//
// Authenticated requests:
//   - SecureClient attaches the bearer token to outgoing calls. Authorization
//     failures (401/403) run the UnauthorizedHandler capability, which resets
//     the session and navigates to the login entry point, and the original
//     error still reaches the caller.
package auth
