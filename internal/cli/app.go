package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	auth "github.com/goliatone/go-donor-auth"
	"github.com/goliatone/go-donor-auth/api"
	"github.com/goliatone/go-donor-auth/config"
	"github.com/goliatone/go-donor-auth/imagehost"
	"github.com/goliatone/go-donor-auth/locations"
	"github.com/goliatone/go-donor-auth/repository"
	"github.com/goliatone/go-donor-auth/store"
	goerrors "github.com/goliatone/go-errors"
)

// Routes the commands are guarded as. They mirror the portal pages.
const (
	routeProfile       = "/dashboard/profile"
	routeCreateRequest = "/dashboard/create-request"
	routeMyRequests    = "/dashboard/my-requests"
)

// ErrLoginRequired is returned by protected commands run without a session
// when no terminal is available to log in.
var ErrLoginRequired = auth.ErrUnauthenticated

// ErrSessionExpired is returned when the backend rejected the stored token
var ErrSessionExpired = goerrors.New("session expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("SESSION_EXPIRED")

type Option func(*options)

type options struct {
	cfg      *config.Config
	store    auth.TokenStore
	prompter Prompter
	out      io.Writer
	errOut   io.Writer
	closers  []func() error
}

// WithConfig skips loading the configuration file
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithTokenStore overrides the store selected by the configuration
func WithTokenStore(s auth.TokenStore) Option {
	return func(o *options) {
		o.store = s
	}
}

func WithPrompter(p Prompter) Option {
	return func(o *options) {
		o.prompter = p
	}
}

func WithOutput(out, errOut io.Writer) Option {
	return func(o *options) {
		o.out = out
		o.errOut = errOut
	}
}

// WithCloser registers fn to run once the command finished, whether it
// failed or not.
func WithCloser(fn func() error) Option {
	return func(o *options) {
		o.closers = append(o.closers, fn)
	}
}

// App wires the session lifecycle for a single command invocation
type App struct {
	Config    *config.Config
	Session   *auth.SessionProvider
	Guard     *auth.RouteGuard
	Requests  *api.RequestsClient
	Uploader  *imagehost.Uploader
	Locations *locations.Directory
	Logger    auth.Logger

	prompter Prompter
	out      io.Writer
	errOut   io.Writer
	closers  []func() error
}

// NewApp builds the collaborators described by cfg
func NewApp(ctx context.Context, cfg *config.Config, logger auth.Logger, opts ...Option) (*App, error) {
	o := &options{
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	if logger == nil {
		logger = auth.NopLogger{}
	}

	dir, err := locations.Default()
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Locations: dir,
		Logger:    logger,
		prompter:  o.prompter,
		out:       o.out,
		errOut:    o.errOut,
		closers:   append([]func() error{}, o.closers...),
	}

	if a.prompter == nil {
		a.prompter = NewTerminalPrompter()
	}

	tokens := o.store
	if tokens == nil {
		tokens, err = a.openStore(ctx, cfg.Session)
		if err != nil {
			return nil, err
		}
	}

	service := api.NewAuthClient(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.API.GetTimeout()}),
		api.WithLogger(logger),
	)
	a.Session = auth.NewSessionProvider(service, tokens, auth.WithProviderLogger(logger))

	a.Guard = auth.NewRouteGuard(a.Session)
	a.Guard.LoginPath = cfg.Portal.LoginPath

	secure := auth.NewSecureClient(cfg.API.BaseURL, tokens,
		auth.WithTimeout(cfg.API.GetTimeout()),
		auth.WithUnauthorizedHandler(a.Session.UnauthorizedHandler(a, cfg.Portal.LoginPath)),
		auth.WithClientLogger(logger),
	)
	a.Requests = api.NewRequestsClient(secure)

	a.Uploader = imagehost.New(cfg.ImageHost.APIKey,
		imagehost.WithEndpoint(cfg.ImageHost.Endpoint),
		imagehost.WithDefaultAvatar(cfg.ImageHost.DefaultAvatar),
		imagehost.WithLogger(logger),
	)

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Session) (auth.TokenStore, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return auth.NewMemoryTokenStore(), nil
	case config.StoreSQLite:
		db, err := repository.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return repository.NewSlotStore(db, cfg.TokenKey), nil
	default:
		path := cfg.FilePath
		if path == "" {
			p, err := store.DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return store.NewFileStore(path, cfg.TokenKey), nil
	}
}

// Close releases the resources opened for the store
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Navigate is called after the backend rejected the stored token
func (a *App) Navigate(to string, returnTo string) {
	fmt.Fprintln(a.errOut, warnStyle.Render("Your session is no longer valid, you have been logged out."))
}

// requireIdentity resolves the identity for route. Anonymous users on a
// terminal log in interactively and the command resumes.
func (a *App) requireIdentity(ctx context.Context, route string) (auth.Identity, error) {
	a.Session.Init()

	decision := a.Guard.Check(route)
	switch decision.Action {
	case auth.GuardRender:
		return *decision.Identity, nil
	case auth.GuardWait:
		return auth.Identity{}, auth.ErrUnauthenticated
	}

	if !a.prompter.Interactive() {
		return auth.Identity{}, auth.ErrUnauthenticated
	}

	fmt.Fprintln(a.errOut, warnStyle.Render("Login required for "+decision.ReturnTo))

	if err := a.interactiveLogin(ctx, ""); err != nil {
		return auth.Identity{}, err
	}

	decision = a.Guard.Check(route)
	if decision.Action != auth.GuardRender {
		return auth.Identity{}, auth.ErrUnauthenticated
	}

	return *decision.Identity, nil
}

// withSession runs fn for the identity of route. When the backend rejects
// the token mid command the user may log in again and fn runs once more.
func (a *App) withSession(ctx context.Context, route string, fn func(auth.Identity) error) error {
	identity, err := a.requireIdentity(ctx, route)
	if err != nil {
		return err
	}

	err = fn(identity)
	if !auth.IsAuthorizationFailure(err) {
		return err
	}

	if !a.prompter.Interactive() {
		return ErrSessionExpired
	}

	identity, err = a.requireIdentity(ctx, route)
	if err != nil {
		return err
	}

	if err := fn(identity); err != nil {
		if auth.IsAuthorizationFailure(err) {
			return ErrSessionExpired
		}
		return err
	}
	return nil
}

func (a *App) interactiveLogin(ctx context.Context, email string) error {
	req := auth.LoginRequest{Email: email}
	if err := a.prompter.Login(&req); err != nil {
		return err
	}
	return a.signIn(ctx, req)
}

func (a *App) signIn(ctx context.Context, req auth.LoginRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	res, err := a.Session.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return errors.New(auth.MessageOr(err, "Login failed. Invalid email or password."))
	}

	if !res.HasToken() {
		msg := res.Message
		if msg == "" {
			msg = "Login failed. Invalid email or password."
		}
		return errors.New(msg)
	}

	identity, _ := a.Session.Identity()
	fmt.Fprintln(a.out, successStyle.Render("Logged in as "+identity.Email))
	return nil
}

func (a *App) profile(identity auth.Identity) auth.UserProfile {
	if p, ok := a.Session.Profile(); ok && p.Email == identity.Email {
		return p.WithDefaults()
	}
	return auth.ProfileFromIdentity(identity)
}

// resolveDistrict accepts a district ID or a name and returns the district
func (a *App) resolveDistrict(value string) (locations.District, bool) {
	if d, ok := a.Locations.District(value); ok {
		return d, true
	}
	return a.Locations.FindDistrict(value)
}
