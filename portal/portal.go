// Package portal serves the donor web UI on top of a process wide session.
// It is meant to run on a loopback address for a single operator.
package portal

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/django/v3"
	auth "github.com/goliatone/go-donor-auth"
	"github.com/goliatone/go-donor-auth/api"
	"github.com/goliatone/go-donor-auth/config"
	"github.com/goliatone/go-donor-auth/imagehost"
	"github.com/goliatone/go-donor-auth/locations"
	"github.com/goliatone/go-donor-auth/middleware/csrf"
	"github.com/goliatone/go-donor-auth/middleware/sessionguard"
)

//go:embed views
var viewsFS embed.FS

// Deps are the collaborators the portal drives
type Deps struct {
	Session   *auth.SessionProvider
	Requests  *api.RequestsClient
	Uploader  *imagehost.Uploader
	Locations *locations.Directory
}

type Option func(*Portal)

func WithLogger(l auth.Logger) Option {
	return func(p *Portal) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithAccessLog sets the destination of the HTTP access log, nil disables it
func WithAccessLog(w io.Writer) Option {
	return func(p *Portal) {
		p.accessLog = w
	}
}

// WithCSRFKey sets the key signing form tokens, at least 32 bytes. A random
// key is generated when unset.
func WithCSRFKey(key []byte) Option {
	return func(p *Portal) {
		p.csrfKey = key
	}
}

type Portal struct {
	cfg        config.Portal
	deps       Deps
	guard      *auth.RouteGuard
	logger     auth.Logger
	accessLog  io.Writer
	csrfKey    []byte
	controller *Controller
}

// New validates deps and builds the portal
func New(cfg config.Portal, deps Deps, opts ...Option) (*Portal, error) {
	if deps.Session == nil {
		return nil, errors.New("portal: session provider is required")
	}
	if deps.Requests == nil {
		return nil, errors.New("portal: requests client is required")
	}

	if deps.Locations == nil {
		dir, err := locations.Default()
		if err != nil {
			return nil, err
		}
		deps.Locations = dir
	}

	if deps.Uploader == nil {
		deps.Uploader = imagehost.New("")
	}

	if cfg.LoginPath == "" {
		cfg.LoginPath = auth.DefaultLoginPath
	}
	if cfg.DefaultRedirect == "" {
		cfg.DefaultRedirect = "/dashboard"
	}
	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = sessionguard.DefaultRejectedRouteKey
	}

	guard := auth.NewRouteGuard(deps.Session)
	guard.LoginPath = cfg.LoginPath

	p := &Portal{
		cfg:       cfg,
		deps:      deps,
		guard:     guard,
		logger:    auth.DefaultLogger(),
		accessLog: os.Stdout,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.controller = NewController(p)

	return p, nil
}

// App builds the fiber application with every route registered
func (p *Portal) App() (*fiber.App, error) {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, err
	}

	engine := django.NewFileSystem(http.FS(views), ".html")

	app := fiber.New(fiber.Config{
		Views:                 engine,
		ViewsLayout:           "layouts/main",
		PassLocalsToViews:     true,
		StrictRouting:         false,
		DisableStartupMessage: true,
		ErrorHandler:          p.controller.ErrorHandler,
	})

	app.Use(recover.New())
	if p.accessLog != nil {
		app.Use(logger.New(logger.Config{Output: p.accessLog}))
	}

	app.Use(csrf.New(csrf.Config{
		SecureKey: p.csrfKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			p.logger.Error("rejected form post to %s: %s", c.Path(), err)
			return fiber.NewError(fiber.StatusForbidden, "The form has expired, please reload the page and try again.")
		},
	}))

	p.controller.Register(app)

	return app, nil
}

// Listen serves the portal until ctx is done. The session is initialized in
// the background so early requests see the loading placeholder.
func (p *Portal) Listen(ctx context.Context) error {
	app, err := p.App()
	if err != nil {
		return err
	}

	go p.deps.Session.Init()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(p.cfg.Listen)
	}()

	p.logger.Info("Portal listening on http://%s", p.cfg.Listen)

	select {
	case <-ctx.Done():
		return app.Shutdown()
	case err := <-errCh:
		return err
	}
}
