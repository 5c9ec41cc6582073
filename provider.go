package auth

import (
	"context"
	"errors"
	"sync"
)

// SessionState is the lifecycle state of a SessionProvider
type SessionState int

const (
	StateInitializing SessionState = iota
	StateAnonymous
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a point in time copy of the session
type Snapshot struct {
	State    SessionState `json:"state"`
	Identity *Identity    `json:"identity,omitempty"`
	Profile  *UserProfile `json:"profile,omitempty"`
	Loading  bool         `json:"loading"`
}

// Authenticated reports whether the snapshot carries an identity
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Identity != nil
}

// ProviderOption customizes a SessionProvider
type ProviderOption func(*SessionProvider)

// WithProviderLogger sets the logger
func WithProviderLogger(logger Logger) ProviderOption {
	return func(p *SessionProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTokenDecoder replaces DecodeToken, useful for tests
func WithTokenDecoder(decode func(string) (Identity, error)) ProviderOption {
	return func(p *SessionProvider) {
		if decode != nil {
			p.decode = decode
		}
	}
}

var _ SessionReader = &SessionProvider{}

// SessionProvider owns the in-memory identity. It is the only writer of the
// identity and, with SecureClient, the only component touching the store.
type SessionProvider struct {
	mu         sync.RWMutex
	once       sync.Once
	service    AuthService
	store      TokenStore
	logger     Logger
	decode     func(string) (Identity, error)
	identity   *Identity
	profile    *UserProfile
	loading    bool
	generation uint64
	listeners  map[int]func(Snapshot)
	nextID     int
}

// NewSessionProvider creates a provider in the Initializing state. Call
// Init before serving UI.
func NewSessionProvider(service AuthService, store TokenStore, opts ...ProviderOption) *SessionProvider {
	if store == nil {
		store = NewMemoryTokenStore()
	}

	p := &SessionProvider{
		service:   service,
		store:     store,
		logger:    defLogger{},
		decode:    DecodeToken,
		loading:   true,
		listeners: map[int]func(Snapshot){},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Init rehydrates the identity from the token store. It runs once per
// provider; later calls are no-ops.
func (p *SessionProvider) Init() {
	p.once.Do(p.init)
}

func (p *SessionProvider) init() {
	p.mu.Lock()

	token, err := p.store.Read()
	switch {
	case err == nil:
		identity, decErr := p.decode(token)
		if decErr != nil {
			p.logger.Error("Token decoding failed: %s", decErr)
			if clearErr := p.store.Clear(); clearErr != nil {
				p.logger.Error("Failed to clear undecodable token: %s", clearErr)
			}
			p.identity = nil
		} else {
			p.identity = &identity
		}
	case errors.Is(err, ErrTokenNotFound):
		p.identity = nil
	default:
		p.logger.Error("Failed to read token store: %s", err)
		p.identity = nil
	}

	p.loading = false
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(snap)
}

// Register creates an account through the auth service
func (p *SessionProvider) Register(ctx context.Context, payload RegistrationRequest) (*AuthResponse, error) {
	return p.authenticate(ctx, func(svc AuthService) (*AuthResponse, error) {
		return svc.Register(ctx, payload)
	})
}

// SignIn logs in through the auth service
func (p *SessionProvider) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	return p.authenticate(ctx, func(svc AuthService) (*AuthResponse, error) {
		return svc.Login(ctx, email, password)
	})
}

func (p *SessionProvider) authenticate(ctx context.Context, call func(AuthService) (*AuthResponse, error)) (*AuthResponse, error) {
	p.Init()

	if p.service == nil {
		return nil, ErrMissingService
	}

	p.mu.RLock()
	generation := p.generation
	p.mu.RUnlock()

	res, err := call(p.service)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.generation != generation {
		p.mu.Unlock()
		p.logger.Info("Discarding authentication result, session was signed out while in flight")
		return nil, ErrSessionSuperseded
	}

	// identity only follows a persisted token
	if res.HasToken() {
		if err := p.store.Save(res.Token); err != nil {
			p.mu.Unlock()
			return nil, err
		}

		if res.User != nil {
			identity := res.User.Identity()
			profile := *res.User
			p.identity = &identity
			p.profile = &profile
		} else if identity, decErr := p.decode(res.Token); decErr == nil {
			p.identity = &identity
			p.profile = nil
		} else {
			p.logger.Error("Token decoding failed: %s", decErr)
			p.identity = nil
			p.profile = nil
		}
	}

	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(snap)

	return res, nil
}

// SignOut clears the token and the identity. It always succeeds.
func (p *SessionProvider) SignOut() error {
	p.Init()

	p.mu.Lock()
	if err := p.store.Clear(); err != nil {
		p.logger.Error("Failed to clear token store: %s", err)
	}
	wasAuthenticated := p.identity != nil
	p.identity = nil
	p.profile = nil
	p.generation++
	snap := p.snapshotLocked()
	p.mu.Unlock()

	if wasAuthenticated {
		p.notify(snap)
	}

	return nil
}

// UnauthorizedHandler returns the forced logout capability for SecureClient:
// reset the session, then navigate to the login entry point.
func (p *SessionProvider) UnauthorizedHandler(nav Navigator, loginPath string) UnauthorizedHandler {
	return func(ctx context.Context, status int) {
		p.logger.Info("Protected call rejected with status %d, signing out", status)
		_ = p.SignOut()
		if nav != nil {
			nav.Navigate(loginPath, "")
		}
	}
}

// Subscribe registers fn for state changes and returns the unsubscribe func
func (p *SessionProvider) Subscribe(fn func(Snapshot)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *SessionProvider) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

func (p *SessionProvider) State() SessionState {
	return p.Snapshot().State
}

func (p *SessionProvider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// Identity returns a copy of the current identity
func (p *SessionProvider) Identity() (Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.identity == nil {
		return Identity{}, false
	}
	return *p.identity, true
}

// Profile returns the full user object from the last login, if any
func (p *SessionProvider) Profile() (UserProfile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return UserProfile{}, false
	}
	return *p.profile, true
}

func (p *SessionProvider) snapshotLocked() Snapshot {
	snap := Snapshot{Loading: p.loading}

	switch {
	case p.loading:
		snap.State = StateInitializing
	case p.identity != nil:
		snap.State = StateAuthenticated
		identity := *p.identity
		snap.Identity = &identity
		if p.profile != nil {
			profile := *p.profile
			snap.Profile = &profile
		}
	default:
		snap.State = StateAnonymous
	}

	return snap
}

func (p *SessionProvider) notify(snap Snapshot) {
	p.mu.RLock()
	listeners := make([]func(Snapshot), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
