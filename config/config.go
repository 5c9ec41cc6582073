package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	auth "github.com/goliatone/go-donor-auth"
	"gopkg.in/yaml.v3"
)

// Environment overrides
const (
	EnvAPIBaseURL   = "DONOR_API_BASE_URL"
	EnvImageHostKey = "DONOR_IMAGEBB_API_KEY"
	EnvSessionStore = "DONOR_SESSION_STORE"
)

// Session store kinds
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	API       API       `yaml:"api"`
	Session   Session   `yaml:"session"`
	Portal    Portal    `yaml:"portal"`
	ImageHost ImageHost `yaml:"imagehost"`
}

type API struct {
	BaseURL           string `yaml:"base_url"`
	TimeoutExpression string `yaml:"timeout"`
}

type Session struct {
	TokenKey string `yaml:"token_key"`
	Store    string `yaml:"store"`
	FilePath string `yaml:"file_path"`
	DSN      string `yaml:"dsn"`
}

type Portal struct {
	Listen           string `yaml:"listen"`
	LoginPath        string `yaml:"login_path"`
	DefaultRedirect  string `yaml:"default_redirect"`
	RejectedRouteKey string `yaml:"rejected_route_key"`
	Debug            bool   `yaml:"debug"`
}

type ImageHost struct {
	APIKey        string `yaml:"api_key"`
	Endpoint      string `yaml:"endpoint"`
	DefaultAvatar string `yaml:"default_avatar"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// yaml does not override fields missing from the document, so defaults go first
func (c *Config) setDefaults() {
	c.API.BaseURL = "http://localhost:5000"
	c.API.TimeoutExpression = "30s"

	c.Session.TokenKey = auth.DefaultTokenKey
	c.Session.Store = StoreFile
	c.Session.DSN = "file:donor-session.db"

	c.Portal.Listen = "127.0.0.1:5173"
	c.Portal.LoginPath = auth.DefaultLoginPath
	c.Portal.DefaultRedirect = "/dashboard"
	c.Portal.RejectedRouteKey = "rejected_route"

	c.ImageHost.Endpoint = "https://api.imgbb.com/1/upload"
	c.ImageHost.DefaultAvatar = auth.DefaultAvatar
}

// Load reads path when it exists, applies env overrides and validates.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := c.decode(bytes.NewReader(raw)); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c.applyEnv(os.LookupEnv)

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Parse decodes a YAML document over the defaults without env overrides
func Parse(r io.Reader) (*Config, error) {
	c := Default()
	if err := c.decode(r); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIBaseURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvImageHostKey); ok && v != "" {
		c.ImageHost.APIKey = v
	}
	if v, ok := lookup(EnvSessionStore); ok && v != "" {
		c.Session.Store = v
	}
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.Errors{
		"api":       c.API.Validate(),
		"session":   c.Session.Validate(),
		"portal":    c.Portal.Validate(),
		"imagehost": c.ImageHost.Validate(),
	}.Filter()
}

func (a API) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.BaseURL, validation.Required, is.URL),
		validation.Field(&a.TimeoutExpression, validation.By(validDuration)),
	)
}

func (s Session) Validate() error {
	dsnRules := []validation.Rule{}
	if s.Store == StoreSQLite {
		dsnRules = append(dsnRules, validation.Required)
	}

	return validation.ValidateStruct(&s,
		validation.Field(&s.TokenKey, validation.Required),
		validation.Field(&s.Store, validation.Required, validation.In(StoreFile, StoreSQLite, StoreMemory)),
		validation.Field(&s.DSN, dsnRules...),
	)
}

func (p Portal) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Listen, validation.Required),
		validation.Field(&p.LoginPath, validation.Required, validation.By(localPath)),
		validation.Field(&p.DefaultRedirect, validation.Required, validation.By(localPath)),
	)
}

func (i ImageHost) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Endpoint, is.URL),
		validation.Field(&i.DefaultAvatar, is.URL),
	)
}

// GetTimeout returns the parsed API timeout
func (a API) GetTimeout() time.Duration {
	d, err := time.ParseDuration(a.TimeoutExpression)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func validDuration(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return errors.New("must be a valid duration")
	}
	return nil
}

func localPath(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if auth.SafeReturnPath(s, "") != s {
		return errors.New("must be a local absolute path")
	}
	return nil
}
