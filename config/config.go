package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/blogem/linkedin-login/authenticator"
)

// Config is the process wide configuration. Per-site LinkedIn credentials
// live in the database, not here.
type Config struct {
	Addr         string `env:"ADDR" envDefault:":8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"linkedin_login.db"`
	// PublicURL overrides the scheme and host used to build callback URLs.
	// Empty means derive them from the request.
	PublicURL string `env:"PUBLIC_URL"`

	LinkedIn LinkedIn `envPrefix:"LINKEDIN_"`
	Session  Session  `envPrefix:"SESSION_"`

	UseHTTPS     bool          `env:"USE_HTTPS" envDefault:"false"`
	LogEnv       string        `env:"LOG_ENV" envDefault:"dev"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	SiteCacheTTL time.Duration `env:"SITE_CACHE_TTL" envDefault:"1m"`
}

// LinkedIn configures the handshake shared by every site
type LinkedIn struct {
	Handshake  string        `env:"HANDSHAKE" envDefault:"oauth1"`
	Scope      string        `env:"SCOPE" envDefault:"r_basicprofile,r_emailaddress"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
	PendingTTL time.Duration `env:"PENDING_TTL" envDefault:"10m"`
}

// Session configures the session cookie
type Session struct {
	Cookie string `env:"COOKIE" envDefault:"linkedin_login_session"`
	// TTL is in seconds, as the session provider expects
	TTL int64 `env:"TTL" envDefault:"3600"`
}

// Load reads .env files when present and parses the environment
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	if _, err := c.Variant(); err != nil {
		return err
	}
	if c.LinkedIn.Timeout <= 0 {
		return errors.New("LINKEDIN_TIMEOUT must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.PublicURL != "" && !strings.HasPrefix(c.PublicURL, "http://") && !strings.HasPrefix(c.PublicURL, "https://") {
		return fmt.Errorf("PUBLIC_URL must be an http(s) URL, got %q", c.PublicURL)
	}
	return nil
}

// Variant returns the configured handshake variant
func (c *Config) Variant() (authenticator.Variant, error) {
	switch v := authenticator.Variant(strings.ToLower(strings.TrimSpace(c.LinkedIn.Handshake))); v {
	case authenticator.VariantOAuth1, authenticator.VariantOAuth2:
		return v, nil
	default:
		return "", fmt.Errorf("LINKEDIN_HANDSHAKE must be %q or %q, got %q",
			authenticator.VariantOAuth1, authenticator.VariantOAuth2, c.LinkedIn.Handshake)
	}
}
