package authenticator

import (
	"context"
	"encoding/gob"
	"net/http"
	"net/url"
	"time"

	"github.com/blogem/linkedin-login/models"
)

// Variant identifies which of LinkedIn's two legacy handshakes is in use
type Variant string

const (
	// VariantOAuth1 is the 3-legged request token / verifier exchange
	VariantOAuth1 Variant = "oauth1"
	// VariantOAuth2 is the authorization code exchange
	VariantOAuth2 Variant = "oauth2"
)

// DefaultScope is requested when the caller does not ask for anything else
const DefaultScope = "r_basicprofile,r_emailaddress"

// Endpoints holds the LinkedIn URLs used by both handshake variants
type Endpoints struct {
	RequestTokenURL string
	AccessTokenURL  string
	AuthorizeURL    string

	OAuth2AuthorizeURL string
	OAuth2TokenURL     string

	ProfileURL string
	EmailURL   string
}

// LinkedInEndpoints returns LinkedIn's documented legacy endpoints
func LinkedInEndpoints() Endpoints {
	return Endpoints{
		RequestTokenURL:    "https://api.linkedin.com/uas/oauth/requestToken",
		AccessTokenURL:     "https://api.linkedin.com/uas/oauth/accessToken",
		AuthorizeURL:       "https://api.linkedin.com/uas/oauth/authenticate",
		OAuth2AuthorizeURL: "https://www.linkedin.com/uas/oauth2/authorization",
		OAuth2TokenURL:     "https://www.linkedin.com/uas/oauth2/accessToken",
		ProfileURL:         "https://api.linkedin.com/v1/people/~?format=json",
		EmailURL:           "https://api.linkedin.com/v1/people/~/email-address?format=json",
	}
}

// Options configures outbound calls to the provider
type Options struct {
	Endpoints Endpoints
	// Timeout bounds each outbound call
	Timeout time.Duration
	// Transport is the base round tripper; http.DefaultTransport when nil
	Transport http.RoundTripper
}

// DefaultOptions returns options for the real LinkedIn endpoints
func DefaultOptions() Options {
	return Options{
		Endpoints: LinkedInEndpoints(),
		Timeout:   10 * time.Second,
	}
}

// PendingToken bridges the authorize redirect and its callback. It lives in
// the visitor's session and must be removed once a callback consumes it.
type PendingToken struct {
	HandshakeID        string
	Variant            Variant
	RequestToken       string
	RequestTokenSecret string
	State              string
	IssuedAt           time.Time
}

// Expired reports whether the token is older than ttl. A zero ttl never expires.
func (t *PendingToken) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(t.IssuedAt) > ttl
}

// Authorization is the result of starting a handshake
type Authorization struct {
	RedirectURL string
	Pending     *PendingToken
}

// Provider abstracts the provider protocol mechanics of the handshake
type Provider interface {
	// Authorize prepares the redirect to the provider's authorize endpoint
	Authorize(ctx context.Context, variant Variant, callbackURL, scope string) (*Authorization, error)
	// Exchange trades the callback's temporary credential for an access
	// token. The token is only reachable through the returned client.
	Exchange(ctx context.Context, pending *PendingToken, callback url.Values, callbackURL string) (*http.Client, error)
	// Identity fetches the member's profile and email address
	Identity(ctx context.Context, client *http.Client) (*models.IdentityClaim, error)
}

// Factory builds a Provider for one site's credentials
type Factory func(cfg models.ProviderConfig) (Provider, error)

// NewFactory returns a Factory producing LinkedIn providers with opts
func NewFactory(opts Options) Factory {
	return func(cfg models.ProviderConfig) (Provider, error) {
		return NewLinkedIn(cfg, opts)
	}
}

func init() {
	// Session providers other than memory serialize values with gob
	gob.Register(&PendingToken{})
}
