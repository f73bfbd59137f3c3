package authenticator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/blogem/linkedin-login/models"
)

// LinkedIn implements the Provider interface for one site's API credentials
type LinkedIn struct {
	cfg    models.ProviderConfig
	opts   Options
	client *http.Client
}

// NewLinkedIn creates a LinkedIn provider. It fails with
// KindConfigurationMissing when either credential is empty, before any
// network call can be made.
func NewLinkedIn(cfg models.ProviderConfig, opts Options) (*LinkedIn, error) {
	if !cfg.Available() {
		return nil, &Error{Kind: KindConfigurationMissing, Op: "configure", Err: ErrCredentialsMissing}
	}

	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = LinkedInEndpoints()
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &LinkedIn{
		cfg:  cfg,
		opts: opts,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
	}, nil
}

// Authorize starts the handshake for the given variant
func (p *LinkedIn) Authorize(ctx context.Context, variant Variant, callbackURL, scope string) (*Authorization, error) {
	if scope == "" {
		scope = DefaultScope
	}

	switch variant {
	case VariantOAuth1, "":
		return p.authorizeOAuth1(ctx, callbackURL, scope)
	case VariantOAuth2:
		return p.authorizeOAuth2(callbackURL, scope)
	default:
		return nil, fmt.Errorf("unsupported handshake variant %q", variant)
	}
}

// Exchange trades the callback credentials for an authenticated client
func (p *LinkedIn) Exchange(ctx context.Context, pending *PendingToken, callback url.Values, callbackURL string) (*http.Client, error) {
	if pending == nil {
		return nil, protocolError("exchange", fmt.Errorf("no pending handshake"))
	}

	switch pending.Variant {
	case VariantOAuth1:
		return p.exchangeOAuth1(ctx, pending, callback)
	case VariantOAuth2:
		return p.exchangeOAuth2(ctx, pending, callback, callbackURL)
	default:
		return nil, protocolError("exchange", fmt.Errorf("unsupported handshake variant %q", pending.Variant))
	}
}
