package authenticator

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

func (p *LinkedIn) oauth2Config(callbackURL, scope string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.cfg.APIKey,
		ClientSecret: p.cfg.APISecret,
		RedirectURL:  callbackURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.opts.Endpoints.OAuth2AuthorizeURL,
			TokenURL:  p.opts.Endpoints.OAuth2TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: splitScope(scope),
	}
}

// authorizeOAuth2 redirects straight to the authorization endpoint with the
// site's API key; no round trip is needed
func (p *LinkedIn) authorizeOAuth2(callbackURL, scope string) (*Authorization, error) {
	state, err := generateRandomState()
	if err != nil {
		return nil, err
	}

	return &Authorization{
		RedirectURL: p.oauth2Config(callbackURL, scope).AuthCodeURL(state),
		Pending: &PendingToken{
			HandshakeID: uuid.NewString(),
			Variant:     VariantOAuth2,
			State:       state,
			IssuedAt:    time.Now(),
		},
	}, nil
}

// exchangeOAuth2 exchanges an authorization code for a bearer token
func (p *LinkedIn) exchangeOAuth2(ctx context.Context, pending *PendingToken, callback url.Values, callbackURL string) (*http.Client, error) {
	code := callback.Get("code")
	if code == "" {
		return nil, protocolError("access_token", errors.New("callback has no code"))
	}
	if pending.State == "" || callback.Get("state") != pending.State {
		return nil, protocolError("access_token", errors.New("callback state does not match the pending handshake"))
	}

	config := p.oauth2Config(callbackURL, "")
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, classify("access_token", err)
	}
	if token.AccessToken == "" {
		return nil, protocolError("access_token", errors.New("token response has no access_token"))
	}

	client := config.Client(ctx, token)
	client.Timeout = p.opts.Timeout
	return client, nil
}

// generateRandomState generates a random state value for CSRF protection
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func splitScope(scope string) []string {
	var scopes []string
	for _, s := range strings.FieldsFunc(scope, func(r rune) bool { return r == ',' || r == ' ' }) {
		scopes = append(scopes, s)
	}
	return scopes
}
