package authenticator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/google/uuid"
)

func (p *LinkedIn) oauth1Config(callbackURL string) *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    p.cfg.APIKey,
		ConsumerSecret: p.cfg.APISecret,
		CallbackURL:    callbackURL,
		Endpoint: oauth1.Endpoint{
			RequestTokenURL: p.opts.Endpoints.RequestTokenURL,
			AuthorizeURL:    p.opts.Endpoints.AuthorizeURL,
			AccessTokenURL:  p.opts.Endpoints.AccessTokenURL,
		},
		HTTPClient: p.client,
	}
}

// authorizeOAuth1 obtains a request token and points the visitor at the
// authenticate endpoint with it
func (p *LinkedIn) authorizeOAuth1(ctx context.Context, callbackURL, scope string) (*Authorization, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("request_token", err)
	}

	config := p.oauth1Config(callbackURL)

	// LinkedIn takes the requested scope as a signed query parameter
	requestTokenURL, err := url.Parse(config.Endpoint.RequestTokenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid request token url: %w", err)
	}
	q := requestTokenURL.Query()
	q.Set("scope", scope)
	requestTokenURL.RawQuery = q.Encode()
	config.Endpoint.RequestTokenURL = requestTokenURL.String()

	requestToken, requestSecret, err := config.RequestToken()
	if err != nil {
		return nil, classify("request_token", err)
	}

	authURL, err := config.AuthorizationURL(requestToken)
	if err != nil {
		return nil, protocolError("request_token", err)
	}

	return &Authorization{
		RedirectURL: authURL.String(),
		Pending: &PendingToken{
			HandshakeID:        uuid.NewString(),
			Variant:            VariantOAuth1,
			RequestToken:       requestToken,
			RequestTokenSecret: requestSecret,
			IssuedAt:           time.Now(),
		},
	}, nil
}

// exchangeOAuth1 trades the request token and verifier for an access token
func (p *LinkedIn) exchangeOAuth1(ctx context.Context, pending *PendingToken, callback url.Values) (*http.Client, error) {
	token := callback.Get("oauth_token")
	verifier := callback.Get("oauth_verifier")
	if verifier == "" {
		return nil, protocolError("access_token", errors.New("callback has no oauth_verifier"))
	}
	if token != pending.RequestToken {
		return nil, protocolError("access_token", errors.New("callback oauth_token does not match the pending request token"))
	}
	if err := ctx.Err(); err != nil {
		return nil, classify("access_token", err)
	}

	config := p.oauth1Config("")
	accessToken, accessSecret, err := config.AccessToken(pending.RequestToken, pending.RequestTokenSecret, verifier)
	if err != nil {
		return nil, classify("access_token", err)
	}

	ctx = context.WithValue(ctx, oauth1.HTTPClient, p.client)
	client := config.Client(ctx, oauth1.NewToken(accessToken, accessSecret))
	client.Timeout = p.opts.Timeout
	return client, nil
}
