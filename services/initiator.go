package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/authenticator"
	"github.com/blogem/linkedin-login/models"
)

// InitiateRequest carries what the visitor asked for when starting a login
type InitiateRequest struct {
	// CallbackBase is the externally visible scheme and host of this site
	CallbackBase string
	// Next is where the visitor wants to land after logging in
	Next string
}

// AuthorizationInitiator builds the redirect to LinkedIn
type AuthorizationInitiator struct {
	providers authenticator.Factory
	variant   authenticator.Variant
	scope     string
	log       *zap.Logger
}

// NewAuthorizationInitiator creates an initiator using the given handshake variant
func NewAuthorizationInitiator(providers authenticator.Factory, variant authenticator.Variant, scope string, log *zap.Logger) *AuthorizationInitiator {
	if scope == "" {
		scope = authenticator.DefaultScope
	}
	return &AuthorizationInitiator{
		providers: providers,
		variant:   variant,
		scope:     scope,
		log:       log,
	}
}

// Initiate starts a handshake. Without site credentials it fails with
// KindConfigurationMissing before touching the network or the session.
// Otherwise any earlier pending token is dropped before LinkedIn is contacted,
// so a failed attempt leaves nothing behind for a later callback to redeem.
// The requested scope is fixed by configuration.
func (i *AuthorizationInitiator) Initiate(ctx context.Context, sess SessionStore, site *models.Site, req InitiateRequest) (*authenticator.Authorization, error) {
	provider, err := i.providers(site.LinkedIn)
	if err != nil {
		return nil, err
	}

	if err := sess.Delete(SessionKeyPendingToken); err != nil {
		return nil, fmt.Errorf("failed to clear pending token: %w", err)
	}

	auth, err := provider.Authorize(ctx, i.variant, CallbackURL(req.CallbackBase, req.Next), i.scope)
	if err != nil {
		return nil, err
	}

	if err := sess.Set(SessionKeyPendingToken, auth.Pending); err != nil {
		return nil, fmt.Errorf("failed to store pending token: %w", err)
	}

	i.log.Debug("linkedin handshake started",
		zap.Int64("site_id", site.ID),
		zap.String("handshake_id", auth.Pending.HandshakeID),
		zap.String("variant", string(auth.Pending.Variant)),
	)

	return auth, nil
}
