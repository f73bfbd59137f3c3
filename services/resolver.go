package services

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/authenticator"
	"github.com/blogem/linkedin-login/models"
)

// DefaultPendingTokenTTL bounds how long a started handshake may take
const DefaultPendingTokenTTL = 10 * time.Minute

// CallbackRequest is the provider's redirect back to this site
type CallbackRequest struct {
	Params       url.Values
	CallbackBase string
}

// Resolution is the outcome of resolving a callback
type Resolution struct {
	HandshakeID string
	Claim       *models.IdentityClaim
}

// CallbackResolver turns a provider callback into an identity claim
type CallbackResolver struct {
	providers  authenticator.Factory
	pendingTTL time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// NewCallbackResolver creates a resolver. pendingTTL of zero disables the
// pending token age check.
func NewCallbackResolver(providers authenticator.Factory, pendingTTL time.Duration, log *zap.Logger) *CallbackResolver {
	return &CallbackResolver{
		providers:  providers,
		pendingTTL: pendingTTL,
		now:        time.Now,
		log:        log,
	}
}

// Resolve consumes the pending token, exchanges the callback credentials and
// fetches the member's identity. The pending token is gone from the session
// when Resolve returns, whatever the outcome. The returned Resolution is
// non-nil even on error so failures can be correlated with the handshake.
func (r *CallbackResolver) Resolve(ctx context.Context, sess SessionStore, site *models.Site, req CallbackRequest) (*Resolution, error) {
	pending, err := takePendingToken(sess)
	res := &Resolution{}
	if pending != nil {
		res.HandshakeID = pending.HandshakeID
	}
	if err != nil {
		return res, err
	}

	provider, err := r.providers(site.LinkedIn)
	if err != nil {
		return res, err
	}

	kind, reason := authenticator.ClassifyCallback(req.Params)
	var variant authenticator.Variant
	switch kind {
	case authenticator.CallbackDenied:
		return res, authenticator.Denied(reason)
	case authenticator.CallbackUnknown:
		// Nothing to exchange: the provider came back without a grant
		return res, authenticator.Denied("no authorization was granted")
	case authenticator.CallbackOAuth1:
		variant = authenticator.VariantOAuth1
	case authenticator.CallbackOAuth2:
		variant = authenticator.VariantOAuth2
	}

	switch {
	case pending == nil:
		return res, authenticator.NewError(authenticator.KindProviderProtocol, "callback", errors.New("no pending handshake in session"))
	case pending.Expired(r.now(), r.pendingTTL):
		return res, authenticator.NewError(authenticator.KindProviderProtocol, "callback", errors.New("pending handshake expired"))
	case pending.Variant != variant:
		return res, authenticator.NewError(authenticator.KindProviderProtocol, "callback", errors.New("callback does not match the pending handshake variant"))
	}

	callbackURL := CallbackURL(req.CallbackBase, req.Params.Get("next"))
	client, err := provider.Exchange(ctx, pending, req.Params, callbackURL)
	if err != nil {
		return res, err
	}

	claim, err := provider.Identity(ctx, client)
	if err != nil {
		return res, err
	}

	r.log.Debug("linkedin identity resolved",
		zap.String("handshake_id", res.HandshakeID),
		zap.String("external_id", claim.ExternalID),
	)

	res.Claim = claim
	return res, nil
}
