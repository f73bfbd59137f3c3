package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/authenticator"
	"github.com/blogem/linkedin-login/models"
)

// StartRequest is an inbound GET /auth/linkedin
type StartRequest struct {
	InitiateRequest
	Host     string
	Referrer string
	Request  RequestInfo
}

// CallbackHTTPRequest is an inbound GET /auth/linkedin/callback
type CallbackHTTPRequest struct {
	CallbackRequest
	Host     string
	Referrer string
	Async    bool
	Request  RequestInfo
	// RotateSession issues a fresh session ID once the visitor is known
	RotateSession func() error
}

// LoginFlow drives the handshake stages and maps every failure branch to a
// notice, an event and a redirect. Failures never touch the session user.
type LoginFlow struct {
	initiator   *AuthorizationInitiator
	resolver    *CallbackResolver
	linker      *AccountLinker
	establisher *SessionEstablisher
	events      EventSink
	log         *zap.Logger
}

// NewLoginFlow wires the handshake stages together
func NewLoginFlow(initiator *AuthorizationInitiator, resolver *CallbackResolver, linker *AccountLinker, establisher *SessionEstablisher, events EventSink, log *zap.Logger) *LoginFlow {
	return &LoginFlow{
		initiator:   initiator,
		resolver:    resolver,
		linker:      linker,
		establisher: establisher,
		events:      events,
		log:         log,
	}
}

// Start redirects the visitor to LinkedIn
func (f *LoginFlow) Start(ctx context.Context, sess SessionStore, site *models.Site, req StartRequest) (*Outcome, error) {
	if req.Next == "" {
		req.Next = SafeRedirect(req.Referrer, req.Host, "")
	}

	auth, err := f.initiator.Initiate(ctx, sess, site, req.InitiateRequest)
	if err != nil {
		fallback := SafeRedirect(req.Referrer, req.Host, LoginPath)
		return f.fail(ctx, sess, site, "", req.Request, fallback, err)
	}

	return &Outcome{Redirect: auth.RedirectURL}, nil
}

// Callback resolves the provider's answer, links the account and logs the
// visitor in
func (f *LoginFlow) Callback(ctx context.Context, sess SessionStore, site *models.Site, req CallbackHTTPRequest) (*Outcome, error) {
	fallback := SafeRedirect(req.Referrer, req.Host, LoginPath)

	res, err := f.resolver.Resolve(ctx, sess, site, req.CallbackRequest)
	if err != nil {
		return f.fail(ctx, sess, site, res.HandshakeID, req.Request, fallback, err)
	}

	link, err := f.linker.Link(ctx, res.Claim, site.CompanyID)
	if errors.Is(err, ErrAccountDisabled) {
		notify(sess, f.log, NoticeDisabled)
		f.events.LoginFailed(ctx, LoginFailure{
			SiteID:          site.ID,
			HandshakeID:     res.HandshakeID,
			Reason:          err.Error(),
			AccountDisabled: true,
			Request:         req.Request,
		})
		return &Outcome{Redirect: LoginPath}, nil
	}
	if err != nil {
		return nil, err
	}

	return f.establisher.Establish(ctx, sess, link, EstablishRequest{
		Next:          req.Params.Get("next"),
		Host:          req.Host,
		Async:         req.Async,
		SiteID:        site.ID,
		HandshakeID:   res.HandshakeID,
		Request:       req.Request,
		RotateSession: req.RotateSession,
	})
}

// fail maps a classified handshake error to its outcome. Unclassified
// errors are returned to the caller.
func (f *LoginFlow) fail(ctx context.Context, sess SessionStore, site *models.Site, handshakeID string, info RequestInfo, fallback string, err error) (*Outcome, error) {
	var handshakeErr *authenticator.Error
	if !errors.As(err, &handshakeErr) {
		return nil, err
	}

	failure := LoginFailure{
		SiteID:      site.ID,
		HandshakeID: handshakeID,
		Kind:        handshakeErr.Kind,
		Reason:      handshakeErr.Reason,
		Request:     info,
	}

	switch handshakeErr.Kind {
	case authenticator.KindConfigurationMissing:
		f.log.Error("LinkedIn api settings are missing", zap.Int64("site_id", site.ID), zap.String("host", site.Host))
		notify(sess, f.log, NoticeUnavailable)
		return &Outcome{Redirect: fallback}, nil

	case authenticator.KindConsentDenied:
		notify(sess, f.log, NoticeDenied(handshakeErr.Reason))
		f.events.LoginFailed(ctx, failure)
		return &Outcome{Redirect: LoginPath}, nil

	default:
		f.log.Error("LinkedIn login failed", zap.String("handshake_id", handshakeID), zap.Error(err))
		failure.Reason = err.Error()
		notify(sess, f.log, NoticeUnreachable)
		f.events.LoginFailed(ctx, failure)
		return &Outcome{Redirect: fallback}, nil
	}
}
