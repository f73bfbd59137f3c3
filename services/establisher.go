package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Outcome is what the HTTP layer should answer with
type Outcome struct {
	// Redirect is the target of a 302 when Inline is false
	Redirect string
	// Inline asks for a bare "OK" body for script driven clients
	Inline bool
}

// EstablishRequest carries the request details that shape the response
type EstablishRequest struct {
	Next        string
	Host        string
	Async       bool
	SiteID      int64
	HandshakeID string
	Request     RequestInfo
	// RotateSession, when set, issues a fresh session ID before the user is
	// stored so an identifier planted before login is worthless afterwards
	RotateSession func() error
}

// SessionEstablisher logs a resolved user in
type SessionEstablisher struct {
	events         EventSink
	defaultLanding string
	log            *zap.Logger
}

// NewSessionEstablisher creates an establisher redirecting to defaultLanding
// when no next hint is given
func NewSessionEstablisher(events EventSink, defaultLanding string, log *zap.Logger) *SessionEstablisher {
	if defaultLanding == "" {
		defaultLanding = DefaultLandingPath
	}
	return &SessionEstablisher{events: events, defaultLanding: defaultLanding, log: log}
}

// Establish authenticates the session as link.User, replacing any user
// logged in before, and fires the login event. The session ID is rotated
// first when the request knows how.
func (e *SessionEstablisher) Establish(ctx context.Context, sess SessionStore, link *LinkResult, req EstablishRequest) (*Outcome, error) {
	user := link.User
	if req.RotateSession != nil {
		if err := req.RotateSession(); err != nil {
			return nil, fmt.Errorf("failed to rotate session: %w", err)
		}
	}
	if err := sess.Set(SessionKeyUserID, user.ID); err != nil {
		return nil, fmt.Errorf("failed to store session user: %w", err)
	}

	if link.Created {
		notify(sess, e.log, NoticeRegistered)
	}
	notify(sess, e.log, NoticeWelcome(user.DisplayName))

	e.events.LoginSucceeded(ctx, LoginEvent{
		UserID:      user.ID,
		SiteID:      req.SiteID,
		HandshakeID: req.HandshakeID,
		Created:     link.Created,
		Request:     req.Request,
	})

	if req.Async {
		return &Outcome{Inline: true}, nil
	}
	return &Outcome{Redirect: SafeRedirect(req.Next, req.Host, e.defaultLanding)}, nil
}
