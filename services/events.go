package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/authenticator"
	"github.com/blogem/linkedin-login/models"
	"github.com/blogem/linkedin-login/repositories"
)

// RequestInfo describes the visitor's request for audit purposes
type RequestInfo struct {
	UserAgent string
	IPAddress string
}

// LoginEvent is fired once per successful handshake
type LoginEvent struct {
	UserID      int64
	SiteID      int64
	HandshakeID string
	Created     bool
	Request     RequestInfo
}

// LoginFailure is fired when a handshake is denied, the provider fails or
// the resolved account may not log in
type LoginFailure struct {
	SiteID      int64
	HandshakeID string
	Kind        authenticator.ErrorKind
	Reason      string
	// AccountDisabled is set when the handshake succeeded but the local
	// account is deactivated
	AccountDisabled bool
	Request         RequestInfo
}

// Outcome names the failure for metrics and the audit log
func (e LoginFailure) Outcome() string {
	if e.AccountDisabled {
		return "account_disabled"
	}
	return e.Kind.String()
}

// EventSink receives login events
type EventSink interface {
	LoginSucceeded(ctx context.Context, e LoginEvent)
	LoginFailed(ctx context.Context, e LoginFailure)
}

// EventSinks fans events out to every sink in order
type EventSinks []EventSink

func (s EventSinks) LoginSucceeded(ctx context.Context, e LoginEvent) {
	for _, sink := range s {
		sink.LoginSucceeded(ctx, e)
	}
}

func (s EventSinks) LoginFailed(ctx context.Context, e LoginFailure) {
	for _, sink := range s {
		sink.LoginFailed(ctx, e)
	}
}

type auditSink struct {
	repo repositories.AuditRepository
	log  *zap.Logger
}

// NewAuditSink records login events in the audit log. Write failures are
// logged and never fail the login.
func NewAuditSink(repo repositories.AuditRepository, log *zap.Logger) EventSink {
	return &auditSink{repo: repo, log: log}
}

func (s *auditSink) LoginSucceeded(ctx context.Context, e LoginEvent) {
	s.write(ctx, &models.AuditLogEntry{
		Event:       models.AuditLoginSucceeded,
		UserID:      e.UserID,
		SiteID:      e.SiteID,
		HandshakeID: e.HandshakeID,
		UserAgent:   e.Request.UserAgent,
		IPAddress:   e.Request.IPAddress,
	})
}

func (s *auditSink) LoginFailed(ctx context.Context, e LoginFailure) {
	reason := e.Outcome()
	if e.Reason != "" {
		reason += ": " + e.Reason
	}
	s.write(ctx, &models.AuditLogEntry{
		Event:       models.AuditLoginFailed,
		SiteID:      e.SiteID,
		Reason:      reason,
		HandshakeID: e.HandshakeID,
		UserAgent:   e.Request.UserAgent,
		IPAddress:   e.Request.IPAddress,
	})
}

func (s *auditSink) write(ctx context.Context, entry *models.AuditLogEntry) {
	if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Error("failed to write audit log entry", zap.String("event", entry.Event), zap.Error(err))
	}
}

type logSink struct {
	log *zap.Logger
}

// NewLogSink writes login events to the structured log
func NewLogSink(log *zap.Logger) EventSink {
	return &logSink{log: log}
}

func (s *logSink) LoginSucceeded(_ context.Context, e LoginEvent) {
	s.log.Info("login succeeded",
		zap.Int64("user_id", e.UserID),
		zap.Int64("site_id", e.SiteID),
		zap.String("handshake_id", e.HandshakeID),
		zap.Bool("registered", e.Created),
	)
}

func (s *logSink) LoginFailed(_ context.Context, e LoginFailure) {
	s.log.Warn("login failed",
		zap.Int64("site_id", e.SiteID),
		zap.String("handshake_id", e.HandshakeID),
		zap.String("outcome", e.Outcome()),
		zap.String("reason", e.Reason),
	)
}
