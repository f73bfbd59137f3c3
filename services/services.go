package services

import (
	"time"

	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/authenticator"
	"github.com/blogem/linkedin-login/repositories"
)

// Config holds the handshake settings shared by all sites
type Config struct {
	Variant         authenticator.Variant
	Scope           string
	PendingTokenTTL time.Duration
	DefaultLanding  string
}

// Services holds all service instances
type Services struct {
	Login *LoginFlow
	Users repositories.UserRepository
	Audit repositories.AuditRepository
}

// NewServices creates and initializes all service instances
func NewServices(repos *repositories.Repositories, providers authenticator.Factory, events EventSink, cfg Config, log *zap.Logger) *Services {
	login := NewLoginFlow(
		NewAuthorizationInitiator(providers, cfg.Variant, cfg.Scope, log),
		NewCallbackResolver(providers, cfg.PendingTokenTTL, log),
		NewAccountLinker(repos.Users, log),
		NewSessionEstablisher(events, cfg.DefaultLanding, log),
		events,
		log,
	)

	return &Services{
		Login: login,
		Users: repos.Users,
		Audit: repos.Audit,
	}
}
