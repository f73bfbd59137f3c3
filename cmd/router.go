package cmd

import (
	"fmt"
	"net/http"
	"time"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/config"
	"github.com/blogem/linkedin-login/controllers"
	"github.com/blogem/linkedin-login/metrics"
	appmw "github.com/blogem/linkedin-login/middleware"
	"github.com/blogem/linkedin-login/repositories"
)

// routerDeps is everything the router needs from the serve command
type routerDeps struct {
	ctrl     *controllers.Controllers
	sites    repositories.SiteRepository
	metrics  *metrics.Metrics
	session  config.Session
	useHTTPS bool
	log      *zap.Logger
}

// setupRouter configures all routes
func setupRouter(d routerDeps) (*chi.Mux, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmw.RequestLogger(d.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(d.metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status": "healthy", "service": "linkedin-login"}`)
	})
	r.Handle("/metrics", d.metrics.Handler())

	sessionHandler, err := session.Sessioner(session.Options{
		Provider:       "memory",
		ProviderConfig: "",
		CookieName:     d.session.Cookie,
		Secure:         d.useHTTPS,
		Gclifetime:     d.session.TTL,
		Maxlifetime:    d.session.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	// Site routes need the visitor's session and the site serving the host
	r.Group(func(r chi.Router) {
		r.Use(sessionHandler)
		r.Use(appmw.ResolveSite(d.sites, d.log))
		r.Use(appmw.LoadUser)

		r.Get("/", d.ctrl.Pages.Home)
		r.Get("/login", d.ctrl.Pages.Login)
		r.Get("/logout", d.ctrl.Auth.Logout)
		r.Get(controllers.LinkedInLoginPath, d.ctrl.Auth.Login)
		r.Get(controllers.LinkedInLoginPath+"/callback", d.ctrl.Auth.Callback)

		r.With(appmw.RequireAuth).Get("/account", d.ctrl.Pages.Account)
	})

	return r, nil
}
