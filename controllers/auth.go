package controllers

import (
	"net/http"

	"gitea.com/go-chi/session"
	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/middleware"
	"github.com/blogem/linkedin-login/services"
	"github.com/blogem/linkedin-login/userctx"
)

// AuthController handles the LinkedIn login endpoints
type AuthController struct {
	login     *services.LoginFlow
	publicURL string
	log       *zap.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(login *services.LoginFlow, publicURL string, log *zap.Logger) *AuthController {
	return &AuthController{login: login, publicURL: publicURL, log: log}
}

// Login handles GET /auth/linkedin
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	site := userctx.GetSite(r.Context())
	q := r.URL.Query()

	out, err := c.login.Start(r.Context(), session.GetSession(r), site, services.StartRequest{
		InitiateRequest: services.InitiateRequest{
			CallbackBase: middleware.BaseURL(r, c.publicURL),
			Next:         q.Get("next"),
		},
		Host:     r.Host,
		Referrer: r.Referer(),
		Request:  middleware.RequestInfo(r),
	})
	if err != nil {
		c.log.Error("failed to start linkedin login", zap.Int64("site_id", site.ID), zap.Error(err))
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	c.respond(w, r, out)
}

// Callback handles GET /auth/linkedin/callback
func (c *AuthController) Callback(w http.ResponseWriter, r *http.Request) {
	site := userctx.GetSite(r.Context())

	out, err := c.login.Callback(r.Context(), session.GetSession(r), site, services.CallbackHTTPRequest{
		CallbackRequest: services.CallbackRequest{
			Params:       r.URL.Query(),
			CallbackBase: middleware.BaseURL(r, c.publicURL),
		},
		Host:          r.Host,
		Referrer:      r.Referer(),
		Async:         middleware.IsAsync(r),
		Request:       middleware.RequestInfo(r),
		RotateSession: func() error {
			_, err := session.RegenerateSession(w, r)
			return err
		},
	})
	if err != nil {
		c.log.Error("failed to complete linkedin login", zap.Int64("site_id", site.ID), zap.Error(err))
		http.Error(w, "Failed to complete login", http.StatusInternalServerError)
		return
	}

	c.respond(w, r, out)
}

// Logout handles GET /logout
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := services.Logout(session.GetSession(r)); err != nil {
		c.log.Warn("failed to clear session user", zap.Error(err))
	}
	http.Redirect(w, r, services.DefaultLandingPath, http.StatusSeeOther)
}

func (c *AuthController) respond(w http.ResponseWriter, r *http.Request, out *services.Outcome) {
	if out.Inline {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("OK"))
		return
	}
	http.Redirect(w, r, out.Redirect, http.StatusFound)
}
