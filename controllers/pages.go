package controllers

import (
	"errors"
	"net/http"
	"net/url"

	"gitea.com/go-chi/session"
	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/models"
	"github.com/blogem/linkedin-login/repositories"
	"github.com/blogem/linkedin-login/services"
	"github.com/blogem/linkedin-login/userctx"
)

// LinkedInLoginPath starts the handshake
const LinkedInLoginPath = "/auth/linkedin"

// PageController renders the home and login pages
type PageController struct {
	users repositories.UserRepository
	audit repositories.AuditRepository
	log   *zap.Logger
}

// NewPageController creates a new page controller
func NewPageController(users repositories.UserRepository, audit repositories.AuditRepository, log *zap.Logger) *PageController {
	return &PageController{users: users, audit: audit, log: log}
}

// Home handles GET /
func (c *PageController) Home(w http.ResponseWriter, r *http.Request) {
	data, err := c.pageData(r, "Home", "home", "")
	if err != nil {
		http.Error(w, "Failed to load page", http.StatusInternalServerError)
		return
	}
	renderTemplate(w, "home.html", data)
}

// Login handles GET /login
func (c *PageController) Login(w http.ResponseWriter, r *http.Request) {
	data, err := c.pageData(r, "Log in", "login", r.URL.Query().Get("next"))
	if err != nil {
		http.Error(w, "Failed to load page", http.StatusInternalServerError)
		return
	}
	renderTemplate(w, "login.html", data)
}

// Account handles GET /account and lists the user's recent logins
func (c *PageController) Account(w http.ResponseWriter, r *http.Request) {
	data, err := c.pageData(r, "Account", "account", "")
	if err != nil {
		http.Error(w, "Failed to load page", http.StatusInternalServerError)
		return
	}
	if data.User == nil {
		http.Redirect(w, r, services.LoginPath, http.StatusSeeOther)
		return
	}

	logins, err := c.audit.ListByUser(r.Context(), data.User.ID)
	if err != nil {
		c.log.Error("failed to load login history", zap.Int64("user_id", data.User.ID), zap.Error(err))
		http.Error(w, "Failed to load page", http.StatusInternalServerError)
		return
	}

	renderTemplate(w, "account.html", struct {
		*models.PageData
		Logins []models.AuditLogEntry
	}{data, logins})
}

func (c *PageController) pageData(r *http.Request, title, page, next string) (*models.PageData, error) {
	site := userctx.GetSite(r.Context())
	sess := session.GetSession(r)

	loginURL := LinkedInLoginPath
	if next != "" {
		loginURL += "?" + url.Values{"next": {next}}.Encode()
	}

	data := &models.PageData{
		Title:       title,
		CurrentPage: page,
		SiteName:    site.Name,
		Notices:     services.PopNotices(sess),
		LoginURL:    loginURL,
	}

	userID := userctx.GetUserID(r.Context())
	if userID == 0 {
		return data, nil
	}

	user, err := c.users.GetByID(r.Context(), userID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		// The account went away since the session was established
		services.Logout(sess)
	case err != nil:
		c.log.Error("failed to load session user", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	case user.CompanyID == site.CompanyID && user.Active:
		data.User = user
	}
	return data, nil
}
