package controllers

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/services"
)

//go:embed templates/*.html
var templateFS embed.FS

// renderTemplate renders a page inside the layout
func renderTemplate(w http.ResponseWriter, pageTemplate string, data interface{}) error {
	return renderTemplateWithStatus(w, http.StatusOK, pageTemplate, data)
}

// renderTemplateWithStatus renders a page inside the layout with the given status code
func renderTemplateWithStatus(w http.ResponseWriter, statusCode int, pageTemplate string, data interface{}) error {
	tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+pageTemplate)
	if err != nil {
		http.Error(w, "Failed to parse template: "+err.Error(), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}

	return tmpl.ExecuteTemplate(w, "layout.html", data)
}

// Config holds controller settings
type Config struct {
	// PublicURL overrides the request derived scheme and host
	PublicURL string
}

// Controllers holds all controller instances
type Controllers struct {
	Auth  *AuthController
	Pages *PageController
}

// NewControllers creates and initializes all controller instances
func NewControllers(srvs *services.Services, cfg Config, log *zap.Logger) *Controllers {
	return &Controllers{
		Auth:  NewAuthController(srvs.Login, cfg.PublicURL, log),
		Pages: NewPageController(srvs.Users, srvs.Audit, log),
	}
}
