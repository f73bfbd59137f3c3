package userctx

import (
	"context"

	"github.com/blogem/linkedin-login/models"
)

// Context key type
type contextKey string

const (
	siteKey   contextKey = "site"
	userIDKey contextKey = "user_id"
)

// SetSite adds the site serving the request to the context
func SetSite(ctx context.Context, site *models.Site) context.Context {
	return context.WithValue(ctx, siteKey, site)
}

// GetSite retrieves the site serving the request, or nil
func GetSite(ctx context.Context) *models.Site {
	site, _ := ctx.Value(siteKey).(*models.Site)
	return site
}

// SetUserID adds the authenticated user's ID to the context
func SetUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID retrieves the authenticated user's ID, or 0 for anonymous requests
func GetUserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
