package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/repositories"
	"github.com/blogem/linkedin-login/userctx"
)

// ResolveSite looks up the site serving the request host. Unknown hosts get
// a 404.
func ResolveSite(sites repositories.SiteRepository, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			site, err := sites.GetByHost(r.Context(), r.Host)
			if errors.Is(err, repositories.ErrNotFound) {
				http.Error(w, "Unknown site", http.StatusNotFound)
				return
			}
			if err != nil {
				log.Error("failed to resolve site", zap.String("host", r.Host), zap.Error(err))
				http.Error(w, "Failed to resolve site", http.StatusInternalServerError)
				return
			}

			noteSite(r.Context(), site)
			next.ServeHTTP(w, r.WithContext(userctx.SetSite(r.Context(), site)))
		})
	}
}
