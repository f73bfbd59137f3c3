package middleware

import (
	"net/http"
	"net/url"

	"gitea.com/go-chi/session"

	"github.com/blogem/linkedin-login/services"
	"github.com/blogem/linkedin-login/userctx"
)

// RequireAuth ensures the user is authenticated.
// If not, redirects to the login page carrying the intended destination.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := services.CurrentUserID(session.GetSession(r))
		if !ok {
			target := services.LoginPath + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(userctx.SetUserID(r.Context(), userID)))
	})
}

// LoadUser adds the session's user to the request context when there is one
func LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := services.CurrentUserID(session.GetSession(r)); ok {
			r = r.WithContext(userctx.SetUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}
