package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/blogem/linkedin-login/models"
	"github.com/blogem/linkedin-login/services"
)

type logStateKey struct{}

// logState collects what inner handlers learn about a request for the
// access log line written by RequestLogger
type logState struct {
	siteID int64
}

// noteSite records the resolved site for the access log, if RequestLogger
// is in the chain
func noteSite(ctx context.Context, site *models.Site) {
	if state, ok := ctx.Value(logStateKey{}).(*logState); ok && site != nil {
		state.siteID = site.ID
	}
}

// RequestLogger logs every request with zap once it completes
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			state := &logState{}
			r = r.WithContext(context.WithValue(r.Context(), logStateKey{}, state))

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("ip", ClientIP(r)),
			}
			if state.siteID != 0 {
				fields = append(fields, zap.Int64("site_id", state.siteID))
			}

			switch {
			case ww.Status() >= http.StatusInternalServerError:
				log.Error("request", fields...)
			default:
				log.Info("request", fields...)
			}
		})
	}
}

// RequestInfo describes the request for login events
func RequestInfo(r *http.Request) services.RequestInfo {
	return services.RequestInfo{
		UserAgent: r.UserAgent(),
		IPAddress: ClientIP(r),
	}
}

// ClientIP returns the host part of r.RemoteAddr. Proxy headers are left to
// chi's RealIP, which runs first in the router and rewrites RemoteAddr.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// IsAsync reports whether the request was made by a script rather than a
// browser navigation
func IsAsync(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// BaseURL returns the externally visible scheme and host of the request.
// publicURL wins when set.
func BaseURL(r *http.Request, publicURL string) string {
	if publicURL != "" {
		return strings.TrimRight(publicURL, "/")
	}

	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
