package services

import (
	"net/url"
	"strings"
)

// Well known paths
const (
	LoginPath          = "/login"
	DefaultLandingPath = "/"
	CallbackPath       = "/auth/linkedin/callback"
)

// SafeRedirect returns target when it stays on host, otherwise fallback.
// Absolute URLs on host are reduced to their path and query.
func SafeRedirect(target, host, fallback string) string {
	target = strings.TrimSpace(target)
	if target == "" || strings.Contains(target, `\`) {
		return fallback
	}

	u, err := url.Parse(target)
	if err != nil {
		return fallback
	}

	if u.Scheme != "" || u.Host != "" {
		if (u.Scheme != "http" && u.Scheme != "https") || !strings.EqualFold(u.Host, host) {
			return fallback
		}
		return u.RequestURI()
	}

	if !strings.HasPrefix(u.Path, "/") {
		return fallback
	}
	return u.String()
}

// CallbackURL builds the provider callback URL, carrying next through the
// round trip
func CallbackURL(base, next string) string {
	callback := strings.TrimRight(base, "/") + CallbackPath
	if next != "" {
		callback += "?" + url.Values{"next": {next}}.Encode()
	}
	return callback
}
