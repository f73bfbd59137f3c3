package authenticator

import "net/url"

// CallbackKind tells which response the provider sent back
type CallbackKind int

const (
	// CallbackUnknown carries neither a verifier, a code nor an error
	CallbackUnknown CallbackKind = iota
	// CallbackDenied carries an explicit error or denial reason
	CallbackDenied
	// CallbackOAuth1 carries an oauth_verifier
	CallbackOAuth1
	// CallbackOAuth2 carries an authorization code
	CallbackOAuth2
)

// denialParams are checked in order for the provider's reason
var denialParams = []string{"error_reason", "error_description", "oauth_problem", "error"}

// ClassifyCallback inspects callback query parameters. An explicit denial
// wins over anything else the provider echoed back.
func ClassifyCallback(params url.Values) (CallbackKind, string) {
	if reason, ok := DenialReason(params); ok {
		return CallbackDenied, reason
	}

	switch {
	case params.Has("oauth_verifier"):
		return CallbackOAuth1, ""
	case params.Has("code"):
		return CallbackOAuth2, ""
	default:
		return CallbackUnknown, ""
	}
}

// DenialReason returns the provider supplied reason for a refused handshake
func DenialReason(params url.Values) (string, bool) {
	present := false
	for _, key := range denialParams {
		if !params.Has(key) {
			continue
		}
		present = true
		if v := params.Get(key); v != "" {
			return v, true
		}
	}
	if present {
		return "access denied", true
	}
	return "", false
}
