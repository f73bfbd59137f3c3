package authenticator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorKind classifies handshake failures
type ErrorKind int

const (
	// KindUnknown is returned by KindOf for errors that are not handshake errors
	KindUnknown ErrorKind = iota
	// KindConfigurationMissing means the site has no LinkedIn credentials
	KindConfigurationMissing
	// KindProviderUnreachable covers transport failures and timeouts
	KindProviderUnreachable
	// KindProviderProtocol covers malformed responses, provider error payloads
	// and callbacks that do not match a pending handshake
	KindProviderProtocol
	// KindConsentDenied means the member declined on LinkedIn
	KindConsentDenied
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfigurationMissing:
		return "configuration_missing"
	case KindProviderUnreachable:
		return "provider_unreachable"
	case KindProviderProtocol:
		return "provider_protocol_error"
	case KindConsentDenied:
		return "consent_denied"
	default:
		return "unknown"
	}
}

// ErrCredentialsMissing is wrapped by configuration errors
var ErrCredentialsMissing = errors.New("linkedin api settings are missing")

// Error is a classified handshake failure
type Error struct {
	Kind ErrorKind
	// Op names the handshake step, e.g. "request_token" or "profile"
	Op string
	// Reason is the provider supplied reason for denials
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("linkedin %s: %s", e.Op, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a handshake error, or KindUnknown
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Denied builds a consent denial error
func Denied(reason string) error {
	return &Error{Kind: KindConsentDenied, Op: "authorize", Reason: reason}
}

// NewError builds a classified handshake error
func NewError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func protocolError(op string, err error) error {
	return &Error{Kind: KindProviderProtocol, Op: op, Err: err}
}

// classify sorts a failed outbound call into unreachable or protocol error
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var handshakeErr *Error
	if errors.As(err, &handshakeErr) {
		return err
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindProviderUnreachable, Op: op, Err: err}
	}

	return protocolError(op, err)
}
