package services

import (
	"fmt"

	"github.com/blogem/linkedin-login/authenticator"
)

// Session keys
const (
	SessionKeyPendingToken = "pending_token"
	SessionKeyUserID       = "user_id"
	SessionKeyNotices      = "notices"
)

// SessionStore is the per-visitor session. gitea.com/go-chi/session stores
// satisfy it.
type SessionStore interface {
	Get(key interface{}) interface{}
	Set(key, value interface{}) error
	Delete(key interface{}) error
}

// takePendingToken removes and returns the pending handshake, if any
func takePendingToken(sess SessionStore) (*authenticator.PendingToken, error) {
	pending, _ := sess.Get(SessionKeyPendingToken).(*authenticator.PendingToken)
	if err := sess.Delete(SessionKeyPendingToken); err != nil {
		return pending, fmt.Errorf("failed to discard pending token: %w", err)
	}
	return pending, nil
}

// CurrentUserID returns the authenticated user of the session
func CurrentUserID(sess SessionStore) (int64, bool) {
	id, ok := sess.Get(SessionKeyUserID).(int64)
	return id, ok && id != 0
}

// Logout forgets the authenticated user
func Logout(sess SessionStore) error {
	return sess.Delete(SessionKeyUserID)
}
