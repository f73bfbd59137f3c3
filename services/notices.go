package services

import (
	"fmt"

	"go.uber.org/zap"
)

// User facing notices
const (
	NoticeUnavailable  = "LinkedIn login is not available at the moment"
	NoticeUnreachable  = "We cannot talk to linkedin at this time. Please try again"
	NoticeRegistered   = "Thanks for registering with us using linkedin"
	NoticeDisabled     = "Your account has been disabled"
	noticeDeniedFormat = "Access was denied to linkedin: %s"
	noticeWelcome      = "You are now logged in. Welcome %s"
)

// NoticeDenied renders the denial notice with the provider's reason
func NoticeDenied(reason string) string {
	return fmt.Sprintf(noticeDeniedFormat, reason)
}

// NoticeWelcome renders the welcome notice
func NoticeWelcome(name string) string {
	return fmt.Sprintf(noticeWelcome, name)
}

// AddNotice queues a notice for the next rendered page
func AddNotice(sess SessionStore, msg string) error {
	notices, _ := sess.Get(SessionKeyNotices).([]string)
	return sess.Set(SessionKeyNotices, append(notices, msg))
}

// notify queues msg and logs when the session refuses it. A lost notice
// never fails the request.
func notify(sess SessionStore, log *zap.Logger, msg string) {
	if err := AddNotice(sess, msg); err != nil {
		log.Warn("failed to queue notice", zap.String("notice", msg), zap.Error(err))
	}
}

// PopNotices returns and clears the queued notices
func PopNotices(sess SessionStore) []string {
	notices, _ := sess.Get(SessionKeyNotices).([]string)
	if len(notices) > 0 {
		sess.Delete(SessionKeyNotices)
	}
	return notices
}
