package services

import (
	"context"
	"errors"
	"sync"
)

// memorySession is an in-memory SessionStore
type memorySession struct {
	values map[interface{}]interface{}
}

func newMemorySession() *memorySession {
	return &memorySession{values: make(map[interface{}]interface{})}
}

func (s *memorySession) Get(key interface{}) interface{} { return s.values[key] }

func (s *memorySession) Set(key, value interface{}) error {
	s.values[key] = value
	return nil
}

func (s *memorySession) Delete(key interface{}) error {
	delete(s.values, key)
	return nil
}

// noticeRefusingSession fails every write of the notice queue
type noticeRefusingSession struct {
	*memorySession
}

func (s noticeRefusingSession) Set(key, value interface{}) error {
	if key == SessionKeyNotices {
		return errors.New("session full")
	}
	return s.memorySession.Set(key, value)
}

// recordingSink remembers every event it receives
type recordingSink struct {
	mu        sync.Mutex
	succeeded []LoginEvent
	failed    []LoginFailure
}

func (s *recordingSink) LoginSucceeded(_ context.Context, e LoginEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded = append(s.succeeded, e)
}

func (s *recordingSink) LoginFailed(_ context.Context, e LoginFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, e)
}
