package usecase

import (
	"sync"
)

// RefreshSequencer orders refreshes per user so a slow, superseded refresh
// cannot overwrite a newer one at the presentation boundary. In-flight
// backend calls are not cancelled; their result is dropped instead.
type RefreshSequencer struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func NewRefreshSequencer() *RefreshSequencer {
	return &RefreshSequencer{latest: make(map[string]uint64)}
}

// Begin starts a refresh for key and returns its ticket.
func (s *RefreshSequencer) Begin(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[key]++
	return s.latest[key]
}

// IsLatest reports whether ticket is still the newest refresh for key.
func (s *RefreshSequencer) IsLatest(key string, ticket uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[key] == ticket
}

// PublishIfLatest runs publish only when ticket is still the newest refresh
// for key. The check and the publish happen under one lock.
func (s *RefreshSequencer) PublishIfLatest(key string, ticket uint64, publish func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[key] != ticket {
		return false
	}
	publish()
	return true
}
