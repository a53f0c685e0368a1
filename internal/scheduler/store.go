package scheduler

import (
	"context"
	"sync"
	"time"
)

// AlertRecord holds the last state we saw for a mirror and the last time
// we sent a notification about it (used for cooldown).
type AlertRecord struct {
	URL        string
	LastUp     bool
	LastSentAt *time.Time
}

type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, url string) (*AlertRecord, error)
	// Set upserts the record. A zero sentAt keeps no send time.
	Set(ctx context.Context, url string, lastUp bool, sentAt time.Time) error
}

type MemoryAlertStore struct {
	mu sync.RWMutex
	m  map[string]AlertRecord
}

func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{m: make(map[string]AlertRecord)}
}

func (s *MemoryAlertStore) Get(_ context.Context, url string) (*AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.m[url]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryAlertStore) Set(_ context.Context, url string, lastUp bool, sentAt time.Time) error {
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[url] = AlertRecord{URL: url, LastUp: lastUp, LastSentAt: ts}
	return nil
}
