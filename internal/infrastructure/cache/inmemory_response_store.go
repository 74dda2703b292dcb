package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryResponseStore implements ResponseStore with a process-local map.
// State is not shared between instances.
type InMemoryResponseStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryResponseStore creates the store and starts its cleanup loop
func NewInMemoryResponseStore(cleanupInterval time.Duration) *InMemoryResponseStore {
	s := &InMemoryResponseStore{
		entries:  make(map[string]entry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	s.wg.Add(1)
	go s.cleanupLoop(cleanupInterval)
	return s
}

// Reserve implements ResponseStore
func (s *InMemoryResponseStore) Reserve(_ context.Context, key string, rec Record, ttl time.Duration) (bool, error) {
	data, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && s.now().Before(e.expiresAt) {
		return false, nil
	}
	s.entries[key] = entry{data: data, expiresAt: s.now().Add(ttl)}
	return true, nil
}

// Get implements ResponseStore
func (s *InMemoryResponseStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, nil
	}
	return decodeRecord(e.data)
}

// Put implements ResponseStore
func (s *InMemoryResponseStore) Put(_ context.Context, key string, rec Record, ttl time.Duration) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[key] = entry{data: data, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Release implements ResponseStore
func (s *InMemoryResponseStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryResponseStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Len returns the number of stored entries, expired ones included
func (s *InMemoryResponseStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *InMemoryResponseStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryResponseStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

var _ ResponseStore = (*InMemoryResponseStore)(nil)
