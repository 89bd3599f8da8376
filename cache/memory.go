package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store backed by a mutex-protected map. Expiry
// is lazy on Get plus a periodic sweep so abandoned keys do not pile up.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry

	sweepTicker *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

// NewMemoryStore creates a store sweeping expired entries every
// sweepInterval. Call Close to stop the sweeper.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		entries:     make(map[string]entry),
		sweepTicker: time.NewTicker(sweepInterval),
		done:        make(chan struct{}),
	}

	go store.sweep()

	return store
}

func (s *MemoryStore) sweep() {
	for {
		select {
		case <-s.done:
			return
		case <-s.sweepTicker.C:
			now := time.Now()
			s.mu.Lock()
			removed := 0
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
					removed++
				}
			}
			s.mu.Unlock()
			if removed > 0 {
				log.WithField("removed", removed).Debug("Swept expired cache entries")
			}
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// ForgetPrefix removes every key starting with prefix. The in-memory map is
// enumerable, so bulk invalidation is supported on this backend.
func (s *MemoryStore) ForgetPrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
	return nil
}

// Close stops the background sweeper. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.closeOnce.Do(func() {
		s.sweepTicker.Stop()
		close(s.done)
	})
}

var _ Store = (*MemoryStore)(nil)
var _ PrefixForgetter = (*MemoryStore)(nil)
