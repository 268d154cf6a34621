// Package cache provides an in-process TTL cache and a janitor that sweeps
// expired entries.
package cache

import (
	"sync"
	"time"

	applog "rateio/internal/log"
)

// Cache is the generic cache contract.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is a cache that can drop its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans the registered caches.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	logger      *applog.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
	stopOnce    sync.Once
}

func NewManager(logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Default()
	}
	return &Manager{
		logger:      logger.WithComponent(applog.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds caches to the sweep.
func (m *Manager) Register(caches ...Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, caches...)
}

// StartCleanup sweeps every interval until Stop. Calling it twice is a no-op.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

// Sweep cleans all registered caches once and returns the entries removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "removed", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup loop and waits for it to exit.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.cleanupDone
		}
	})
}
