package storage

import (
	"sync"
	"time"
)

// DefaultCleanupInterval is how often expired entries are swept.
const DefaultCleanupInterval = time.Minute

// timedEntry wraps a value with its expiry.
type timedEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// TTLMap is a concurrency-safe map whose entries expire a fixed duration
// after their last write. Expired entries are invisible to readers
// immediately and are reclaimed by a background sweep.
type TTLMap[T any] struct {
	mu      sync.RWMutex
	entries map[string]*timedEntry[T]
	ttl     time.Duration
	now     func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupDone     chan struct{}
	closeOnce       sync.Once
}

// TTLMapOption configures a TTLMap.
type TTLMapOption func(*ttlMapOptions)

type ttlMapOptions struct {
	cleanupInterval time.Duration
	now             func() time.Time
}

// WithCleanupInterval sets a custom cleanup interval.
func WithCleanupInterval(interval time.Duration) TTLMapOption {
	return func(o *ttlMapOptions) {
		if interval > 0 {
			o.cleanupInterval = interval
		}
	}
}

// WithClock replaces time.Now, for tests that need to control expiry.
func WithClock(now func() time.Time) TTLMapOption {
	return func(o *ttlMapOptions) {
		o.now = now
	}
}

// NewTTLMap creates a TTLMap and starts its cleanup goroutine.
func NewTTLMap[T any](ttl time.Duration, opts ...TTLMapOption) *TTLMap[T] {
	o := ttlMapOptions{cleanupInterval: DefaultCleanupInterval, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	m := &TTLMap[T]{
		entries:         make(map[string]*timedEntry[T]),
		ttl:             ttl,
		now:             o.now,
		cleanupInterval: o.cleanupInterval,
		stopCleanup:     make(chan struct{}),
		cleanupDone:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Set stores value under key and restarts its TTL.
func (m *TTLMap[T]) Set(key string, value T) {
	now := m.now()
	m.mu.Lock()
	m.entries[key] = &timedEntry[T]{value: value, expiresAt: now.Add(m.ttl)}
	m.mu.Unlock()
}

// Get returns the live value stored under key.
func (m *TTLMap[T]) Get(key string) (T, bool) {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || now.After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Take returns and removes the live value stored under key.
func (m *TTLMap[T]) Take(key string) (T, bool) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	delete(m.entries, key)
	if !ok || now.After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Delete removes key.
func (m *TTLMap[T]) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Values returns every live value.
func (m *TTLMap[T]) Values() []T {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, 0, len(m.entries))
	for _, e := range m.entries {
		if !now.After(e.expiresAt) {
			out = append(out, e.value)
		}
	}
	return out
}

// DeleteFunc removes every live entry for which match returns true and
// reports how many were removed.
func (m *TTLMap[T]) DeleteFunc(match func(T) bool) int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			continue
		}
		if match(e.value) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Close stops the background cleanup goroutine and waits for it to finish.
func (m *TTLMap[T]) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCleanup)
		<-m.cleanupDone
	})
	return nil
}

func (m *TTLMap[T]) cleanupLoop() {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCleanup:
			return
		case <-ticker.C:
			m.cleanupExpired()
		}
	}
}

// cleanupExpired collects expired keys under the read lock, then deletes
// them under the write lock.
func (m *TTLMap[T]) cleanupExpired() {
	now := m.now()

	m.mu.RLock()
	var expired []string
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			expired = append(expired, k)
		}
	}
	m.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	m.mu.Lock()
	for _, k := range expired {
		// Re-check: the key may have been rewritten since the read phase.
		if e, ok := m.entries[k]; ok && now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
}

// rawLen counts entries including expired ones not yet swept.
func (m *TTLMap[T]) rawLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
