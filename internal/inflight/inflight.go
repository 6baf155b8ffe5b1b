// Package inflight tracks requests currently being processed so equivalent
// duplicates can be rejected. Entries expire after a TTL in case a crashed
// pipeline never removes its key.
package inflight

import (
	"sync"
	"time"
)

type entry struct {
	value   any
	created time.Time
}

// TTLMap is a concurrency-safe map whose entries expire after TTL.
type TTLMap struct {
	mu      sync.RWMutex
	TTL     time.Duration
	entries map[string]entry
}

// New returns a TTLMap with the given entry lifetime.
func New(ttl time.Duration) *TTLMap {
	return &TTLMap{
		TTL:     ttl,
		entries: make(map[string]entry),
	}
}

// Store saves a value under key.
func (m *TTLMap) Store(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: value, created: time.Now()}
}

// Load returns the value stored under key, or nil when absent or expired.
func (m *TTLMap) Load(key string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || time.Since(e.created) > m.TTL {
		return nil
	}
	return e.value
}

// Delete removes the entry stored under key.
func (m *TTLMap) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// CleaningBackground purges expired entries every cleanup interval.
func (m *TTLMap) CleaningBackground(cleanup time.Duration) {
	go func() {
		for range time.Tick(cleanup) {
			m.mu.Lock()
			for key, e := range m.entries {
				if time.Since(e.created) > m.TTL {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}()
}
