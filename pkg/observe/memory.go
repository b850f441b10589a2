package observe

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps observations in process memory. It is meant for a single
// audit run, where the owned set is recorded and then checked.
type MemoryStore struct {
	mu   sync.RWMutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seen: map[string]time.Time{},
		now:  time.Now,
	}
}

func (m *MemoryStore) Record(ctx context.Context, ip string, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.seen[ip]; ok && prev.After(seenAt) {
		return nil
	}
	m.seen[ip] = seenAt
	return nil
}

func (m *MemoryStore) RecentlySeen(ctx context.Context, ip string, window time.Duration) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lastSeen, ok := m.seen[ip]
	if !ok {
		return false, nil
	}
	return within(lastSeen, m.now(), window), nil
}
