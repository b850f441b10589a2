package observe

import (
	"context"
	"time"
)

// Store remembers when public addresses were last seen allocated to a
// monitored resource.
type Store interface {
	Record(ctx context.Context, ip string, seenAt time.Time) error
	// RecentlySeen reports whether ip was recorded no longer than window ago.
	RecentlySeen(ctx context.Context, ip string, window time.Duration) (bool, error)
}

// Gate asks a Store whether an address was allocated recently. The window is
// fixed at construction and passed unchanged on every call.
type Gate struct {
	store  Store
	window time.Duration
}

func NewGate(store Store, window time.Duration) *Gate {
	return &Gate{store: store, window: window}
}

func (g *Gate) RecentlySeen(ctx context.Context, ip string) (bool, error) {
	return g.store.RecentlySeen(ctx, ip, g.window)
}

func (g *Gate) Window() time.Duration {
	return g.window
}

// RecordAll marks every ip as seen at seenAt, stopping at the first error.
func RecordAll(ctx context.Context, s Store, ips []string, seenAt time.Time) error {
	for _, ip := range ips {
		if err := s.Record(ctx, ip, seenAt); err != nil {
			return err
		}
	}
	return nil
}

// within reports whether lastSeen is inside window relative to now. The
// boundary is inclusive.
func within(lastSeen, now time.Time, window time.Duration) bool {
	return !lastSeen.Before(now.Add(-window))
}
