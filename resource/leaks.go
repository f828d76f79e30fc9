package resource

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// LeakReport describes a resource that stayed alive longer than expected.
type LeakReport struct {
	ID        uuid.UUID
	Kind      string
	CreatedAt time.Time
	Age       time.Duration
}

// Leaks returns the resources older than olderThan, oldest first.
// A non-positive olderThan falls back to the age set with WithLeakDetection;
// if that is unset too, every active resource is reported.
func (m *Manager) Leaks(olderThan time.Duration) []LeakReport {
	if olderThan <= 0 {
		olderThan = m.opts.leakAge
	}
	now := m.opts.now()

	m.mu.Lock()
	var out []LeakReport
	for _, rec := range m.active {
		age := now.Sub(rec.createdAt)
		if age < olderThan {
			continue
		}
		out = append(out, LeakReport{ID: rec.id, Kind: rec.kind, CreatedAt: rec.createdAt, Age: age})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// StartLeakMonitor checks for leaks every interval until ctx is done.
// Each non-empty report is logged and passed to fn when fn is not nil.
// The returned channel is closed when the monitor stops.
func (m *Manager) StartLeakMonitor(ctx context.Context, interval time.Duration, fn func([]LeakReport)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				leaks := m.Leaks(0)
				if len(leaks) == 0 {
					continue
				}
				m.logger().Warn("possible native resource leaks",
					"count", len(leaks), "oldest", leaks[0].Kind, "age", leaks[0].Age)
				if fn != nil {
					fn(leaks)
				}
			}
		}
	}()
	return done
}
