// internal/app/store/snapshots/memory.go
package snapshotstore

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/stratadash/internal/domain/models"
)

// Memory is an in-process snapshot store with the same read semantics as
// Store. The render CLI and tests use it.
type Memory struct {
	mu    sync.RWMutex
	snaps []models.Snapshot
}

// NewMemory returns a Memory holding snaps.
func NewMemory(snaps ...models.Snapshot) *Memory {
	m := &Memory{}
	for _, s := range snaps {
		_ = m.Upsert(context.Background(), s)
	}
	return m
}

// Upsert replaces the snapshot with the same period, kind and test flag.
func (m *Memory) Upsert(_ context.Context, snap models.Snapshot) error {
	snap.Period = models.MonthStart(snap.Period)
	if snap.Kind == "" {
		snap.Kind = models.SnapshotKindMonthly
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = snap.Period
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.snaps {
		if cur.Period.Equal(snap.Period) && cur.Kind == snap.Kind && cur.IsTest == snap.IsTest {
			m.snaps[i] = snap
			return nil
		}
	}
	m.snaps = append(m.snaps, snap)
	return nil
}

// Latest returns the most recent non-test snapshot.
func (m *Memory) Latest(_ context.Context) (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *models.Snapshot
	for i := range m.snaps {
		s := &m.snaps[i]
		if s.IsTest {
			continue
		}
		if best == nil || s.Period.After(best.Period) ||
			(s.Period.Equal(best.Period) && s.TakenAt.After(best.TakenAt)) {
			best = s
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	out := *best
	return &out, nil
}

// Monthly returns one snapshot per month between from and to inclusive.
func (m *Memory) Monthly(_ context.Context, from *time.Time, to time.Time) ([]models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collapseMonthly(m.snaps, from, to), nil
}

// DeleteBefore removes snapshots for periods before cutoff.
func (m *Memory) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	cutoff = models.MonthStart(cutoff)
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.snaps[:0]
	var removed int64
	for _, s := range m.snaps {
		if s.Period.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.snaps = kept
	return removed, nil
}

// Count returns the number of stored snapshots.
func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.snaps)), nil
}
