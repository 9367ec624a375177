package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moolen/faultline/internal/models"
)

// MemoryStore serves records held in process. Replace swaps the whole
// window atomically; snapshots already handed out are not affected.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot
	err  error
}

// NewMemoryStore returns a store holding records. Records are assumed
// valid; duplicates keep their first occurrence.
func NewMemoryStore(records ...models.ErrorRecord) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(records)
	return s
}

// Replace installs a new record window.
func (s *MemoryStore) Replace(records []models.ErrorRecord) {
	snap := &Snapshot{
		Records:     make([]models.ErrorRecord, 0, len(records)),
		Diagnostics: []models.Diagnostic{},
		LoadedAt:    time.Now(),
	}
	seen := make(map[int64]struct{}, len(records))
	for i, r := range records {
		if _, dup := seen[r.ID]; dup {
			id := r.ID
			snap.Diagnostics = append(snap.Diagnostics, models.Diagnostic{Index: i, RecordID: &id, Reason: "duplicate id"})
			continue
		}
		if err := r.Validate(); err != nil {
			id := r.ID
			snap.Diagnostics = append(snap.Diagnostics, models.Diagnostic{Index: i, RecordID: &id, Reason: err.Error()})
			continue
		}
		seen[r.ID] = struct{}{}
		snap.Records = append(snap.Records, r)
	}
	sort.Slice(snap.Records, func(i, j int) bool { return snap.Records[i].ID < snap.Records[j].ID })

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// SetError makes every subsequent Snapshot and Ping fail with err. A nil
// err restores normal operation.
func (s *MemoryStore) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *MemoryStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *MemoryStore) Close() error { return nil }
