package store

import (
	"sort"
	"sync"

	"barledger/backend/internal/domain"
)

// RecordStore is the authoritative in-memory collection of sale records for
// the active session. It is keyed by record identity: two records are the
// same iff their IDs match. Insertion order carries no meaning; every view
// that needs an order sorts a snapshot explicitly.
type RecordStore struct {
	mu       sync.RWMutex
	records  map[string]domain.Sale
	onChange func([]domain.Sale)
}

func New() *RecordStore {
	return &RecordStore{records: make(map[string]domain.Sale)}
}

// SetOnChange registers a hook invoked with a fresh snapshot after every
// mutation. At most one hook is supported; it runs outside the store lock.
func (s *RecordStore) SetOnChange(fn func([]domain.Sale)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// ReplaceAll atomically swaps the entire collection. Used by the bulk load
// and the cache restore; observers never see a partially replaced state.
func (s *RecordStore) ReplaceAll(records []domain.Sale) {
	s.mu.Lock()
	next := make(map[string]domain.Sale, len(records))
	for _, r := range records {
		next[r.ID] = r
	}
	s.records = next
	snap, hook := s.snapshotLocked(), s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
}

// Upsert inserts the record if its id is absent, otherwise replaces the
// existing record wholesale. Updates always carry a full replacement.
func (s *RecordStore) Upsert(record domain.Sale) {
	s.mu.Lock()
	s.records[record.ID] = record
	snap, hook := s.snapshotLocked(), s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
}

// RemoveByID deletes the record with that identity. Removing an absent id
// is a no-op, not an error: a deletion event may arrive after the record
// was already removed locally.
func (s *RecordStore) RemoveByID(id string) {
	s.mu.Lock()
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.records, id)
	snap, hook := s.snapshotLocked(), s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
}

// Get returns the record with that identity, if present.
func (s *RecordStore) Get(id string) (domain.Sale, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

// Snapshot returns a point-in-time copy of the collection, sorted by date
// descending (newest first) with id as tiebreak. The copy never aliases
// internal state.
func (s *RecordStore) Snapshot() []domain.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the current record count.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *RecordStore) snapshotLocked() []domain.Sale {
	out := make([]domain.Sale, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out
}
