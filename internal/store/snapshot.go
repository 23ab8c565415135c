// Package store holds the single shared CandidateSet slot. The scheduler is
// the only writer; query handlers are concurrent readers. The lock covers
// only the pointer swap on write and the bounded copy on read, never a
// network call or the merge computation.
package store

import (
	"sync"

	"fundingflow/internal/model"
)

type SnapshotStore struct {
	mu  sync.RWMutex
	set model.CandidateSet
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Replace swaps in a freshly built set. The caller hands over ownership and
// must not mutate the set afterwards.
func (s *SnapshotStore) Replace(set model.CandidateSet) {
	s.mu.Lock()
	s.set = set
	s.mu.Unlock()
}

// Top returns an independent copy of the first n candidates of the current
// set, fewer when the set is smaller. An empty result is the normal state
// before the first cycle completes.
func (s *SnapshotStore) Top(n int) []model.PositionCandidate {
	if n <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.set.Candidates) {
		n = len(s.set.Candidates)
	}
	out := make([]model.PositionCandidate, n)
	copy(out, s.set.Candidates[:n])
	return out
}

// Len reports the size of the current set.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.set.Candidates)
}

// CycleID reports the identifier of the currently published set, empty
// before the first publish.
func (s *SnapshotStore) CycleID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.CycleID
}
