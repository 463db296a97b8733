package service

import (
	"sort"
	"sync"
	"time"

	"github.com/Igor555433/evia-ecosystem/model"
)

// RunStore is an in-memory registry of pipeline runs. Bundles live on
// disk under the runs directory; the store only tracks run metadata for
// the API surface.
type RunStore struct {
	runs    map[string]*model.Run
	mu      sync.RWMutex
	maxRuns int // Maximum runs to keep, 0 = unlimited
}

// NewRunStore creates a run store keeping at most maxRuns entries.
func NewRunStore(maxRuns int) *RunStore {
	if maxRuns < 0 {
		maxRuns = 0
	}
	return &RunStore{
		runs:    make(map[string]*model.Run),
		maxRuns: maxRuns,
	}
}

func (s *RunStore) Save(run *model.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.UpdatedAt = time.Now()
	s.runs[run.ID] = run

	s.cleanupIfNeeded()
}

func (s *RunStore) Get(id string) *model.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs[id]
}

// GetByTenant returns a tenant's runs, newest first.
func (s *RunStore) GetByTenant(tenant string) []*model.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Run
	for _, r := range s.runs {
		if r.Tenant == tenant {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *RunStore) UpdateStatus(id, status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[id]; ok {
		r.Status = status
		r.ErrorMsg = errMsg
		r.UpdatedAt = time.Now()
	}
}

// Complete records the outcome of a finished run.
func (s *RunStore) Complete(id, status, gateStatus, bundlePath string, questions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[id]; ok {
		r.Status = status
		r.GateStatus = gateStatus
		r.BundlePath = bundlePath
		r.Questions = questions
		r.UpdatedAt = time.Now()
	}
}

// Count returns the number of runs in the store.
func (s *RunStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// cleanupIfNeeded removes the oldest runs once the store exceeds maxRuns.
// Must be called with the lock held.
func (s *RunStore) cleanupIfNeeded() {
	if s.maxRuns <= 0 || len(s.runs) <= s.maxRuns {
		return
	}

	runs := make([]*model.Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})

	for i := 0; i < len(runs)-s.maxRuns; i++ {
		delete(s.runs, runs[i].ID)
	}
}
