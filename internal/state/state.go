// Package state remembers the outcome of the last harvest per source so an
// unchanged catalogue is not harvested twice.
package state

import (
	"context"
	"sync"
	"time"
)

// RunState is the outcome of the last completed harvest of a source.
type RunState struct {
	Source            string    `json:"source"`
	Version           string    `json:"version"`
	RunID             string    `json:"runId"`
	Records           int64     `json:"records"`
	DataflowsExpanded int       `json:"dataflowsExpanded"`
	DataflowsSkipped  int       `json:"dataflowsSkipped"`
	FinishedAt        time.Time `json:"finishedAt"`
}

// Store loads and saves RunState. Load returns nil without error when the
// source was never harvested.
type Store interface {
	Load(ctx context.Context, source string) (*RunState, error)
	Save(ctx context.Context, st *RunState) error
}

// MemoryStore keeps state for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]RunState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]RunState)}
}

func (m *MemoryStore) Load(_ context.Context, source string) (*RunState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.states[source]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MemoryStore) Save(_ context.Context, st *RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[st.Source] = *st
	return nil
}
