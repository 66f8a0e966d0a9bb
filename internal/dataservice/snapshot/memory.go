package snapshot

import (
	"context"
	"sync"
)

// Memory keeps the last saved state in process. Used for tests and
// throwaway sessions.
type Memory struct {
	mu    sync.Mutex
	state State
	saves int
}

func NewMemory() *Memory {
	return &Memory{state: Empty()}
}

func (m *Memory) Load(context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *Memory) Save(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Close() error { return nil }
