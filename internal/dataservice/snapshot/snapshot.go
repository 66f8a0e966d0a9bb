// Package snapshot persists the full estimate state after every committed
// change. Each backend stores one JSON document.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

// State is everything the local backend owns.
type State struct {
	Version   int64                        `json:"version"`
	WrittenBy string                       `json:"written_by,omitempty"`
	Estimates map[string]estimate.Estimate `json:"estimates"`
}

// Empty returns a state with no estimates.
func Empty() State {
	return State{Estimates: make(map[string]estimate.Estimate)}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	cp := State{Version: s.Version, WrittenBy: s.WrittenBy, Estimates: make(map[string]estimate.Estimate, len(s.Estimates))}
	for id, e := range s.Estimates {
		cp.Estimates[id] = e.Clone()
	}
	return cp
}

// Store loads and saves State. Load returns Empty when nothing was saved yet.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
	Close() error
}

func encode(state State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

func decode(data []byte) (State, error) {
	if len(data) == 0 {
		return Empty(), nil
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	if state.Estimates == nil {
		state.Estimates = make(map[string]estimate.Estimate)
	}
	return state, nil
}
