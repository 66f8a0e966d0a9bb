// Package local implements the estimate backend in process. State lives in
// memory, changes are applied in cloned transactions and every commit is
// written through a snapshot store.
package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/internal/dataservice/snapshot"
	"github.com/standardbeagle/estimator/pkg/estimate"
	"github.com/standardbeagle/estimator/pkg/events"
)

// Rule checks a candidate state before it is committed.
type Rule func(state snapshot.State) error

// Store provides a transactional store for estimates.
type Store struct {
	mu         sync.RWMutex
	state      snapshot.State
	persist    snapshot.Store
	rules      []Rule
	instanceID string
	nowFn      func() time.Time
}

// NewStore loads the persisted state and returns a store writing through
// persist. A nil persist keeps everything in memory.
func NewStore(ctx context.Context, persist snapshot.Store, rules ...Rule) (*Store, error) {
	if persist == nil {
		persist = snapshot.NewMemory()
	}
	state, err := persist.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Store{
		state:      state,
		persist:    persist,
		rules:      rules,
		instanceID: uuid.NewString(),
		nowFn:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Tx is a mutable copy of the state.
type Tx struct {
	state   snapshot.State
	changes []events.Event
	now     time.Time
}

// Now is the transaction timestamp.
func (tx *Tx) Now() time.Time { return tx.now }

// Estimate returns a copy of an estimate.
func (tx *Tx) Estimate(id string) (estimate.Estimate, bool) {
	e, ok := tx.state.Estimates[id]
	if !ok {
		return estimate.Estimate{}, false
	}
	return e.Clone(), true
}

// Room returns a copy of a room, failing with a not-found Failure.
func (tx *Tx) Room(estimateID, roomID string) (estimate.Estimate, estimate.Room, error) {
	e, ok := tx.Estimate(estimateID)
	if !ok {
		return estimate.Estimate{}, estimate.Room{}, dataservice.NotFound("estimate", estimateID)
	}
	r, ok := e.Rooms[roomID]
	if !ok {
		return estimate.Estimate{}, estimate.Room{}, dataservice.NotFound("room", roomID)
	}
	return e, r, nil
}

// PutEstimate stores e.
func (tx *Tx) PutEstimate(e estimate.Estimate) {
	tx.state.Estimates[e.ID] = e
}

// PutRoom stores r inside its estimate.
func (tx *Tx) PutRoom(estimateID string, r estimate.Room) {
	e := tx.state.Estimates[estimateID]
	if e.Rooms == nil {
		e.Rooms = make(map[string]estimate.Room)
	}
	e.Rooms[r.ID] = r
	tx.state.Estimates[estimateID] = e
}

// DeleteEstimate removes an estimate.
func (tx *Tx) DeleteEstimate(id string) {
	delete(tx.state.Estimates, id)
}

// Record queues an event to publish after commit.
func (tx *Tx) Record(ev events.Event) {
	tx.changes = append(tx.changes, ev)
}

// RunInTransaction applies fn to a copy of the state. The copy is checked by
// every rule, saved, then swapped in. Nothing is visible when any step fails.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Tx) error) ([]events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{state: s.state.Clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return nil, err
	}
	for _, rule := range s.rules {
		if err := rule(tx.state); err != nil {
			return nil, err
		}
	}

	tx.state.Version = s.state.Version + 1
	tx.state.WrittenBy = s.instanceID
	if err := s.persist.Save(ctx, tx.state); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}
	s.state = tx.state
	return tx.changes, nil
}

// View runs fn against a read-only copy of the state.
func (s *Store) View(_ context.Context, fn func(state snapshot.State) error) error {
	s.mu.RLock()
	snap := s.state.Clone()
	s.mu.RUnlock()
	return fn(snap)
}

// Reload picks up a newer state written by another process. It reports
// whether the in-memory state changed.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	loaded, err := s.persist.Load(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if loaded.WrittenBy == s.instanceID || loaded.Version <= s.state.Version {
		return false, nil
	}
	s.state = loaded
	return true, nil
}

// Version returns the committed state version.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Version
}

// DefaultRules returns the commit checks every store applies.
func DefaultRules() []Rule {
	return []Rule{uniqueProductsRule, primaryExclusivityRule}
}

func uniqueProductsRule(state snapshot.State) error {
	for _, e := range state.Estimates {
		for _, r := range e.Rooms {
			seen := make(map[string]bool, len(r.Products))
			for _, p := range r.Products {
				if seen[p.ID] {
					return &dataservice.Failure{Data: dataservice.ErrorData{
						Duplicate:         true,
						ExistingProductID: p.ID,
						RoomID:            r.ID,
						EstimateID:        e.ID,
						Message:           fmt.Sprintf("product %q appears twice in room %q", p.ID, r.Name),
					}}
				}
				seen[p.ID] = true
			}
		}
	}
	return nil
}

func primaryExclusivityRule(state snapshot.State) error {
	for _, e := range state.Estimates {
		for _, r := range e.Rooms {
			var primary *estimate.ProductLineItem
			for i := range r.Products {
				p := r.Products[i]
				if !p.IsPrimaryCategory {
					continue
				}
				if primary != nil {
					return &dataservice.Failure{Data: dataservice.ErrorData{
						PrimaryConflict:     true,
						ExistingProductID:   primary.ID,
						ExistingProductName: primary.Name,
						NewProductID:        p.ID,
						NewProductName:      p.Name,
						RoomID:              r.ID,
						EstimateID:          e.ID,
						Message:             fmt.Sprintf("room %q already holds a primary product", r.Name),
					}}
				}
				primary = &p
			}
		}
	}
	return nil
}
