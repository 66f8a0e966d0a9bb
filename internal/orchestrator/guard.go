package orchestrator

import (
	"fmt"
	"sort"
	"sync"
)

// SubmitGuard disables a control while its request is pending. Keys name
// the control: a form, or the room whose products are being changed.
type SubmitGuard struct {
	mu       sync.Mutex
	held     map[string]struct{}
	onChange func()
}

func NewSubmitGuard() *SubmitGuard {
	return &SubmitGuard{held: make(map[string]struct{})}
}

// OnChange sets a callback run after every acquire or release.
func (g *SubmitGuard) OnChange(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = fn
}

// TryAcquire disables key. It reports false when key is already disabled.
func (g *SubmitGuard) TryAcquire(key string) bool {
	g.mu.Lock()
	if _, busy := g.held[key]; busy {
		g.mu.Unlock()
		return false
	}
	g.held[key] = struct{}{}
	fn := g.onChange
	g.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

// Release re-enables key.
func (g *SubmitGuard) Release(key string) {
	g.mu.Lock()
	_, held := g.held[key]
	delete(g.held, key)
	fn := g.onChange
	g.mu.Unlock()
	if held && fn != nil {
		fn()
	}
}

// Busy reports whether key is disabled.
func (g *SubmitGuard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.held[key]
	return busy
}

// Held returns the disabled keys, sorted.
func (g *SubmitGuard) Held() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	keys := make([]string, 0, len(g.held))
	for k := range g.held {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset re-enables everything.
func (g *SubmitGuard) Reset() {
	g.mu.Lock()
	g.held = make(map[string]struct{})
	fn := g.onChange
	g.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// EstimateFormKey guards the new estimate form.
const EstimateFormKey = "estimate-form"

// RoomFormKey guards the new room form of an estimate.
func RoomFormKey(estimateID string) string {
	return fmt.Sprintf("room-form:%s", estimateID)
}

// RoomKey guards product changes in one room.
func RoomKey(estimateID, roomID string) string {
	return fmt.Sprintf("room:%s/%s", estimateID, roomID)
}

// EstimateKey guards removal of an estimate.
func EstimateKey(estimateID string) string {
	return fmt.Sprintf("estimate:%s", estimateID)
}
