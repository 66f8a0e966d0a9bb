// Package orchestrator holds the estimate, room and product command layer
// that sits between the terminal modal and the data service.
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

// Navigator is the public API of the view state machine. Orchestrators use
// it to move the modal after dialog-driven follow-ups.
type Navigator interface {
	ShowEstimatesList(expandEstimateID, expandRoomID string)
	ShowNewEstimateForm(productID string)
	ShowRoomSelection(estimateID string)
}

// DialogType selects the dialog styling.
type DialogType string

const (
	DialogInfo     DialogType = "info"
	DialogConfirm  DialogType = "confirm"
	DialogSuccess  DialogType = "success"
	DialogError    DialogType = "error"
	DialogConflict DialogType = "conflict"
)

// DialogButton is an extra button next to confirm and cancel.
type DialogButton struct {
	Text    string
	Action  string
	OnClick func()
}

// DialogOptions describes one dialog. Callbacks run after the dialog closes.
type DialogOptions struct {
	Title             string
	Message           string
	Type              DialogType
	Action            string
	ConfirmText       string
	CancelText        string
	AdditionalButtons []DialogButton
	OnConfirm         func()
	OnCancel          func()
}

// VariationPrompt asks the user to pick one variation of a product.
type VariationPrompt struct {
	Title       string
	ProductID   string
	ProductName string
	Variations  []estimate.Variation
}

// ErrSelectionCancelled is returned when the user dismisses a variation prompt.
var ErrSelectionCancelled = errors.New("variation selection cancelled")

// Dialogs shows dialogs. Show returns immediately; SelectVariation blocks
// until the user answers or ctx is done.
type Dialogs interface {
	Show(opts DialogOptions)
	SelectVariation(ctx context.Context, prompt VariationPrompt) (string, error)
}

// Customer is what the host page knows about the shopper.
type Customer struct {
	Postcode string
}

// Session is the state of one modal opening. It replaces page globals: it
// is created when the modal opens and closed when it closes.
type Session struct {
	ID       string
	Customer Customer

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	listeners []func()
}

// NewSession starts a session whose context derives from parent.
func NewSession(parent context.Context, customer Customer) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{ID: uuid.NewString(), Customer: customer, ctx: ctx, cancel: cancel}
}

// Context is cancelled when the session closes. Waits on the user observe
// it; backend calls made through a Suite do not.
func (s *Session) Context() context.Context { return s.ctx }

// OnClose registers fn to run once when the session closes. It runs
// immediately if the session is already closed.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Close cancels the context and notifies listeners in registration order.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	listeners := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	s.cancel()
	for _, fn := range listeners {
		fn()
	}
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
