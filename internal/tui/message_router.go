package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/standardbeagle/estimator/internal/tui/navigation"
)

// MessageHandler gets first look at key presses, ahead of the state table.
type MessageHandler interface {
	CanHandle(msg tea.KeyMsg, model *Model) bool
	HandleMessage(msg tea.KeyMsg, model *Model) tea.Cmd
}

// KeyHandler handles one action in one state.
type KeyHandler func(m *Model, msg tea.KeyMsg) tea.Cmd

type routeKey struct {
	state  navigation.State
	action Action
}

// MessageRouter dispatches key presses through a (state, action) table.
type MessageRouter struct {
	handlers []MessageHandler
	routes   map[routeKey]KeyHandler
}

// NewMessageRouter creates the router with every route registered.
func NewMessageRouter() *MessageRouter {
	r := &MessageRouter{routes: make(map[routeKey]KeyHandler)}

	// Dialogs first: while one is open nothing underneath sees keys.
	r.RegisterHandler(dialogHandler{})
	r.RegisterHandler(errorViewHandler{})

	registerPageRoutes(r)
	registerSelectionRoutes(r)
	registerFormRoutes(r)
	registerListRoutes(r)

	// Every open state can be closed and every state can quit.
	for _, s := range navigation.States {
		r.Handle(s, ActionQuit, (*Model).quit)
		if s != navigation.StateClosed {
			r.HandleIfAbsent(s, ActionBack, closeHandler)
			r.HandleIfAbsent(s, ActionClose, closeHandler)
		}
	}
	return r
}

// RegisterHandler adds a priority handler.
func (r *MessageRouter) RegisterHandler(h MessageHandler) {
	r.handlers = append(r.handlers, h)
}

// Handle registers fn for action in state, replacing any earlier entry.
func (r *MessageRouter) Handle(state navigation.State, action Action, fn KeyHandler) {
	r.routes[routeKey{state, action}] = fn
}

// HandleIfAbsent registers fn unless a handler already exists.
func (r *MessageRouter) HandleIfAbsent(state navigation.State, action Action, fn KeyHandler) {
	k := routeKey{state, action}
	if _, ok := r.routes[k]; !ok {
		r.routes[k] = fn
	}
}

// Lookup returns the handler for action in state.
func (r *MessageRouter) Lookup(state navigation.State, action Action) (KeyHandler, bool) {
	fn, ok := r.routes[routeKey{state, action}]
	return fn, ok
}

// Route dispatches one key press.
func (r *MessageRouter) Route(msg tea.KeyMsg, m *Model) tea.Cmd {
	for _, h := range r.handlers {
		if h.CanHandle(msg, m) {
			return h.HandleMessage(msg, m)
		}
	}
	state := m.nav.Current()
	action := keys.action(msg, m.formMode())
	if fn, ok := r.Lookup(state, action); ok {
		return fn(m, msg)
	}
	return nil
}

func closeHandler(m *Model, _ tea.KeyMsg) tea.Cmd {
	return m.close()
}

// errorViewHandler returns from the error view on any key.
type errorViewHandler struct{}

func (errorViewHandler) CanHandle(msg tea.KeyMsg, m *Model) bool {
	return m.nav.Current() == navigation.StateError && keys.action(msg, false) != ActionQuit
}

func (errorViewHandler) HandleMessage(_ tea.KeyMsg, m *Model) tea.Cmd {
	return m.returnFromError()
}
