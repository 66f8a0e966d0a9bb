package tui

import (
	"fmt"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/standardbeagle/estimator/internal/tui/navigation"
)

// safeCall runs fn with panic recovery and returns its error. A panic
// becomes an error carrying the stack.
func safeCall(operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v\nStack trace:\n%s", operation, r, debug.Stack())
		}
	}()
	return fn()
}

// callbackCmd runs a dialog callback off the Update loop.
func callbackCmd(operation string, stamp issued, fallback navigation.State, fn func()) tea.Cmd {
	if fn == nil {
		return nil
	}
	return func() tea.Msg {
		err := safeCall(operation, func() error {
			fn()
			return nil
		})
		return callbackDoneMsg{issued: stamp, op: operation, fallback: fallback, err: err}
	}
}
