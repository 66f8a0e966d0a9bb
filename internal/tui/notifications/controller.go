package notifications

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Level selects the notification styling.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
)

// TickFunc schedules msg after d. tea.Tick in production.
type TickFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// Controller holds the one notification line under the modal.
type Controller struct {
	message  string
	level    Level
	seq      uint64
	duration time.Duration
	tick     TickFunc
}

// NewController creates a controller clearing after duration.
func NewController(duration time.Duration) *Controller {
	if duration <= 0 {
		duration = 3 * time.Second
	}
	return &Controller{duration: duration, tick: tea.Tick}
}

// SetTicker replaces the timer used to clear notifications.
func (c *Controller) SetTicker(fn TickFunc) {
	c.tick = fn
}

// Show replaces the current notification. The returned command clears it
// unless a newer one was shown meanwhile.
func (c *Controller) Show(level Level, message string) tea.Cmd {
	c.seq++
	c.message = message
	c.level = level
	seq := c.seq
	return c.tick(c.duration, func(time.Time) tea.Msg {
		return ClearMsg{seq: seq}
	})
}

// Clear drops the current notification.
func (c *Controller) Clear() {
	c.message = ""
}

// HandleMsg consumes clear messages and reports whether msg was one.
func (c *Controller) HandleMsg(msg tea.Msg) bool {
	clear, ok := msg.(ClearMsg)
	if !ok {
		return false
	}
	if clear.seq == c.seq {
		c.Clear()
	}
	return true
}

// Current returns the visible notification.
func (c *Controller) Current() (string, Level, bool) {
	return c.message, c.level, c.message != ""
}

// ClearMsg is sent when a notification expires.
type ClearMsg struct {
	seq uint64
}
