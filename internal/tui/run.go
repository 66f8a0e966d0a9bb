package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run runs m until the user quits or ctx is done. Bridge requests are
// forwarded to the program while it runs.
func Run(ctx context.Context, m *Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case msg := <-m.updateChan:
				p.Send(msg)
			case <-done:
				return
			}
		}
	}()

	_, err := p.Run()
	close(done)
	m.Shutdown()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
