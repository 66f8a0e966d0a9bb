package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/standardbeagle/estimator/internal/orchestrator"
	"github.com/standardbeagle/estimator/internal/tui/navigation"
)

// moveCursor keeps c within [0, n).
func moveCursor(c, delta, n int) int {
	if n == 0 {
		return 0
	}
	c += delta
	if c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

// registerPageRoutes handles the catalog page under the closed modal.
func registerPageRoutes(r *MessageRouter) {
	s := navigation.StateClosed
	r.Handle(s, ActionUp, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		m.pageCursor = moveCursor(m.pageCursor, -1, len(m.products))
		return nil
	})
	r.Handle(s, ActionDown, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		m.pageCursor = moveCursor(m.pageCursor, 1, len(m.products))
		return nil
	})
	r.Handle(s, ActionSelect, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		if len(m.products) == 0 {
			return nil
		}
		return m.open(m.products[m.pageCursor].ID, false)
	})
	r.Handle(s, ActionList, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		return m.open("", true)
	})
	r.Handle(s, ActionClose, (*Model).quit)
}

func registerSelectionRoutes(r *MessageRouter) {
	es := navigation.StateEstimateSelection
	r.Handle(es, ActionUp, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		m.cursor = moveCursor(m.cursor, -1, len(m.estimates)+1)
		return nil
	})
	r.Handle(es, ActionDown, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		m.cursor = moveCursor(m.cursor, 1, len(m.estimates)+1)
		return nil
	})
	r.Handle(es, ActionSelect, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		if m.cursor < len(m.estimates) {
			return m.selectEstimate(m.estimates[m.cursor])
		}
		return m.showNewEstimateForm(m.productID)
	})
	r.Handle(es, ActionNew, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		return m.showNewEstimateForm(m.productID)
	})

	rs := navigation.StateRoomSelection
	r.Handle(rs, ActionUp, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		m.cursor = moveCursor(m.cursor, -1, len(m.current.Rooms)+1)
		return nil
	})
	r.Handle(rs, ActionDown, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		m.cursor = moveCursor(m.cursor, 1, len(m.current.Rooms)+1)
		return nil
	})
	r.Handle(rs, ActionSelect, (*Model).selectRoom)
	r.Handle(rs, ActionAddRoom, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		return m.showNewRoomForm(m.current.ID)
	})
	r.Handle(rs, ActionBack, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		if m.productID != "" && len(m.estimates) > 0 {
			m.cursor = 0
			m.nav.TransitionTo(navigation.StateEstimateSelection)
			return nil
		}
		return m.showEstimatesList(m.current.ID, "")
	})
}

func (m *Model) selectRoom(tea.KeyMsg) tea.Cmd {
	if m.loading {
		return nil
	}
	rooms := m.current.RoomList()
	if m.cursor >= len(rooms) {
		return m.showNewRoomForm(m.current.ID)
	}
	room := rooms[m.cursor]
	if m.productID == "" {
		return m.showEstimatesList(m.current.ID, room.ID)
	}
	if m.suite.Guard.Busy(orchestrator.RoomKey(m.current.ID, room.ID)) {
		return m.notifyBusy()
	}
	return m.addProduct(m.current.ID, room.ID)
}

func registerListRoutes(r *MessageRouter) {
	s := navigation.StateEstimatesList
	r.Handle(s, ActionUp, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		m.cursor = moveCursor(m.cursor, -1, len(m.rows()))
		return nil
	})
	r.Handle(s, ActionDown, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		m.cursor = moveCursor(m.cursor, 1, len(m.rows()))
		return nil
	})
	r.Handle(s, ActionSelect, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		row, ok := m.selectedRow()
		if !ok {
			return nil
		}
		switch row.kind {
		case rowEstimate:
			m.expanded[row.estimateID] = !m.expanded[row.estimateID]
		case rowRoom:
			m.expanded[row.roomID] = !m.expanded[row.roomID]
		}
		return nil
	})
	r.Handle(s, ActionNew, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		return m.showNewEstimateForm("")
	})
	r.Handle(s, ActionAddRoom, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		row, ok := m.selectedRow()
		if !ok {
			return nil
		}
		m.productID = ""
		return m.showNewRoomForm(row.estimateID)
	})
	r.Handle(s, ActionDelete, func(m *Model, _ tea.KeyMsg) tea.Cmd {
		row, ok := m.selectedRow()
		if !ok {
			return nil
		}
		switch row.kind {
		case rowEstimate:
			return m.fire("remove estimate", func(ctx context.Context, s *orchestrator.Suite) {
				s.Estimates.RemoveEstimate(ctx, row.estimateID)
			})
		case rowRoom:
			return m.fire("remove room", func(ctx context.Context, s *orchestrator.Suite) {
				s.Rooms.RemoveRoom(ctx, row.estimateID, row.roomID)
			})
		default:
			if m.suite.Guard.Busy(orchestrator.RoomKey(row.estimateID, row.roomID)) {
				return m.notifyBusy()
			}
			return m.removeProduct(row)
		}
	})
}

func (m *Model) selectedRow() (listRow, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return listRow{}, false
	}
	return rows[m.cursor], true
}
