package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/standardbeagle/estimator/internal/orchestrator"
	"github.com/standardbeagle/estimator/internal/tui/navigation"
	"github.com/standardbeagle/estimator/internal/tui/notifications"
	"github.com/standardbeagle/estimator/internal/tui/overlay"
	"github.com/standardbeagle/estimator/pkg/estimate"
)

var (
	modalStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	priceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	busyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	noticeStyles = map[notifications.Level]lipgloss.Style{
		notifications.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		notifications.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		notifications.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

type rowKind int

const (
	rowEstimate rowKind = iota
	rowRoom
	rowProduct
)

// listRow is one line of the estimates list.
type listRow struct {
	kind         rowKind
	estimateID   string
	roomID       string
	productID    string
	productIndex int
	name         string
	detail       string
	totals       estimate.Totals
}

// rows flattens the estimates list down to the expanded rooms.
func (m *Model) rows() []listRow {
	var rows []listRow
	for _, e := range m.estimates {
		rooms := e.RoomList()
		rows = append(rows, listRow{
			kind:       rowEstimate,
			estimateID: e.ID,
			name:       e.Name,
			detail:     fmt.Sprintf("%d rooms", len(rooms)),
			totals:     e.Totals(),
		})
		if !m.expanded[e.ID] {
			continue
		}
		for _, r := range rooms {
			rows = append(rows, listRow{
				kind:       rowRoom,
				estimateID: e.ID,
				roomID:     r.ID,
				name:       r.Name,
				detail:     fmt.Sprintf("%.1f×%.1fm", r.Width, r.Length),
				totals:     r.Totals(),
			})
			if !m.expanded[r.ID] {
				continue
			}
			for i, p := range r.Products {
				rows = append(rows, listRow{
					kind:         rowProduct,
					estimateID:   e.ID,
					roomID:       r.ID,
					productID:    p.ID,
					productIndex: i,
					name:         p.Name,
					totals:       estimate.Totals{Min: p.MinPrice, Max: p.MaxPrice},
				})
			}
		}
	}
	return rows
}

// rowIndex finds the row of a room, or of an estimate when roomID is empty.
func (m *Model) rowIndex(estimateID, roomID string) int {
	for i, r := range m.rows() {
		if roomID != "" && r.kind == rowRoom && r.roomID == roomID {
			return i
		}
		if roomID == "" && r.kind == rowEstimate && r.estimateID == estimateID {
			return i
		}
	}
	return 0
}

func (m *Model) View() string {
	var body string
	switch m.nav.Visible() {
	case navigation.ContainerPage:
		body = m.renderPage()
	case navigation.ContainerLoading:
		body = dimStyle.Render(m.labels.Get("loading"))
	case navigation.ContainerEstimateSelection:
		body = m.renderEstimateSelection()
	case navigation.ContainerRoomSelection:
		body = m.renderRoomSelection()
	case navigation.ContainerNewEstimateForm:
		body = m.renderForm(m.labels.Get("new_estimate_title"))
	case navigation.ContainerNewRoomForm:
		body = m.renderForm(m.text("new_room_title", map[string]string{"EstimateName": m.estimateName(m.estimateID)}, "New room"))
	case navigation.ContainerEstimatesList:
		body = m.renderEstimatesList()
	case navigation.ContainerError:
		body = m.renderError()
	}

	if m.IsOpen() {
		body = modalStyle.Copy().Width(m.modalWidth()).Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(m.labels.Get("modal_title")), "", body))
	}
	parts := []string{body}
	if msg, level, ok := m.notify.Current(); ok {
		parts = append(parts, noticeStyles[level].Render(msg))
	}
	parts = append(parts, m.help.View(m.helpKeys()))
	screen := lipgloss.JoinVertical(lipgloss.Left, parts...)

	if len(m.dialogs) > 0 {
		panel := m.overlay.Render(m.dialogs[0].panel(), m.width)
		screen = overlay.Place(screen, panel, m.width, m.height)
	}
	return screen
}

func (m *Model) modalWidth() int {
	w := m.width - 4
	if w > 96 {
		w = 96
	}
	if w < 20 {
		w = 20
	}
	return w
}

// line renders one selectable row, truncated to the modal.
func (m *Model) line(selected bool, text string) string {
	text = truncate.StringWithTail(text, uint(m.modalWidth()-4), "…")
	if selected {
		return selectedStyle.Render("> " + text)
	}
	return "  " + text
}

func (m *Model) price(t estimate.Totals) string {
	return priceStyle.Render(m.text("room_totals", t, fmt.Sprintf("%.2f - %.2f", t.Min, t.Max)))
}

func (m *Model) renderPage() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.labels.Get("page_title")) + "\n\n")
	if m.pageErr != "" {
		b.WriteString(errorStyle.Render(m.pageErr) + "\n")
	}
	for i, p := range m.products {
		text := p.Name
		if p.IsVariable() {
			text += dimStyle.Render(fmt.Sprintf(" (%d options)", len(p.Variations)))
		}
		b.WriteString(m.line(i == m.pageCursor, text) + "  " + m.price(estimate.Totals{Min: p.MinPrice, Max: p.MaxPrice}) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render(m.labels.Get("page_help")))
	return b.String()
}

func (m *Model) renderEstimateSelection() string {
	var b strings.Builder
	title := m.text("estimate_selection_title", map[string]string{"ProductName": m.productName(m.productID)}, "Choose an estimate")
	b.WriteString(titleStyle.Render(title) + "\n\n")
	for i, e := range m.estimates {
		b.WriteString(m.line(i == m.cursor, e.Name) + "  " + dimStyle.Render(fmt.Sprintf("%d rooms", len(e.Rooms))) + "\n")
	}
	b.WriteString(m.line(m.cursor == len(m.estimates), m.labels.Get("new_estimate_option")))
	return b.String()
}

func (m *Model) renderRoomSelection() string {
	var b strings.Builder
	title := m.text("room_selection_title", map[string]string{"EstimateName": m.current.Name}, "Choose a room")
	b.WriteString(titleStyle.Render(title) + "\n\n")
	if m.loading {
		b.WriteString(dimStyle.Render(m.labels.Get("loading")))
		return b.String()
	}
	rooms := m.current.RoomList()
	for i, r := range rooms {
		text := r.Name
		if p, ok := r.PrimaryProduct(); ok {
			text += dimStyle.Render(" · " + p.Name)
		}
		if m.suite != nil && m.suite.Guard.Busy(orchestrator.RoomKey(m.current.ID, r.ID)) {
			text += busyStyle.Render(" ⋯")
		}
		b.WriteString(m.line(i == m.cursor, text) + "\n")
	}
	b.WriteString(m.line(m.cursor == len(rooms), m.labels.Get("new_room_option")))
	return b.String()
}

func (m *Model) renderForm(title string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n\n")
	f := m.form
	if f == nil {
		return b.String()
	}
	for _, fl := range f.fields {
		label := fl.label
		if fl.name == f.errField {
			label = errorStyle.Render(label)
		}
		b.WriteString(label + "\n" + fl.input.View() + "\n\n")
	}
	if f.errMsg != "" {
		b.WriteString(errorStyle.Render(f.errMsg) + "\n")
	}
	if f.submitting {
		b.WriteString(dimStyle.Render(m.labels.Get("submitting")))
	} else {
		b.WriteString(dimStyle.Render("enter: " + m.labels.Get("submit")))
	}
	return b.String()
}

func (m *Model) renderEstimatesList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.labels.Get("estimates_title")) + "\n\n")
	rows := m.rows()
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render(m.labels.Get("estimates_empty")))
		return b.String()
	}

	start := 0
	if m.cursor >= MaxVisibleRows {
		start = m.cursor - MaxVisibleRows + 1
	}
	end := start + MaxVisibleRows
	if end > len(rows) {
		end = len(rows)
	}
	for i := start; i < end; i++ {
		r := rows[i]
		var text string
		switch r.kind {
		case rowEstimate:
			marker := "▸ "
			if m.expanded[r.estimateID] {
				marker = "▾ "
			}
			text = marker + r.name + "  " + dimStyle.Render(r.detail)
		case rowRoom:
			marker := "▸ "
			if m.expanded[r.roomID] {
				marker = "▾ "
			}
			text = "  " + marker + r.name + "  " + dimStyle.Render(r.detail)
			if m.suite != nil && m.suite.Guard.Busy(orchestrator.RoomKey(r.estimateID, r.roomID)) {
				text += busyStyle.Render(" ⋯")
			}
		case rowProduct:
			text = "      • " + r.name
		}
		b.WriteString(m.line(i == m.cursor, text) + "  " + m.price(r.totals) + "\n")
		if r.kind == rowRoom && m.expanded[r.roomID] {
			b.WriteString(m.renderRelated(r.roomID))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderRelated(roomID string) string {
	rel, ok := m.related[roomID]
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, group := range []struct {
		label string
		items []estimate.ProductSummary
	}{
		{m.labels.Get("related_includes"), rel.Includes},
		{m.labels.Get("related_similar"), rel.Similar},
	} {
		if len(group.items) == 0 {
			continue
		}
		names := make([]string, len(group.items))
		for i, it := range group.items {
			names[i] = it.Name
		}
		b.WriteString(dimStyle.Render("        "+group.label+": "+strings.Join(names, ", ")) + "\n")
	}
	return b.String()
}

func (m *Model) renderError() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Copy().Bold(true).Render(m.labels.Get("error_title")),
		"",
		m.errMsg,
		"",
		dimStyle.Render(m.labels.Get("error_return")))
}

func (m *Model) estimateName(id string) string {
	if m.current.ID == id && m.current.Name != "" {
		return m.current.Name
	}
	for _, e := range m.estimates {
		if e.ID == id {
			return e.Name
		}
	}
	return ""
}

func (m *Model) helpKeys() helpKeys {
	if len(m.dialogs) > 0 {
		return helpKeys{keys.Left, keys.Right, keys.Enter, keys.Back}
	}
	switch m.nav.Current() {
	case navigation.StateClosed:
		return helpKeys{keys.Up, keys.Down, keys.Enter, keys.List, keys.Quit}
	case navigation.StateEstimateSelection, navigation.StateRoomSelection:
		return helpKeys{keys.Up, keys.Down, keys.Enter, keys.Back}
	case navigation.StateNewEstimateForm, navigation.StateNewRoomForm:
		return helpKeys{keys.Tab, keys.Enter, keys.Back}
	case navigation.StateEstimatesList:
		return helpKeys{keys.Up, keys.Down, keys.Enter, keys.New, keys.AddRoom, keys.Delete, keys.Close}
	case navigation.StateError:
		return helpKeys{key.NewBinding(key.WithKeys("any"), key.WithHelp("any key", "back"))}
	}
	return helpKeys{keys.Close}
}
