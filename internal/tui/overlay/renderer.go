// Package overlay draws dialog panels on top of the modal.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

// Kind selects the panel accent. It matches the dialog types.
type Kind string

const (
	KindInfo     Kind = "info"
	KindConfirm  Kind = "confirm"
	KindSuccess  Kind = "success"
	KindError    Kind = "error"
	KindConflict Kind = "conflict"
)

// Panel is one dialog as it appears on screen.
type Panel struct {
	Kind     Kind
	Title    string
	Message  string
	Options  []string // selectable rows, used by variation prompts
	Buttons  []string
	Selected int // index into Options when set, otherwise into Buttons
}

// Renderer renders panels with Lipgloss.
type Renderer struct {
	borderStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	buttonStyle   lipgloss.Style
	activeStyle   lipgloss.Style
	optionStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	accents       map[Kind]lipgloss.Color
}

func NewRenderer() *Renderer {
	r := &Renderer{
		accents: map[Kind]lipgloss.Color{
			KindInfo:     lipgloss.Color("39"),
			KindConfirm:  lipgloss.Color("214"),
			KindSuccess:  lipgloss.Color("42"),
			KindError:    lipgloss.Color("196"),
			KindConflict: lipgloss.Color("208"),
		},
	}
	r.borderStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Background(lipgloss.Color("235")).
		Padding(1, 2)
	r.titleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	r.buttonStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(lipgloss.Color("250"))
	r.activeStyle = r.buttonStyle.Copy().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("62"))
	r.optionStyle = lipgloss.NewStyle().PaddingLeft(2)
	r.selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	return r
}

// PanelWidth is a third of the screen, clamped to a readable range.
func PanelWidth(screenWidth int) int {
	w := screenWidth / 3
	if w < 40 {
		w = 40
	}
	if w > 72 {
		w = 72
	}
	if w > screenWidth-4 {
		w = screenWidth - 4
	}
	if w < 10 {
		w = 10
	}
	return w
}

// Render returns the bordered panel.
func (r *Renderer) Render(p Panel, screenWidth int) string {
	width := PanelWidth(screenWidth)
	inner := width - 6
	if inner < 4 {
		inner = 4
	}
	accent, ok := r.accents[p.Kind]
	if !ok {
		accent = r.accents[KindInfo]
	}

	parts := []string{r.titleStyle.Copy().Foreground(accent).Render(p.Title)}
	if p.Message != "" {
		parts = append(parts, wordwrap.String(p.Message, inner))
	}
	if len(p.Options) > 0 {
		rows := make([]string, len(p.Options))
		for i, opt := range p.Options {
			if i == p.Selected {
				rows[i] = r.selectedStyle.Render("> " + opt)
			} else {
				rows[i] = r.optionStyle.Render(opt)
			}
		}
		parts = append(parts, "", strings.Join(rows, "\n"))
	}
	if len(p.Buttons) > 0 {
		buttons := make([]string, len(p.Buttons))
		for i, b := range p.Buttons {
			style := r.buttonStyle
			if len(p.Options) == 0 && i == p.Selected {
				style = r.activeStyle
			}
			buttons[i] = style.Render("[" + b + "]")
		}
		parts = append(parts, "", lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	}

	return r.borderStyle.Copy().
		BorderForeground(accent).
		Width(width - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// Place draws panel centred over base. Lines of base under the panel keep
// their left part; the rest is covered.
func Place(base, panel string, width, height int) string {
	if panel == "" {
		return base
	}
	baseLines := strings.Split(base, "\n")
	panelLines := strings.Split(panel, "\n")
	for len(baseLines) < height {
		baseLines = append(baseLines, "")
	}

	panelWidth := lipgloss.Width(panel)
	startRow := (len(baseLines) - len(panelLines)) / 2
	if startRow < 0 {
		startRow = 0
	}
	startCol := (width - panelWidth) / 2
	if startCol < 0 {
		startCol = 0
	}

	for i, line := range panelLines {
		row := startRow + i
		if row >= len(baseLines) {
			baseLines = append(baseLines, "")
		}
		left := truncate.String(baseLines[row], uint(startCol))
		if pad := startCol - lipgloss.Width(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		baseLines[row] = left + line
	}
	return strings.Join(baseLines, "\n")
}
