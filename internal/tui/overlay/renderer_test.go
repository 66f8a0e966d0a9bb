package overlay

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/stretchr/testify/assert"
)

// TestRenderShowsEveryButton tests title, message and buttons are drawn
func TestRenderShowsEveryButton(t *testing.T) {
	r := NewRenderer()
	out := r.Render(Panel{
		Kind:    KindConflict,
		Title:   "Replace Oak Flooring?",
		Message: "This room already has Oak Flooring.",
		Buttons: []string{"Replace", "Go back", "Cancel"},
	}, 120)

	assert.Contains(t, out, "Replace Oak Flooring?")
	assert.Contains(t, out, "[Replace]")
	assert.Contains(t, out, "[Go back]")
	assert.Contains(t, out, "[Cancel]")
}

// TestRenderOptions tests the selected option is marked
func TestRenderOptions(t *testing.T) {
	r := NewRenderer()
	out := r.Render(Panel{
		Title:    "Choose an option",
		Options:  []string{"Natural", "Smoked"},
		Selected: 1,
		Buttons:  []string{"Cancel"},
	}, 80)
	assert.Contains(t, out, "> Smoked")
	assert.NotContains(t, out, "> Natural")
}

// TestPlaceKeepsLeftOfBase tests the panel covers the centre of the base
func TestPlaceKeepsLeftOfBase(t *testing.T) {
	base := strings.Repeat(strings.Repeat("x", 40)+"\n", 9) + strings.Repeat("x", 40)
	out := Place(base, "PANEL\nPANEL", 40, 10)

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 10)
	assert.Equal(t, strings.Repeat("x", 17)+"PANEL", lines[4])
	assert.Equal(t, strings.Repeat("x", 40), lines[0])
	for _, l := range lines {
		assert.LessOrEqual(t, ansi.PrintableRuneWidth(l), 40)
	}
}

// TestPanelWidthBounds tests clamping on small and large screens
func TestPanelWidthBounds(t *testing.T) {
	assert.Equal(t, 40, PanelWidth(90))
	assert.Equal(t, 72, PanelWidth(400))
	assert.Equal(t, 26, PanelWidth(30))
	assert.LessOrEqual(t, lipgloss.Width(NewRenderer().Render(Panel{Title: "t"}, 200)), 72)
}
