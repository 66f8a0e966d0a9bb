package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/standardbeagle/estimator/internal/orchestrator"
	"github.com/standardbeagle/estimator/internal/tui/navigation"
	"github.com/standardbeagle/estimator/internal/tui/overlay"
)

type buttonRole int

const (
	roleConfirm buttonRole = iota
	roleAdditional
	roleCancel
)

type dialogButton struct {
	text    string
	role    buttonRole
	onClick func()
}

// dialog is one queued dialog. Variation prompts have options and a reply
// channel instead of callbacks.
type dialog struct {
	opts     orchestrator.DialogOptions
	buttons  []dialogButton
	selected int

	options []string
	ids     []string
	reply   chan<- variationReply
}

func newDialog(opts orchestrator.DialogOptions, defaultConfirm string) *dialog {
	d := &dialog{opts: opts}
	confirm := opts.ConfirmText
	if confirm == "" {
		confirm = defaultConfirm
	}
	d.buttons = append(d.buttons, dialogButton{text: confirm, role: roleConfirm, onClick: opts.OnConfirm})
	for _, b := range opts.AdditionalButtons {
		d.buttons = append(d.buttons, dialogButton{text: b.Text, role: roleAdditional, onClick: b.OnClick})
	}
	if opts.CancelText != "" {
		d.buttons = append(d.buttons, dialogButton{text: opts.CancelText, role: roleCancel, onClick: opts.OnCancel})
	}
	return d
}

func newVariationDialog(p orchestrator.VariationPrompt, cancelText string, reply chan<- variationReply) *dialog {
	d := &dialog{
		opts:  orchestrator.DialogOptions{Title: p.Title, Type: orchestrator.DialogInfo},
		reply: reply,
	}
	for _, v := range p.Variations {
		d.options = append(d.options, v.Name)
		d.ids = append(d.ids, v.ID)
	}
	d.buttons = []dialogButton{{text: cancelText, role: roleCancel}}
	return d
}

func (d *dialog) isPrompt() bool { return d.reply != nil }

// answer replies to a variation prompt. The channel is buffered so this
// never blocks.
func (d *dialog) answer(id string, err error) {
	if d.reply == nil {
		return
	}
	d.reply <- variationReply{id: id, err: err}
	d.reply = nil
}

func (d *dialog) panel() overlay.Panel {
	p := overlay.Panel{
		Kind:     overlay.Kind(d.opts.Type),
		Title:    d.opts.Title,
		Message:  d.opts.Message,
		Options:  d.options,
		Selected: d.selected,
	}
	for _, b := range d.buttons {
		p.Buttons = append(p.Buttons, b.text)
	}
	return p
}

func (d *dialog) move(delta int) {
	n := len(d.buttons)
	if d.isPrompt() {
		n = len(d.options)
	}
	if n == 0 {
		return
	}
	d.selected = (d.selected + delta + n) % n
}

// dialogHandler owns the keyboard while a dialog is open.
type dialogHandler struct{}

func (dialogHandler) CanHandle(_ tea.KeyMsg, m *Model) bool {
	return len(m.dialogs) > 0
}

func (dialogHandler) HandleMessage(msg tea.KeyMsg, m *Model) tea.Cmd {
	d := m.dialogs[0]
	switch keys.action(msg, false) {
	case ActionQuit:
		return m.quit(msg)
	case ActionLeft, ActionUp:
		d.move(-1)
	case ActionRight, ActionDown:
		d.move(1)
	case ActionBack, ActionClose:
		return m.dismissDialog()
	case ActionSelect:
		return m.pressDialog()
	}
	return nil
}

// pushDialog queues d; the first queued dialog is the visible one.
func (m *Model) pushDialog(d *dialog) {
	m.dialogs = append(m.dialogs, d)
}

func (m *Model) popDialog() *dialog {
	d := m.dialogs[0]
	m.dialogs = m.dialogs[1:]
	return d
}

// dismissDialog is esc: the cancel callback when there is one.
func (m *Model) dismissDialog() tea.Cmd {
	d := m.dialogs[0]
	if d.isPrompt() {
		m.popDialog()
		d.answer("", orchestrator.ErrSelectionCancelled)
		m.nav.Enter(navigation.StateProductAddition)
		return nil
	}
	for i, b := range d.buttons {
		if b.role == roleCancel {
			d.selected = i
			return m.pressDialog()
		}
	}
	m.popDialog()
	return nil
}

// pressDialog activates the selected button or option.
func (m *Model) pressDialog() tea.Cmd {
	d := m.popDialog()
	if d.isPrompt() {
		m.nav.Enter(navigation.StateProductAddition)
		if len(d.options) == 0 {
			d.answer("", orchestrator.ErrSelectionCancelled)
			return nil
		}
		d.answer(d.ids[d.selected], nil)
		return nil
	}

	b := d.buttons[d.selected]
	fallback := navigation.State("")
	if d.opts.Type == orchestrator.DialogConflict {
		switch b.role {
		case roleConfirm:
			// Replace runs behind the loading view until it navigates.
			cmd := m.enter(navigation.StateProductAddition)
			return tea.Batch(cmd, callbackCmd("conflict:"+b.text, m.stamp(), navigation.StateRoomSelection, b.onClick))
		case roleCancel:
			// Room selection is still the container underneath.
			m.nav.Enter(navigation.StateRoomSelection)
		default:
			fallback = navigation.StateRoomSelection
		}
	}
	return callbackCmd("dialog:"+b.text, m.stamp(), fallback, b.onClick)
}

// clearDialogs drops every dialog, cancelling pending prompts.
func (m *Model) clearDialogs() {
	for _, d := range m.dialogs {
		d.answer("", orchestrator.ErrSelectionCancelled)
	}
	m.dialogs = nil
}

// dialogBridge is the orchestrators' view of the dialog overlay for one
// session.
type dialogBridge struct {
	sessionID string
	send      func(ctx context.Context, msg tea.Msg) error
}

func (b *dialogBridge) Show(opts orchestrator.DialogOptions) {
	_ = b.send(context.Background(), showDialogMsg{sessionID: b.sessionID, opts: opts})
}

func (b *dialogBridge) SelectVariation(ctx context.Context, prompt orchestrator.VariationPrompt) (string, error) {
	reply := make(chan variationReply, 1)
	msg := selectVariationMsg{sessionID: b.sessionID, prompt: prompt, reply: reply}
	if err := b.send(ctx, msg); err != nil {
		return "", err
	}
	select {
	case r := <-reply:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
