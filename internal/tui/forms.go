package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/standardbeagle/estimator/internal/apperr"
	"github.com/standardbeagle/estimator/internal/orchestrator"
)

type formField struct {
	name  string // matches apperr.Error.Field
	label string
	input textinput.Model
}

// form is a new estimate or new room form.
type form struct {
	fields     []formField
	focus      int
	errField   string
	errMsg     string
	submitting bool
}

func newField(name, label string, limit int) formField {
	ti := textinput.New()
	ti.CharLimit = limit
	ti.Prompt = "› "
	ti.Cursor.SetMode(cursor.CursorStatic)
	return formField{name: name, label: label, input: ti}
}

func (m *Model) newEstimateForm() *form {
	f := &form{fields: []formField{
		newField("name", m.labels.Get("field_estimate_name"), 80),
		newField("postcode", m.labels.Get("field_postcode"), 12),
	}}
	f.fields[1].input.Placeholder = m.opts.Customer.Postcode
	f.setFocus(0)
	return f
}

func (m *Model) newRoomForm() *form {
	f := &form{fields: []formField{
		newField("name", m.labels.Get("field_room_name"), 60),
		newField("width", m.labels.Get("field_width"), 8),
		newField("length", m.labels.Get("field_length"), 8),
	}}
	f.setFocus(0)
	return f
}

func (f *form) setFocus(i int) {
	n := len(f.fields)
	f.focus = (i + n) % n
	for j := range f.fields {
		if j == f.focus {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
}

func (f *form) value(name string) string {
	for _, fl := range f.fields {
		if fl.name == name {
			return strings.TrimSpace(fl.input.Value())
		}
	}
	return ""
}

// update feeds a key to the focused input.
func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

// fail marks the field named by a validation error and focuses it.
func (f *form) fail(err error, fallback string) {
	f.errMsg = apperr.UserMessage(err, fallback)
	f.errField = ""
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Field == "" {
		return
	}
	f.errField = ae.Field
	for i, fl := range f.fields {
		if fl.name == ae.Field {
			f.setFocus(i)
		}
	}
}

func (f *form) roomForm() orchestrator.RoomForm {
	return orchestrator.RoomForm{Name: f.value("name"), Width: f.value("width"), Length: f.value("length")}
}

func registerFormRoutes(r *MessageRouter) {
	for _, s := range formStates {
		r.Handle(s, ActionNextField, func(m *Model, _ tea.KeyMsg) tea.Cmd {
			m.form.setFocus(m.form.focus + 1)
			return nil
		})
		r.Handle(s, ActionPrevField, func(m *Model, _ tea.KeyMsg) tea.Cmd {
			m.form.setFocus(m.form.focus - 1)
			return nil
		})
		r.Handle(s, ActionInput, func(m *Model, msg tea.KeyMsg) tea.Cmd {
			if m.form.submitting {
				return nil
			}
			return m.form.update(msg)
		})
		r.Handle(s, ActionBack, (*Model).formBack)
	}
	r.Handle(formStates[0], ActionSelect, (*Model).submitEstimateForm)
	r.Handle(formStates[1], ActionSelect, (*Model).submitRoomForm)
}
