// Package apperr is the error taxonomy returned by the orchestrators. Every
// error that reaches the view is an *Error with a Kind.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/standardbeagle/estimator/internal/dataservice"
)

// Kind classifies a failure by how the user should be told about it.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindDuplicate       Kind = "duplicate_product"
	KindPrimaryConflict Kind = "primary_category_conflict"
	KindNotFound        Kind = "not_found"
	KindNetwork         Kind = "network"
	KindTemplateRender  Kind = "template_render"
	KindBusy            Kind = "busy"
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "create estimate"
	Field   string // offending form field for validation errors
	Message string // user-facing text
	Data    dataservice.ErrorData
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.NotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	Validation      = &Error{Kind: KindValidation}
	Duplicate       = &Error{Kind: KindDuplicate}
	PrimaryConflict = &Error{Kind: KindPrimaryConflict}
	NotFound        = &Error{Kind: KindNotFound}
	Network         = &Error{Kind: KindNetwork}
	TemplateRender  = &Error{Kind: KindTemplateRender}
	Busy            = &Error{Kind: KindBusy}
)

// NewValidation marks field as invalid.
func NewValidation(op, field, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Message: message}
}

// NewBusy rejects a submission while another one is pending.
func NewBusy(op string) *Error {
	return &Error{Kind: KindBusy, Op: op, Message: "another request is still in progress"}
}

// NewTemplateRender wraps a presentation failure.
func NewTemplateRender(name string, err error) *Error {
	return &Error{Kind: KindTemplateRender, Op: "render " + name, Message: "could not render " + name, Err: err}
}

// Classify turns any backend error into an *Error. Already classified
// errors pass through with op filled in.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		if classified.Op == "" {
			cp := *classified
			cp.Op = op
			return &cp
		}
		return classified
	}

	var failure *dataservice.Failure
	if errors.As(err, &failure) {
		d := failure.Data
		out := &Error{Op: op, Message: d.Message, Data: d, Field: d.Field, Err: err}
		switch {
		case d.Duplicate:
			out.Kind = KindDuplicate
		case d.PrimaryConflict:
			out.Kind = KindPrimaryConflict
		case d.NotFound:
			out.Kind = KindNotFound
		case d.Invalid:
			out.Kind = KindValidation
		default:
			out.Kind = KindNetwork
		}
		return out
	}

	msg := "the estimate service could not be reached"
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = "the estimate service took too long to answer"
	case errors.Is(err, context.Canceled):
		msg = "the request was cancelled"
	case errors.As(err, &netErr):
	default:
		msg = "the estimate service failed to process the request"
	}
	return &Error{Kind: KindNetwork, Op: op, Message: msg, Err: err}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return ""
}

// UserMessage returns the text to show for err, or fallback when err
// carries none.
func UserMessage(err error, fallback string) string {
	var classified *Error
	if errors.As(err, &classified) && classified.Message != "" {
		return classified.Message
	}
	return fallback
}
