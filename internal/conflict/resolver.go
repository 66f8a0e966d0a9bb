// Package conflict classifies what happens when a product is added to a room.
package conflict

import (
	"fmt"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

// Outcome is the classification of an add attempt.
type Outcome int

const (
	Success Outcome = iota
	Duplicate
	PrimaryConflict
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Duplicate:
		return "duplicate"
	case PrimaryConflict:
		return "primary_conflict"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome plus the product already in the room that caused it.
type Result struct {
	Outcome  Outcome
	Existing estimate.ProductLineItem
}

// Classify decides whether candidate can be added to room. Duplicates are
// checked first, so re-adding the current primary product is a duplicate
// and never a conflict.
func Classify(room estimate.Room, candidate estimate.ProductLineItem) Result {
	if existing, ok := room.Product(candidate.ID); ok {
		return Result{Outcome: Duplicate, Existing: existing}
	}
	if candidate.IsPrimaryCategory {
		if existing, ok := room.PrimaryProduct(); ok && existing.ID != candidate.ID {
			return Result{Outcome: PrimaryConflict, Existing: existing}
		}
	}
	return Result{Outcome: Success}
}

// Context describes a pending primary-category conflict. It lives only
// between detection and the user's resolution.
type Context struct {
	EstimateID          string
	RoomID              string
	ExistingProductID   string
	ExistingProductName string
	NewProductID        string
	NewProductName      string
}

// Choice is the user's answer to a conflict dialog.
type Choice int

const (
	ChoiceCancel Choice = iota
	ChoiceReplace
	ChoiceGoBack
)

func (c Choice) String() string {
	switch c {
	case ChoiceReplace:
		return "replace"
	case ChoiceGoBack:
		return "go_back"
	default:
		return "cancel"
	}
}
