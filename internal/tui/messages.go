package tui

import (
	"github.com/standardbeagle/estimator/internal/orchestrator"
	"github.com/standardbeagle/estimator/internal/tui/navigation"
	"github.com/standardbeagle/estimator/pkg/estimate"
)

// issued stamps an async result with the view generation and session it
// was started under.
type issued struct {
	gen       uint64
	sessionID string
}

// Requests from outside the Update loop. An empty sessionID comes from an
// external driver and may open the modal.

type openMsg struct {
	productID string
	forceList bool
}

type closeMsg struct{}

type navTarget int

const (
	navEstimatesList navTarget = iota
	navNewEstimateForm
	navRoomSelection
)

type navigateMsg struct {
	sessionID  string
	target     navTarget
	estimateID string
	roomID     string
	productID  string
}

type showDialogMsg struct {
	sessionID string
	opts      orchestrator.DialogOptions
}

type selectVariationMsg struct {
	sessionID string
	prompt    orchestrator.VariationPrompt
	reply     chan<- variationReply
}

type variationReply struct {
	id  string
	err error
}

type guardChangedMsg struct{}

type externalChangeMsg struct{}

// Async results.

type productsLoadedMsg struct {
	products []estimate.Product
	err      error
}

type flowResolvedMsg struct {
	issued
	has  bool
	list []estimate.Estimate
	err  error
}

type estimatesLoadedMsg struct {
	issued
	list             []estimate.Estimate
	expandEstimateID string
	expandRoomID     string
	err              error
}

type estimateLoadedMsg struct {
	issued
	estimate estimate.Estimate
	err      error
}

type estimateCreatedMsg struct {
	issued
	estimate estimate.Estimate
	err      error
}

type roomCreatedMsg struct {
	issued
	estimateID string
	result     orchestrator.CreateRoomResult
	err        error
}

type productAddedMsg struct {
	issued
	outcome orchestrator.AddOutcome
	err     error
}

type productRemovedMsg struct {
	issued
	estimateID string
	roomID     string
	err        error
}

// callbackDoneMsg reports a dialog callback or a fire-and-forget
// orchestrator call. fallback is entered when nothing navigated meanwhile.
type callbackDoneMsg struct {
	issued
	op       string
	fallback navigation.State
	err      error
}

type loadingTimeoutMsg struct {
	gen uint64
}
