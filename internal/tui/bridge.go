package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// navigatorBridge implements orchestrator.Navigator for one session.
// Requests reach the Update loop as messages and are dropped once the
// session has closed.
type navigatorBridge struct {
	sessionID string
	send      func(ctx context.Context, msg tea.Msg) error
}

func (b *navigatorBridge) ShowEstimatesList(expandEstimateID, expandRoomID string) {
	_ = b.send(context.Background(), navigateMsg{
		sessionID:  b.sessionID,
		target:     navEstimatesList,
		estimateID: expandEstimateID,
		roomID:     expandRoomID,
	})
}

func (b *navigatorBridge) ShowNewEstimateForm(productID string) {
	_ = b.send(context.Background(), navigateMsg{sessionID: b.sessionID, target: navNewEstimateForm, productID: productID})
}

func (b *navigatorBridge) ShowRoomSelection(estimateID string) {
	_ = b.send(context.Background(), navigateMsg{sessionID: b.sessionID, target: navRoomSelection, estimateID: estimateID})
}

// Bridge drives the modal from outside the program, for example from MCP
// tools. Requests open the modal when it is closed.
type Bridge struct {
	send func(ctx context.Context, msg tea.Msg) error
}

// Open opens the modal, in the product flow when productID is set and
// forceList is false.
func (b *Bridge) Open(ctx context.Context, productID string, forceList bool) error {
	return b.send(ctx, openMsg{productID: productID, forceList: forceList})
}

// Close closes the modal.
func (b *Bridge) Close(ctx context.Context) error {
	return b.send(ctx, closeMsg{})
}

func (b *Bridge) ShowEstimatesList(ctx context.Context, expandEstimateID, expandRoomID string) error {
	return b.send(ctx, navigateMsg{target: navEstimatesList, estimateID: expandEstimateID, roomID: expandRoomID})
}

func (b *Bridge) ShowNewEstimateForm(ctx context.Context, productID string) error {
	return b.send(ctx, navigateMsg{target: navNewEstimateForm, productID: productID})
}

func (b *Bridge) ShowRoomSelection(ctx context.Context, estimateID string) error {
	return b.send(ctx, navigateMsg{target: navRoomSelection, estimateID: estimateID})
}

// Refresh reloads the visible data after an external change.
func (b *Bridge) Refresh(ctx context.Context) error {
	return b.send(ctx, externalChangeMsg{})
}
