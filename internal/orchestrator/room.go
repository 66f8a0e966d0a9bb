package orchestrator

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/apperr"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/pkg/estimate"
)

// RoomForm is the raw new room form.
type RoomForm struct {
	Name   string
	Width  string
	Length string
}

// Validate checks required fields and parses the dimensions.
func (f RoomForm) Validate() (dataservice.RoomInput, error) {
	const op = "create room"
	in := dataservice.RoomInput{Name: strings.TrimSpace(f.Name)}
	if in.Name == "" {
		return in, apperr.NewValidation(op, "name", "Room name is required")
	}
	var err error
	if in.Width, err = parseDimension(f.Width); err != nil {
		return in, apperr.NewValidation(op, "width", "Width must be a number greater than zero")
	}
	if in.Length, err = parseDimension(f.Length); err != nil {
		return in, apperr.NewValidation(op, "length", "Length must be a number greater than zero")
	}
	return in, nil
}

func parseDimension(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// CreateRoomResult is the new room and whether the backend already placed
// the product sent with it.
type CreateRoomResult struct {
	Room         estimate.Room
	ProductAdded bool
}

// RoomOrchestrator creates and removes rooms and recomputes their totals.
type RoomOrchestrator struct {
	base
	estimates *EstimateOrchestrator
}

// CreateRoom validates form and creates the room. When ProductAdded is true
// the caller must not add productID again.
func (o *RoomOrchestrator) CreateRoom(ctx context.Context, estimateID string, form RoomForm, productID string) (CreateRoomResult, error) {
	const op = "create room"
	in, err := form.Validate()
	if err != nil {
		o.deps.Metrics.Outcome("create_room", "", err)
		return CreateRoomResult{}, err
	}
	key := RoomFormKey(estimateID)
	if !o.guard.TryAcquire(key) {
		return CreateRoomResult{}, apperr.NewBusy(op)
	}
	defer o.guard.Release(key)

	res, err := o.deps.Data.CreateRoom(ctx, estimateID, in, productID)
	if err != nil {
		cerr := apperr.Classify(op, err)
		o.logger.Warn("create room failed", zap.String("estimate_id", estimateID), zap.Error(cerr))
		o.deps.Metrics.Outcome("create_room", "", cerr)
		return CreateRoomResult{}, cerr
	}
	o.deps.Cache.Invalidate(estimateID)
	o.deps.Metrics.Outcome("create_room", "success", nil)
	o.logger.Info("room created",
		zap.String("estimate_id", estimateID),
		zap.String("room_id", res.RoomID),
		zap.Bool("product_added", res.ProductAdded))

	return CreateRoomResult{
		Room: estimate.Room{
			ID:        res.RoomID,
			Name:      in.Name,
			Width:     in.Width,
			Length:    in.Length,
			CreatedAt: time.Now().UTC(),
		},
		ProductAdded: res.ProductAdded,
	}, nil
}

// RemoveRoom asks for confirmation, then removes the room.
func (o *RoomOrchestrator) RemoveRoom(ctx context.Context, estimateID, roomID string) {
	name := roomID
	if e, err := o.estimates.GetEstimate(ctx, estimateID); err == nil {
		if r, ok := e.Rooms[roomID]; ok {
			name = r.Name
		}
	}
	l := o.deps.Labels
	o.deps.Dialogs.Show(DialogOptions{
		Type:        DialogConfirm,
		Title:       l.Get("remove_room_title"),
		Message:     o.text("remove_room_message", map[string]string{"Name": name}, "Delete "+name+"?"),
		Action:      "remove_room",
		ConfirmText: l.Get("delete_button"),
		CancelText:  l.Get("cancel_button"),
		OnConfirm: func() {
			_ = o.removeConfirmed(o.session.Context(), estimateID, roomID)
		},
	})
}

func (o *RoomOrchestrator) removeConfirmed(ctx context.Context, estimateID, roomID string) error {
	const op = "remove room"
	key := RoomKey(estimateID, roomID)
	if !o.guard.TryAcquire(key) {
		return apperr.NewBusy(op)
	}
	defer o.guard.Release(key)

	if err := o.deps.Data.RemoveRoom(ctx, estimateID, roomID); err != nil {
		cerr := apperr.Classify(op, err)
		o.logger.Warn("remove room failed", zap.String("room_id", roomID), zap.Error(cerr))
		o.deps.Metrics.Outcome("remove_room", "", cerr)
		o.showError(o.deps.Labels.Get("remove_failed_title"), cerr)
		return cerr
	}
	o.deps.Cache.Invalidate(estimateID)
	o.deps.Metrics.Outcome("remove_room", "success", nil)
	o.navigator().ShowEstimatesList(estimateID, "")
	return nil
}

// UpdateRoomTotals recomputes the displayed totals of a room from fresh data.
func (o *RoomOrchestrator) UpdateRoomTotals(ctx context.Context, estimateID, roomID string) (estimate.Totals, error) {
	e, err := o.estimates.GetEstimate(ctx, estimateID)
	if err != nil {
		return estimate.Totals{}, err
	}
	room, ok := e.Rooms[roomID]
	if !ok {
		return estimate.Totals{}, apperr.Classify("update room totals", dataservice.NotFound("room", roomID))
	}
	return room.Totals(), nil
}
