package orchestrator

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/estimator/internal/apperr"
	"github.com/standardbeagle/estimator/internal/conflict"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/pkg/estimate"
)

// AddOutcomeKind is how an add attempt ended when it did not fail.
type AddOutcomeKind int

const (
	OutcomeAdded AddOutcomeKind = iota
	OutcomeDuplicate
	OutcomeConflict
	OutcomeCancelled
)

func (k AddOutcomeKind) String() string {
	switch k {
	case OutcomeAdded:
		return "success"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeConflict:
		return "primary_conflict"
	default:
		return "cancelled"
	}
}

// AddOutcome reports an add attempt. Totals and Related are only set for
// OutcomeAdded and stay zero when their refresh failed.
type AddOutcome struct {
	Kind       AddOutcomeKind
	EstimateID string
	RoomID     string
	ProductID  string
	Item       estimate.ProductLineItem
	RoomTotals estimate.Totals
	Related    estimate.RelatedItems
	Conflict   *conflict.Context
}

// ProductOrchestrator adds, replaces and removes products in rooms and
// drives the conflict dialog.
type ProductOrchestrator struct {
	base
	rooms *RoomOrchestrator

	mu      sync.Mutex
	pending *conflict.Context
}

// PendingConflict returns the conflict awaiting the user's answer.
func (o *ProductOrchestrator) PendingConflict() (conflict.Context, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return conflict.Context{}, false
	}
	return *o.pending, true
}

func (o *ProductOrchestrator) setPending(c *conflict.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = c
}

func (o *ProductOrchestrator) reset() {
	o.setPending(nil)
}

// AddProductToRoom adds productID to a room. Variable products are resolved
// through a selection dialog first. A primary-category conflict opens the
// Replace / Go back / Cancel dialog and keeps the room disabled until the
// user answers.
func (o *ProductOrchestrator) AddProductToRoom(ctx context.Context, estimateID, roomID, productID string) (AddOutcome, error) {
	const op = "add product"
	outcome := AddOutcome{EstimateID: estimateID, RoomID: roomID, ProductID: productID}

	key := RoomKey(estimateID, roomID)
	if !o.guard.TryAcquire(key) {
		return outcome, apperr.NewBusy(op)
	}
	release := true
	defer func() {
		if release {
			o.guard.Release(key)
		}
	}()

	concreteID, err := o.resolveVariation(ctx, productID)
	if errors.Is(err, ErrSelectionCancelled) {
		outcome.Kind = OutcomeCancelled
		o.deps.Metrics.Outcome("add_product", outcome.Kind.String(), nil)
		return outcome, nil
	}
	if err != nil {
		o.deps.Metrics.Outcome("add_product", "", err)
		return outcome, err
	}
	outcome.ProductID = concreteID

	res, err := o.deps.Data.AddProductToRoom(ctx, roomID, concreteID, estimateID)
	if err != nil {
		cerr := apperr.Classify(op, err)
		switch cerr.Kind {
		case apperr.KindDuplicate:
			outcome.Kind = OutcomeDuplicate
			o.showDuplicate()
		case apperr.KindPrimaryConflict:
			outcome.Kind = OutcomeConflict
			cctx := o.conflictContext(ctx, estimateID, roomID, concreteID, cerr.Data)
			outcome.Conflict = &cctx
			o.setPending(&cctx)
			release = false
			o.showConflict(cctx, key)
		default:
			o.logger.Warn("add product failed",
				zap.String("room_id", roomID), zap.String("product_id", concreteID), zap.Error(cerr))
			o.deps.Metrics.Outcome("add_product", "", cerr)
			return outcome, cerr
		}
		o.logger.Info("add product classified",
			zap.String("room_id", roomID), zap.String("product_id", concreteID), zap.Stringer("outcome", outcome.Kind))
		o.deps.Metrics.Outcome("add_product", outcome.Kind.String(), nil)
		return outcome, nil
	}

	o.deps.Cache.Invalidate(estimateID)
	outcome.Kind = OutcomeAdded
	outcome.Item = res.Item
	outcome.RoomTotals, outcome.Related = o.refreshRoom(ctx, estimateID, roomID, res.RoomTotals)
	o.deps.Metrics.Outcome("add_product", outcome.Kind.String(), nil)
	o.logger.Info("product added", zap.String("room_id", roomID), zap.String("product_id", concreteID))
	return outcome, nil
}

// refreshRoom recomputes totals and related items side by side. A failing
// step is logged and leaves its value at the fallback.
func (o *ProductOrchestrator) refreshRoom(ctx context.Context, estimateID, roomID string, fallback estimate.Totals) (estimate.Totals, estimate.RelatedItems) {
	totals := fallback
	var related estimate.RelatedItems

	var g errgroup.Group
	g.Go(func() error {
		t, err := o.rooms.UpdateRoomTotals(ctx, estimateID, roomID)
		if err != nil {
			o.logger.Warn("room totals refresh failed", zap.String("room_id", roomID), zap.Error(err))
			return nil
		}
		totals = t
		return nil
	})
	g.Go(func() error {
		r, err := o.deps.Data.GetRelatedItems(ctx, estimateID, roomID)
		if err != nil {
			o.logger.Warn("related items refresh failed", zap.String("room_id", roomID), zap.Error(err))
			return nil
		}
		related = r
		return nil
	})
	_ = g.Wait()
	return totals, related
}

func (o *ProductOrchestrator) resolveVariation(ctx context.Context, productID string) (string, error) {
	data, err := o.deps.Data.GetProductVariationData(ctx, productID)
	if err != nil {
		return "", apperr.Classify("get product variations", err)
	}
	if !data.IsVariable {
		return productID, nil
	}
	choice, err := o.deps.Dialogs.SelectVariation(ctx, VariationPrompt{
		Title:       o.text("variation_title", map[string]string{"ProductName": data.ProductName}, data.ProductName),
		ProductID:   data.ProductID,
		ProductName: data.ProductName,
		Variations:  data.Variations,
	})
	if err != nil {
		if errors.Is(err, ErrSelectionCancelled) || errors.Is(err, context.Canceled) {
			return "", ErrSelectionCancelled
		}
		return "", apperr.Classify("select variation", err)
	}
	for _, v := range data.Variations {
		if v.ID == choice {
			return choice, nil
		}
	}
	return "", apperr.NewValidation("select variation", "variation", "Choose one of the listed options")
}

func (o *ProductOrchestrator) conflictContext(ctx context.Context, estimateID, roomID, productID string, d dataservice.ErrorData) conflict.Context {
	c := conflict.Context{
		EstimateID:          estimateID,
		RoomID:              roomID,
		ExistingProductID:   d.ExistingProductID,
		ExistingProductName: d.ExistingProductName,
		NewProductID:        productID,
		NewProductName:      d.NewProductName,
	}
	if d.NewProductID != "" {
		c.NewProductID = d.NewProductID
	}
	if c.ExistingProductName == "" {
		c.ExistingProductName = c.ExistingProductID
		if e, err := o.rooms.estimates.GetEstimate(ctx, estimateID); err == nil {
			if item, ok := e.Rooms[roomID].Product(c.ExistingProductID); ok {
				c.ExistingProductName = item.Name
			}
		}
	}
	if c.NewProductName == "" {
		c.NewProductName = c.NewProductID
	}
	return c
}

func (o *ProductOrchestrator) showDuplicate() {
	l := o.deps.Labels
	o.deps.Dialogs.Show(DialogOptions{
		Type:        DialogInfo,
		Title:       l.Get("duplicate_title"),
		Message:     l.Get("duplicate_message"),
		ConfirmText: l.Get("confirm_button"),
	})
}

func (o *ProductOrchestrator) showConflict(c conflict.Context, key string) {
	l := o.deps.Labels
	o.deps.Dialogs.Show(DialogOptions{
		Type:        DialogConflict,
		Title:       o.text("conflict_title", c, "Replace product?"),
		Message:     o.text("conflict_message", c, "This room already has a product from this category. Replace it?"),
		Action:      "replace",
		ConfirmText: l.Get("replace_button"),
		CancelText:  l.Get("cancel_button"),
		AdditionalButtons: []DialogButton{{
			Text:    l.Get("go_back_button"),
			Action:  "go_back",
			OnClick: func() { _ = o.ResolveConflict(c, conflict.ChoiceGoBack, key) },
		}},
		OnConfirm: func() { _ = o.ResolveConflict(c, conflict.ChoiceReplace, key) },
		OnCancel:  func() { _ = o.ResolveConflict(c, conflict.ChoiceCancel, key) },
	})
}

// ResolveConflict applies the user's answer to a conflict dialog and
// re-enables the room. key is the guard taken by AddProductToRoom.
func (o *ProductOrchestrator) ResolveConflict(c conflict.Context, choice conflict.Choice, key string) error {
	defer o.guard.Release(key)
	defer o.setPending(nil)

	o.logger.Info("conflict resolved",
		zap.String("room_id", c.RoomID), zap.Stringer("choice", choice))
	o.deps.Metrics.Outcome("resolve_conflict", choice.String(), nil)

	if o.session.Closed() {
		return nil
	}

	switch choice {
	case conflict.ChoiceReplace:
		if _, err := o.replace(o.session.Context(), c.EstimateID, c.RoomID, c.ExistingProductID, c.NewProductID); err != nil {
			o.showError(o.deps.Labels.Get("error_title"), err)
			return err
		}
		o.navigator().ShowEstimatesList(c.EstimateID, c.RoomID)
		o.deps.Dialogs.Show(DialogOptions{
			Type:        DialogSuccess,
			Title:       o.deps.Labels.Get("replace_success_title"),
			Message:     o.text("replace_success_message", c, "Product replaced."),
			ConfirmText: o.deps.Labels.Get("confirm_button"),
		})
	case conflict.ChoiceGoBack:
		o.navigator().ShowRoomSelection(c.EstimateID)
	case conflict.ChoiceCancel:
	}
	return nil
}

// ReplaceProductInRoom swaps oldProductID for newProductID atomically.
func (o *ProductOrchestrator) ReplaceProductInRoom(ctx context.Context, estimateID, roomID, oldProductID, newProductID string) (dataservice.AddResult, error) {
	key := RoomKey(estimateID, roomID)
	if !o.guard.TryAcquire(key) {
		return dataservice.AddResult{}, apperr.NewBusy("replace product")
	}
	defer o.guard.Release(key)
	return o.replace(ctx, estimateID, roomID, oldProductID, newProductID)
}

func (o *ProductOrchestrator) replace(ctx context.Context, estimateID, roomID, oldProductID, newProductID string) (dataservice.AddResult, error) {
	res, err := o.deps.Data.ReplaceProductInRoom(ctx, estimateID, roomID, oldProductID, newProductID)
	if err != nil {
		cerr := apperr.Classify("replace product", err)
		o.logger.Warn("replace product failed",
			zap.String("room_id", roomID), zap.String("old_product_id", oldProductID),
			zap.String("new_product_id", newProductID), zap.Error(cerr))
		o.deps.Metrics.Outcome("replace_product", "", cerr)
		return dataservice.AddResult{}, cerr
	}
	o.deps.Cache.Invalidate(estimateID)
	o.deps.Metrics.Outcome("replace_product", "success", nil)
	return res, nil
}

// RemoveProductFromRoom removes the product at productIndex and returns the
// new room totals.
func (o *ProductOrchestrator) RemoveProductFromRoom(ctx context.Context, estimateID, roomID string, productIndex int, productID string) (estimate.Totals, error) {
	const op = "remove product"
	key := RoomKey(estimateID, roomID)
	if !o.guard.TryAcquire(key) {
		return estimate.Totals{}, apperr.NewBusy(op)
	}
	defer o.guard.Release(key)

	res, err := o.deps.Data.RemoveProductFromRoom(ctx, estimateID, roomID, productIndex, productID)
	if err != nil {
		cerr := apperr.Classify(op, err)
		o.logger.Warn("remove product failed", zap.String("room_id", roomID), zap.Error(cerr))
		o.deps.Metrics.Outcome("remove_product", "", cerr)
		return estimate.Totals{}, cerr
	}
	o.deps.Cache.Invalidate(estimateID)
	o.deps.Metrics.Outcome("remove_product", "success", nil)
	return res.RoomTotals, nil
}
