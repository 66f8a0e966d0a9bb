package orchestrator

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/apperr"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/pkg/estimate"
)

// EstimateOrchestrator lists, creates and removes estimates.
type EstimateOrchestrator struct {
	base
}

// ListEstimates returns the cached list unless forceRefresh is set or the
// cache is empty.
func (o *EstimateOrchestrator) ListEstimates(ctx context.Context, forceRefresh bool) ([]estimate.Estimate, error) {
	if !forceRefresh {
		if list, ok := o.deps.Cache.Estimates(); ok {
			return list, nil
		}
	}
	gen := o.deps.Cache.Generation()
	list, err := o.deps.Data.ListEstimates(ctx)
	if err != nil {
		cerr := apperr.Classify("list estimates", err)
		o.logger.Warn("list estimates failed", zap.Error(cerr))
		return nil, cerr
	}
	if !o.deps.Cache.StoreEstimates(gen, list) {
		o.logger.Debug("estimate list changed during fetch, not cached")
	}
	return list, nil
}

// HasEstimates reports whether the user has at least one estimate.
func (o *EstimateOrchestrator) HasEstimates(ctx context.Context) (bool, error) {
	list, err := o.ListEstimates(ctx, false)
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}

// GetEstimate returns one estimate, fetching when it is not cached.
func (o *EstimateOrchestrator) GetEstimate(ctx context.Context, estimateID string) (estimate.Estimate, error) {
	if e, ok := o.deps.Cache.Estimate(estimateID); ok {
		return e, nil
	}
	list, err := o.ListEstimates(ctx, false)
	if err != nil {
		return estimate.Estimate{}, err
	}
	for _, e := range list {
		if e.ID == estimateID {
			return e, nil
		}
	}
	return estimate.Estimate{}, apperr.Classify("get estimate", dataservice.NotFound("estimate", estimateID))
}

// CreateEstimate validates the form, creates the estimate and returns it.
// Validation failures never reach the data service.
func (o *EstimateOrchestrator) CreateEstimate(ctx context.Context, name, postcode string) (estimate.Estimate, error) {
	const op = "create estimate"
	name = strings.TrimSpace(name)
	if name == "" {
		err := apperr.NewValidation(op, "name", "Estimate name is required")
		o.deps.Metrics.Outcome("create_estimate", "", err)
		return estimate.Estimate{}, err
	}
	if !o.guard.TryAcquire(EstimateFormKey) {
		return estimate.Estimate{}, apperr.NewBusy(op)
	}
	defer o.guard.Release(EstimateFormKey)

	postcode = strings.TrimSpace(postcode)
	if postcode == "" {
		postcode = o.session.Customer.Postcode
	}

	res, err := o.deps.Data.CreateEstimate(ctx, dataservice.EstimateInput{Name: name, CustomerPostcode: postcode})
	if err != nil {
		cerr := apperr.Classify(op, err)
		o.logger.Warn("create estimate failed", zap.Error(cerr))
		o.deps.Metrics.Outcome("create_estimate", "", cerr)
		return estimate.Estimate{}, cerr
	}
	o.deps.Cache.Invalidate(res.EstimateID)
	o.deps.Metrics.Outcome("create_estimate", "success", nil)
	o.logger.Info("estimate created", zap.String("estimate_id", res.EstimateID))

	return estimate.Estimate{
		ID:               res.EstimateID,
		Name:             name,
		CustomerPostcode: postcode,
		Rooms:            map[string]estimate.Room{},
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// RemoveEstimate asks for confirmation, then removes the estimate. Failures
// are reported in an error dialog and leave everything as it was.
func (o *EstimateOrchestrator) RemoveEstimate(ctx context.Context, estimateID string) {
	name := estimateID
	if e, err := o.GetEstimate(ctx, estimateID); err == nil {
		name = e.Name
	}
	l := o.deps.Labels
	o.deps.Dialogs.Show(DialogOptions{
		Type:        DialogConfirm,
		Title:       l.Get("remove_estimate_title"),
		Message:     o.text("remove_estimate_message", map[string]string{"Name": name}, "Delete "+name+"?"),
		Action:      "remove_estimate",
		ConfirmText: l.Get("delete_button"),
		CancelText:  l.Get("cancel_button"),
		OnConfirm: func() {
			_ = o.removeConfirmed(o.session.Context(), estimateID)
		},
	})
}

func (o *EstimateOrchestrator) removeConfirmed(ctx context.Context, estimateID string) error {
	const op = "remove estimate"
	key := EstimateKey(estimateID)
	if !o.guard.TryAcquire(key) {
		return apperr.NewBusy(op)
	}
	defer o.guard.Release(key)

	if err := o.deps.Data.RemoveEstimate(ctx, estimateID); err != nil {
		cerr := apperr.Classify(op, err)
		o.logger.Warn("remove estimate failed", zap.String("estimate_id", estimateID), zap.Error(cerr))
		o.deps.Metrics.Outcome("remove_estimate", "", cerr)
		o.showError(o.deps.Labels.Get("remove_failed_title"), cerr)
		return cerr
	}
	o.deps.Cache.Invalidate(estimateID)
	o.deps.Metrics.Outcome("remove_estimate", "success", nil)
	o.navigator().ShowEstimatesList("", "")
	return nil
}
