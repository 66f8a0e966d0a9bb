package dataservice

import (
	"context"
	"time"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

// Observer receives the latency and result of every backend call.
type Observer interface {
	ObserveRequest(operation string, took time.Duration, err error)
}

type instrumented struct {
	next Service
	obs  Observer
}

// Instrument wraps svc so every call is reported to obs.
func Instrument(svc Service, obs Observer) Service {
	if obs == nil {
		return svc
	}
	return &instrumented{next: svc, obs: obs}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	s.obs.ObserveRequest(op, time.Since(start), err)
}

func (s *instrumented) ListEstimates(ctx context.Context) (out []estimate.Estimate, err error) {
	defer func(start time.Time) { s.observe("list_estimates", start, err) }(time.Now())
	return s.next.ListEstimates(ctx)
}

func (s *instrumented) CreateEstimate(ctx context.Context, in EstimateInput) (out CreateEstimateResult, err error) {
	defer func(start time.Time) { s.observe("create_estimate", start, err) }(time.Now())
	return s.next.CreateEstimate(ctx, in)
}

func (s *instrumented) RemoveEstimate(ctx context.Context, estimateID string) (err error) {
	defer func(start time.Time) { s.observe("remove_estimate", start, err) }(time.Now())
	return s.next.RemoveEstimate(ctx, estimateID)
}

func (s *instrumented) CreateRoom(ctx context.Context, estimateID string, in RoomInput, productID string) (out CreateRoomResult, err error) {
	defer func(start time.Time) { s.observe("create_room", start, err) }(time.Now())
	return s.next.CreateRoom(ctx, estimateID, in, productID)
}

func (s *instrumented) RemoveRoom(ctx context.Context, estimateID, roomID string) (err error) {
	defer func(start time.Time) { s.observe("remove_room", start, err) }(time.Now())
	return s.next.RemoveRoom(ctx, estimateID, roomID)
}

func (s *instrumented) AddProductToRoom(ctx context.Context, roomID, productID, estimateID string) (out AddResult, err error) {
	defer func(start time.Time) { s.observe("add_product", start, err) }(time.Now())
	return s.next.AddProductToRoom(ctx, roomID, productID, estimateID)
}

func (s *instrumented) ReplaceProductInRoom(ctx context.Context, estimateID, roomID, oldProductID, newProductID string) (out AddResult, err error) {
	defer func(start time.Time) { s.observe("replace_product", start, err) }(time.Now())
	return s.next.ReplaceProductInRoom(ctx, estimateID, roomID, oldProductID, newProductID)
}

func (s *instrumented) RemoveProductFromRoom(ctx context.Context, estimateID, roomID string, productIndex int, productID string) (out RemoveResult, err error) {
	defer func(start time.Time) { s.observe("remove_product", start, err) }(time.Now())
	return s.next.RemoveProductFromRoom(ctx, estimateID, roomID, productIndex, productID)
}

func (s *instrumented) GetProductVariationData(ctx context.Context, productID string) (out estimate.VariationData, err error) {
	defer func(start time.Time) { s.observe("variation_data", start, err) }(time.Now())
	return s.next.GetProductVariationData(ctx, productID)
}

func (s *instrumented) GetRelatedItems(ctx context.Context, estimateID, roomID string) (out estimate.RelatedItems, err error) {
	defer func(start time.Time) { s.observe("related_items", start, err) }(time.Now())
	return s.next.GetRelatedItems(ctx, estimateID, roomID)
}

func (s *instrumented) ListProducts(ctx context.Context) (out []estimate.Product, err error) {
	defer func(start time.Time) { s.observe("list_products", start, err) }(time.Now())
	return s.next.ListProducts(ctx)
}
