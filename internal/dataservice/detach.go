package dataservice

import (
	"context"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

type detached struct {
	next Service
}

// Detach wraps svc so calls run to completion even when the caller's
// context is cancelled. Values on the context are kept. A request that
// reached the backend may have committed, so its result must reach the caller.
func Detach(svc Service) Service {
	if svc == nil {
		return nil
	}
	if _, ok := svc.(*detached); ok {
		return svc
	}
	return &detached{next: svc}
}

func (s *detached) ListEstimates(ctx context.Context) ([]estimate.Estimate, error) {
	return s.next.ListEstimates(context.WithoutCancel(ctx))
}

func (s *detached) CreateEstimate(ctx context.Context, in EstimateInput) (CreateEstimateResult, error) {
	return s.next.CreateEstimate(context.WithoutCancel(ctx), in)
}

func (s *detached) RemoveEstimate(ctx context.Context, estimateID string) error {
	return s.next.RemoveEstimate(context.WithoutCancel(ctx), estimateID)
}

func (s *detached) CreateRoom(ctx context.Context, estimateID string, in RoomInput, productID string) (CreateRoomResult, error) {
	return s.next.CreateRoom(context.WithoutCancel(ctx), estimateID, in, productID)
}

func (s *detached) RemoveRoom(ctx context.Context, estimateID, roomID string) error {
	return s.next.RemoveRoom(context.WithoutCancel(ctx), estimateID, roomID)
}

func (s *detached) AddProductToRoom(ctx context.Context, roomID, productID, estimateID string) (AddResult, error) {
	return s.next.AddProductToRoom(context.WithoutCancel(ctx), roomID, productID, estimateID)
}

func (s *detached) ReplaceProductInRoom(ctx context.Context, estimateID, roomID, oldProductID, newProductID string) (AddResult, error) {
	return s.next.ReplaceProductInRoom(context.WithoutCancel(ctx), estimateID, roomID, oldProductID, newProductID)
}

func (s *detached) RemoveProductFromRoom(ctx context.Context, estimateID, roomID string, productIndex int, productID string) (RemoveResult, error) {
	return s.next.RemoveProductFromRoom(context.WithoutCancel(ctx), estimateID, roomID, productIndex, productID)
}

func (s *detached) GetProductVariationData(ctx context.Context, productID string) (estimate.VariationData, error) {
	return s.next.GetProductVariationData(context.WithoutCancel(ctx), productID)
}

func (s *detached) GetRelatedItems(ctx context.Context, estimateID, roomID string) (estimate.RelatedItems, error) {
	return s.next.GetRelatedItems(context.WithoutCancel(ctx), estimateID, roomID)
}

func (s *detached) ListProducts(ctx context.Context) ([]estimate.Product, error) {
	return s.next.ListProducts(context.WithoutCancel(ctx))
}
