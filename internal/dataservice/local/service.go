package local

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/conflict"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/internal/dataservice/snapshot"
	"github.com/standardbeagle/estimator/pkg/estimate"
	"github.com/standardbeagle/estimator/pkg/events"
)

var _ dataservice.Service = (*Service)(nil)

// Service is the in-process dataservice.Service.
type Service struct {
	store        *Store
	catalog      *Catalog
	primaries    estimate.CategorySet
	bus          events.Publisher
	logger       *zap.Logger
	relatedLimit int
	newID        func() string
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes committed changes on bus.
func WithPublisher(bus events.Publisher) Option {
	return func(s *Service) { s.bus = bus }
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRelatedLimit caps the number of similar products suggested.
func WithRelatedLimit(n int) Option {
	return func(s *Service) { s.relatedLimit = n }
}

// WithIDGenerator replaces uuid ids, for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(store *Store, catalog *Catalog, primaries estimate.CategorySet, opts ...Option) *Service {
	s := &Service{
		store:        store,
		catalog:      catalog,
		primaries:    primaries,
		logger:       zap.NewNop(),
		relatedLimit: 5,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store.
func (s *Service) Store() *Store { return s.store }

func (s *Service) commit(ctx context.Context, fn func(tx *Tx) error) error {
	changes, err := s.store.RunInTransaction(ctx, fn)
	if err != nil {
		return err
	}
	if s.bus != nil {
		for _, ev := range changes {
			s.bus.Publish(ev)
		}
	}
	return nil
}

// Reload re-reads the snapshot store and announces newer external state.
func (s *Service) Reload(ctx context.Context) error {
	changed, err := s.store.Reload(ctx)
	if err != nil {
		return err
	}
	if changed {
		s.logger.Info("estimates reloaded from snapshot", zap.Int64("version", s.store.Version()))
		if s.bus != nil {
			s.bus.Publish(events.Event{Type: events.StoreReloaded})
		}
	}
	return nil
}

func (s *Service) ListEstimates(ctx context.Context) ([]estimate.Estimate, error) {
	var out []estimate.Estimate
	err := s.store.View(ctx, func(state snapshot.State) error {
		out = make([]estimate.Estimate, 0, len(state.Estimates))
		for _, e := range state.Estimates {
			out = append(out, e)
		}
		return nil
	})
	estimate.SortEstimates(out)
	return out, err
}

func (s *Service) CreateEstimate(ctx context.Context, in dataservice.EstimateInput) (dataservice.CreateEstimateResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return dataservice.CreateEstimateResult{}, dataservice.Invalid("name", "estimate name is required")
	}
	id := s.newID()
	err := s.commit(ctx, func(tx *Tx) error {
		tx.PutEstimate(estimate.Estimate{
			ID:               id,
			Name:             name,
			CustomerPostcode: strings.TrimSpace(in.CustomerPostcode),
			Rooms:            map[string]estimate.Room{},
			CreatedAt:        tx.Now(),
		})
		tx.Record(events.Event{Type: events.EstimateCreated, EstimateID: id})
		return nil
	})
	if err != nil {
		return dataservice.CreateEstimateResult{}, err
	}
	return dataservice.CreateEstimateResult{EstimateID: id}, nil
}

func (s *Service) RemoveEstimate(ctx context.Context, estimateID string) error {
	return s.commit(ctx, func(tx *Tx) error {
		if _, ok := tx.Estimate(estimateID); !ok {
			return dataservice.NotFound("estimate", estimateID)
		}
		tx.DeleteEstimate(estimateID)
		tx.Record(events.Event{Type: events.EstimateRemoved, EstimateID: estimateID})
		return nil
	})
}

func validateRoom(in dataservice.RoomInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return dataservice.Invalid("name", "room name is required")
	case !positive(in.Width):
		return dataservice.Invalid("width", "room width must be greater than zero")
	case !positive(in.Length):
		return dataservice.Invalid("length", "room length must be greater than zero")
	}
	return nil
}

// positive is false for NaN and infinities, which cannot be persisted.
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// CreateRoom adds a room. When productID names a concrete product it is
// placed in the new room in the same transaction.
func (s *Service) CreateRoom(ctx context.Context, estimateID string, in dataservice.RoomInput, productID string) (dataservice.CreateRoomResult, error) {
	if err := validateRoom(in); err != nil {
		return dataservice.CreateRoomResult{}, err
	}
	result := dataservice.CreateRoomResult{RoomID: s.newID()}
	err := s.commit(ctx, func(tx *Tx) error {
		if _, ok := tx.Estimate(estimateID); !ok {
			return dataservice.NotFound("estimate", estimateID)
		}
		room := estimate.Room{
			ID:        result.RoomID,
			Name:      strings.TrimSpace(in.Name),
			Width:     in.Width,
			Length:    in.Length,
			Products:  []estimate.ProductLineItem{},
			CreatedAt: tx.Now(),
		}
		tx.Record(events.Event{Type: events.RoomCreated, EstimateID: estimateID, RoomID: room.ID})

		if productID != "" {
			// variable or unknown products are left for the caller to resolve
			if item, err := s.concrete(productID); err == nil {
				room.Products = append(room.Products, item)
				result.ProductAdded = true
				tx.Record(events.Event{Type: events.ProductAdded, EstimateID: estimateID, RoomID: room.ID, ProductID: item.ID})
			}
		}
		result.RoomTotals = room.Totals()
		tx.PutRoom(estimateID, room)
		return nil
	})
	if err != nil {
		return dataservice.CreateRoomResult{}, err
	}
	return result, nil
}

func (s *Service) RemoveRoom(ctx context.Context, estimateID, roomID string) error {
	return s.commit(ctx, func(tx *Tx) error {
		e, _, err := tx.Room(estimateID, roomID)
		if err != nil {
			return err
		}
		delete(e.Rooms, roomID)
		tx.PutEstimate(e)
		tx.Record(events.Event{Type: events.RoomRemoved, EstimateID: estimateID, RoomID: roomID})
		return nil
	})
}

func (s *Service) concrete(productID string) (estimate.ProductLineItem, error) {
	p, variable, ok := s.catalog.Concrete(productID)
	if !ok {
		return estimate.ProductLineItem{}, dataservice.NotFound("product", productID)
	}
	if variable {
		return estimate.ProductLineItem{}, dataservice.Invalid("product_id", fmt.Sprintf("product %q needs a variation", productID))
	}
	item := s.primaries.LineItem(p)
	if _, isVariation := s.catalog.parents[p.ID]; isVariation {
		item.SelectedVariationID = p.ID
	}
	return item, nil
}

func classificationFailure(res conflict.Result, candidate estimate.ProductLineItem, estimateID, roomID string) error {
	switch res.Outcome {
	case conflict.Duplicate:
		return &dataservice.Failure{Data: dataservice.ErrorData{
			Duplicate:           true,
			ExistingProductID:   res.Existing.ID,
			ExistingProductName: res.Existing.Name,
			NewProductID:        candidate.ID,
			NewProductName:      candidate.Name,
			RoomID:              roomID,
			EstimateID:          estimateID,
			Message:             "This product already exists in the selected room",
		}}
	case conflict.PrimaryConflict:
		return &dataservice.Failure{Data: dataservice.ErrorData{
			PrimaryConflict:     true,
			ExistingProductID:   res.Existing.ID,
			ExistingProductName: res.Existing.Name,
			NewProductID:        candidate.ID,
			NewProductName:      candidate.Name,
			RoomID:              roomID,
			EstimateID:          estimateID,
			Message:             fmt.Sprintf("%s conflicts with %s already in this room", candidate.Name, res.Existing.Name),
		}}
	}
	return nil
}

func (s *Service) AddProductToRoom(ctx context.Context, roomID, productID, estimateID string) (dataservice.AddResult, error) {
	item, err := s.concrete(productID)
	if err != nil {
		return dataservice.AddResult{}, err
	}
	var result dataservice.AddResult
	err = s.commit(ctx, func(tx *Tx) error {
		e, room, err := tx.Room(estimateID, roomID)
		if err != nil {
			return err
		}
		if err := classificationFailure(conflict.Classify(room, item), item, estimateID, roomID); err != nil {
			return err
		}
		room.Products = append(room.Products, item)
		e.Rooms[roomID] = room
		tx.PutEstimate(e)
		tx.Record(events.Event{Type: events.ProductAdded, EstimateID: estimateID, RoomID: roomID, ProductID: item.ID})
		result = dataservice.AddResult{
			EstimateID:     estimateID,
			RoomID:         roomID,
			Item:           item,
			RoomTotals:     room.Totals(),
			EstimateTotals: e.Totals(),
		}
		return nil
	})
	if err != nil {
		return dataservice.AddResult{}, err
	}
	return result, nil
}

// ReplaceProductInRoom swaps oldProductID for newProductID in one commit,
// keeping the list position. Either both changes are visible or neither.
func (s *Service) ReplaceProductInRoom(ctx context.Context, estimateID, roomID, oldProductID, newProductID string) (dataservice.AddResult, error) {
	item, err := s.concrete(newProductID)
	if err != nil {
		return dataservice.AddResult{}, err
	}
	var result dataservice.AddResult
	err = s.commit(ctx, func(tx *Tx) error {
		e, room, err := tx.Room(estimateID, roomID)
		if err != nil {
			return err
		}
		pos := -1
		for i, p := range room.Products {
			if p.ID == oldProductID {
				pos = i
				break
			}
		}
		if pos < 0 {
			return dataservice.NotFound("product", oldProductID)
		}
		without := room.Clone()
		without.Products = append(without.Products[:pos:pos], room.Products[pos+1:]...)
		if err := classificationFailure(conflict.Classify(without, item), item, estimateID, roomID); err != nil {
			return err
		}
		room.Products[pos] = item
		e.Rooms[roomID] = room
		tx.PutEstimate(e)
		tx.Record(events.Event{
			Type: events.ProductReplaced, EstimateID: estimateID, RoomID: roomID, ProductID: item.ID,
			Data: map[string]interface{}{"replaced_product_id": oldProductID},
		})
		result = dataservice.AddResult{
			EstimateID:     estimateID,
			RoomID:         roomID,
			Item:           item,
			RoomTotals:     room.Totals(),
			EstimateTotals: e.Totals(),
		}
		return nil
	})
	if err != nil {
		return dataservice.AddResult{}, err
	}
	return result, nil
}

// RemoveProductFromRoom removes the product at productIndex. When the index
// is stale the product is located by id instead.
func (s *Service) RemoveProductFromRoom(ctx context.Context, estimateID, roomID string, productIndex int, productID string) (dataservice.RemoveResult, error) {
	var result dataservice.RemoveResult
	err := s.commit(ctx, func(tx *Tx) error {
		e, room, err := tx.Room(estimateID, roomID)
		if err != nil {
			return err
		}
		pos := -1
		if productIndex >= 0 && productIndex < len(room.Products) && room.Products[productIndex].ID == productID {
			pos = productIndex
		} else {
			for i, p := range room.Products {
				if p.ID == productID {
					pos = i
					break
				}
			}
		}
		if pos < 0 {
			return dataservice.NotFound("product", productID)
		}
		room.Products = append(room.Products[:pos], room.Products[pos+1:]...)
		e.Rooms[roomID] = room
		tx.PutEstimate(e)
		tx.Record(events.Event{Type: events.ProductRemoved, EstimateID: estimateID, RoomID: roomID, ProductID: productID})
		result.RoomTotals = room.Totals()
		return nil
	})
	if err != nil {
		return dataservice.RemoveResult{}, err
	}
	return result, nil
}

func (s *Service) GetProductVariationData(_ context.Context, productID string) (estimate.VariationData, error) {
	data, ok := s.catalog.VariationData(productID)
	if !ok {
		return estimate.VariationData{}, dataservice.NotFound("product", productID)
	}
	return data, nil
}

func (s *Service) GetRelatedItems(ctx context.Context, estimateID, roomID string) (estimate.RelatedItems, error) {
	var related estimate.RelatedItems
	err := s.store.View(ctx, func(state snapshot.State) error {
		e, ok := state.Estimates[estimateID]
		if !ok {
			return dataservice.NotFound("estimate", estimateID)
		}
		room, ok := e.Rooms[roomID]
		if !ok {
			return dataservice.NotFound("room", roomID)
		}
		related = s.catalog.Related(room, s.relatedLimit)
		return nil
	})
	return related, err
}

func (s *Service) ListProducts(context.Context) ([]estimate.Product, error) {
	return s.catalog.Products(), nil
}
