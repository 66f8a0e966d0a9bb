// Package dataservice defines the boundary to the estimate backend and the
// wire shapes shared by the HTTP API and its client.
package dataservice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

// Service is the backend that owns estimates. Implementations enforce the
// primary-category rule and report violations as *Failure.
type Service interface {
	ListEstimates(ctx context.Context) ([]estimate.Estimate, error)
	CreateEstimate(ctx context.Context, in EstimateInput) (CreateEstimateResult, error)
	RemoveEstimate(ctx context.Context, estimateID string) error
	CreateRoom(ctx context.Context, estimateID string, in RoomInput, productID string) (CreateRoomResult, error)
	RemoveRoom(ctx context.Context, estimateID, roomID string) error
	AddProductToRoom(ctx context.Context, roomID, productID, estimateID string) (AddResult, error)
	ReplaceProductInRoom(ctx context.Context, estimateID, roomID, oldProductID, newProductID string) (AddResult, error)
	RemoveProductFromRoom(ctx context.Context, estimateID, roomID string, productIndex int, productID string) (RemoveResult, error)
	GetProductVariationData(ctx context.Context, productID string) (estimate.VariationData, error)
	GetRelatedItems(ctx context.Context, estimateID, roomID string) (estimate.RelatedItems, error)
	ListProducts(ctx context.Context) ([]estimate.Product, error)
}

// EstimateInput is the payload for a new estimate.
type EstimateInput struct {
	Name             string `json:"name"`
	CustomerPostcode string `json:"customer_postcode,omitempty"`
}

// RoomInput is the payload for a new room.
type RoomInput struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

// CreateEstimateResult identifies the new estimate.
type CreateEstimateResult struct {
	EstimateID string `json:"estimate_id"`
}

// CreateRoomResult reports whether the product sent with the room was
// already placed in it by the backend.
type CreateRoomResult struct {
	RoomID       string          `json:"room_id"`
	ProductAdded bool            `json:"product_added"`
	RoomTotals   estimate.Totals `json:"room_totals"`
}

// AddResult is returned by add and replace.
type AddResult struct {
	EstimateID     string                   `json:"estimate_id"`
	RoomID         string                   `json:"room_id"`
	Item           estimate.ProductLineItem `json:"item"`
	RoomTotals     estimate.Totals          `json:"room_totals"`
	EstimateTotals estimate.Totals          `json:"estimate_totals"`
}

// RemoveResult carries the room total after a product removal.
type RemoveResult struct {
	RoomTotals estimate.Totals `json:"room_totals"`
}

// Response is the envelope every HTTP endpoint answers with.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the failure payload of an unsuccessful Response.
type ErrorData struct {
	Duplicate           bool   `json:"duplicate,omitempty"`
	PrimaryConflict     bool   `json:"primary_conflict,omitempty"`
	NotFound            bool   `json:"not_found,omitempty"`
	Invalid             bool   `json:"invalid,omitempty"`
	Field               string `json:"field,omitempty"`
	ExistingProductID   string `json:"existing_product_id,omitempty"`
	ExistingProductName string `json:"existing_product_name,omitempty"`
	NewProductID        string `json:"new_product_id,omitempty"`
	NewProductName      string `json:"new_product_name,omitempty"`
	RoomID              string `json:"room_id,omitempty"`
	EstimateID          string `json:"estimate_id,omitempty"`
	Message             string `json:"message,omitempty"`
}

// Failure is a rejected request. It travels as ErrorData on the wire.
type Failure struct {
	Data ErrorData
}

func (f *Failure) Error() string {
	var kind []string
	switch {
	case f.Data.Duplicate:
		kind = append(kind, "duplicate")
	case f.Data.PrimaryConflict:
		kind = append(kind, "primary conflict")
	case f.Data.NotFound:
		kind = append(kind, "not found")
	case f.Data.Invalid:
		kind = append(kind, "invalid")
	}
	if len(kind) == 0 {
		return fmt.Sprintf("request failed: %s", f.Data.Message)
	}
	return fmt.Sprintf("%s: %s", strings.Join(kind, ","), f.Data.Message)
}

// NotFound builds a not-found failure for an entity.
func NotFound(entity, id string) *Failure {
	return &Failure{Data: ErrorData{NotFound: true, Message: fmt.Sprintf("%s %q not found", entity, id)}}
}

// Invalid builds a validation failure for a field.
func Invalid(field, message string) *Failure {
	return &Failure{Data: ErrorData{Invalid: true, Field: field, Message: message}}
}
