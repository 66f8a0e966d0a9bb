package local

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/internal/dataservice/snapshot"
	"github.com/standardbeagle/estimator/pkg/estimate"
	"github.com/standardbeagle/estimator/pkg/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingPublisher) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type fixture struct {
	svc     *Service
	persist *snapshot.Memory
	bus     *recordingPublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	persist := snapshot.NewMemory()
	store, err := NewStore(ctx, persist)
	require.NoError(t, err)
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	bus := &recordingPublisher{}
	svc := NewService(store, catalog, estimate.NewCategorySet("flooring", "kitchen-cabinets"),
		WithPublisher(bus), WithIDGenerator(sequentialIDs()))
	return fixture{svc: svc, persist: persist, bus: bus}
}

func (f fixture) estimateWithRoom(t *testing.T) (string, string) {
	t.Helper()
	ctx := context.Background()
	est, err := f.svc.CreateEstimate(ctx, dataservice.EstimateInput{Name: "Smith"})
	require.NoError(t, err)
	room, err := f.svc.CreateRoom(ctx, est.EstimateID, dataservice.RoomInput{Name: "Kitchen", Width: 3, Length: 4}, "")
	require.NoError(t, err)
	return est.EstimateID, room.RoomID
}

func (f fixture) room(t *testing.T, estimateID, roomID string) estimate.Room {
	t.Helper()
	list, err := f.svc.ListEstimates(context.Background())
	require.NoError(t, err)
	for _, e := range list {
		if e.ID == estimateID {
			return e.Rooms[roomID]
		}
	}
	t.Fatalf("estimate %s not listed", estimateID)
	return estimate.Room{}
}

func failureOf(t *testing.T, err error) *dataservice.Failure {
	t.Helper()
	var f *dataservice.Failure
	require.True(t, errors.As(err, &f), "expected *dataservice.Failure, got %v", err)
	return f
}

// TestCreateEstimateValidation tests a blank name is rejected without a commit
func TestCreateEstimateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateEstimate(context.Background(), dataservice.EstimateInput{Name: "   "})
	fail := failureOf(t, err)
	assert.True(t, fail.Data.Invalid)
	assert.Equal(t, "name", fail.Data.Field)
	assert.Zero(t, f.persist.Saves())
}

// TestCreateRoomWithProduct tests the backend places the product itself
func TestCreateRoomWithProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	est, err := f.svc.CreateEstimate(ctx, dataservice.EstimateInput{Name: "Smith"})
	require.NoError(t, err)

	res, err := f.svc.CreateRoom(ctx, est.EstimateID, dataservice.RoomInput{Name: "Hall", Width: 2, Length: 5}, "luxury-vinyl")
	require.NoError(t, err)
	assert.True(t, res.ProductAdded)
	assert.Equal(t, estimate.Totals{Min: 25, Max: 40}, res.RoomTotals)

	room := f.room(t, est.EstimateID, res.RoomID)
	require.Len(t, room.Products, 1)
	assert.True(t, room.Products[0].IsPrimaryCategory)

	// variable products are left for the client to resolve
	res, err = f.svc.CreateRoom(ctx, est.EstimateID, dataservice.RoomInput{Name: "Lounge", Width: 4, Length: 5}, "oak-engineered")
	require.NoError(t, err)
	assert.False(t, res.ProductAdded)
	assert.Empty(t, f.room(t, est.EstimateID, res.RoomID).Products)
}

// TestCreateRoomValidation tests required room fields
func TestCreateRoomValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	est, err := f.svc.CreateEstimate(ctx, dataservice.EstimateInput{Name: "Smith"})
	require.NoError(t, err)

	testCases := []struct {
		name  string
		input dataservice.RoomInput
		field string
	}{
		{"missing name", dataservice.RoomInput{Width: 1, Length: 1}, "name"},
		{"zero width", dataservice.RoomInput{Name: "A", Length: 1}, "width"},
		{"negative length", dataservice.RoomInput{Name: "A", Width: 1, Length: -2}, "length"},
		{"nan width", dataservice.RoomInput{Name: "A", Width: math.NaN(), Length: 1}, "width"},
		{"infinite length", dataservice.RoomInput{Name: "A", Width: 1, Length: math.Inf(1)}, "length"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateRoom(ctx, est.EstimateID, tc.input, "")
			assert.Equal(t, tc.field, failureOf(t, err).Data.Field)
		})
	}

	_, err = f.svc.CreateRoom(ctx, "missing", dataservice.RoomInput{Name: "A", Width: 1, Length: 1}, "")
	assert.True(t, failureOf(t, err).Data.NotFound)
}

// TestAddProductClassification tests success, duplicate and primary conflict
func TestAddProductClassification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	estID, roomID := f.estimateWithRoom(t)

	res, err := f.svc.AddProductToRoom(ctx, roomID, "porcelain-tile", estID)
	require.NoError(t, err)
	assert.True(t, res.Item.IsPrimaryCategory)
	assert.Equal(t, estimate.Totals{Min: 30, Max: 55}, res.RoomTotals)

	_, err = f.svc.AddProductToRoom(ctx, roomID, "tile-adhesive", estID)
	require.NoError(t, err)

	_, err = f.svc.AddProductToRoom(ctx, roomID, "tile-adhesive", estID)
	dup := failureOf(t, err)
	assert.True(t, dup.Data.Duplicate)
	assert.Equal(t, "tile-adhesive", dup.Data.ExistingProductID)

	_, err = f.svc.AddProductToRoom(ctx, roomID, "wool-carpet", estID)
	clash := failureOf(t, err)
	assert.True(t, clash.Data.PrimaryConflict)
	assert.Equal(t, "porcelain-tile", clash.Data.ExistingProductID)
	assert.Equal(t, "Porcelain floor tile", clash.Data.ExistingProductName)
	assert.Equal(t, "wool-carpet", clash.Data.NewProductID)
	assert.Equal(t, roomID, clash.Data.RoomID)

	room := f.room(t, estID, roomID)
	assert.Len(t, room.Products, 2)
}

// TestAddVariableProduct tests a variation must be chosen first
func TestAddVariableProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	estID, roomID := f.estimateWithRoom(t)

	_, err := f.svc.AddProductToRoom(ctx, roomID, "oak-engineered", estID)
	assert.True(t, failureOf(t, err).Data.Invalid)

	data, err := f.svc.GetProductVariationData(ctx, "oak-engineered")
	require.NoError(t, err)
	require.True(t, data.IsVariable)
	require.Len(t, data.Variations, 2)

	res, err := f.svc.AddProductToRoom(ctx, roomID, data.Variations[1].ID, estID)
	require.NoError(t, err)
	assert.Equal(t, "oak-engineered-smoked", res.Item.SelectedVariationID)
	assert.Equal(t, "Oak engineered flooring - Smoked", res.Item.Name)
	assert.True(t, res.Item.IsPrimaryCategory)

	_, err = f.svc.GetProductVariationData(ctx, "nope")
	assert.True(t, failureOf(t, err).Data.NotFound)
}

// TestReplaceProductAtomic tests replace keeps position and exclusivity
func TestReplaceProductAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	estID, roomID := f.estimateWithRoom(t)

	_, err := f.svc.AddProductToRoom(ctx, roomID, "foam-underlay", estID)
	require.NoError(t, err)
	_, err = f.svc.AddProductToRoom(ctx, roomID, "luxury-vinyl", estID)
	require.NoError(t, err)
	_, err = f.svc.AddProductToRoom(ctx, roomID, "skirting-board", estID)
	require.NoError(t, err)

	res, err := f.svc.ReplaceProductInRoom(ctx, estID, roomID, "luxury-vinyl", "wool-carpet")
	require.NoError(t, err)
	assert.Equal(t, "wool-carpet", res.Item.ID)

	room := f.room(t, estID, roomID)
	ids := []string{room.Products[0].ID, room.Products[1].ID, room.Products[2].ID}
	assert.Equal(t, []string{"foam-underlay", "wool-carpet", "skirting-board"}, ids)
	primary, ok := room.PrimaryProduct()
	require.True(t, ok)
	assert.Equal(t, "wool-carpet", primary.ID)

	saves := f.persist.Saves()
	_, err = f.svc.ReplaceProductInRoom(ctx, estID, roomID, "luxury-vinyl", "porcelain-tile")
	assert.True(t, failureOf(t, err).Data.NotFound)
	_, err = f.svc.ReplaceProductInRoom(ctx, estID, roomID, "foam-underlay", "skirting-board")
	assert.True(t, failureOf(t, err).Data.Duplicate)

	assert.Equal(t, saves, f.persist.Saves(), "failed replaces must not commit")
	assert.Equal(t, room, f.room(t, estID, roomID))
}

// TestRemoveProductFromRoom tests index lookup with stale index fallback
func TestRemoveProductFromRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	estID, roomID := f.estimateWithRoom(t)
	for _, id := range []string{"foam-underlay", "door-bars", "wall-paint"} {
		_, err := f.svc.AddProductToRoom(ctx, roomID, id, estID)
		require.NoError(t, err)
	}

	res, err := f.svc.RemoveProductFromRoom(ctx, estID, roomID, 1, "door-bars")
	require.NoError(t, err)
	assert.Equal(t, estimate.Totals{Min: 25, Max: 50}, res.RoomTotals)

	// stale index still removes the named product
	res, err = f.svc.RemoveProductFromRoom(ctx, estID, roomID, 5, "wall-paint")
	require.NoError(t, err)
	assert.Equal(t, estimate.Totals{Min: 3, Max: 5}, res.RoomTotals)

	_, err = f.svc.RemoveProductFromRoom(ctx, estID, roomID, 0, "door-bars")
	assert.True(t, failureOf(t, err).Data.NotFound)
}

// TestRemoveEstimateAndRoom tests deletion and events
func TestRemoveEstimateAndRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	estID, roomID := f.estimateWithRoom(t)

	require.NoError(t, f.svc.RemoveRoom(ctx, estID, roomID))
	assert.True(t, failureOf(t, f.svc.RemoveRoom(ctx, estID, roomID)).Data.NotFound)

	require.NoError(t, f.svc.RemoveEstimate(ctx, estID))
	assert.True(t, failureOf(t, f.svc.RemoveEstimate(ctx, estID)).Data.NotFound)

	list, err := f.svc.ListEstimates(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, []events.EventType{
		events.EstimateCreated, events.RoomCreated, events.RoomRemoved, events.EstimateRemoved,
	}, f.bus.types())
}

// TestRelatedItems tests includes and similar suggestions
func TestRelatedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	estID, roomID := f.estimateWithRoom(t)
	_, err := f.svc.AddProductToRoom(ctx, roomID, "oak-engineered-natural", estID)
	require.NoError(t, err)

	related, err := f.svc.GetRelatedItems(ctx, estID, roomID)
	require.NoError(t, err)

	var includes []string
	for _, p := range related.Includes {
		includes = append(includes, p.ID)
	}
	assert.ElementsMatch(t, []string{"foam-underlay", "door-bars"}, includes)

	for _, p := range related.Similar {
		assert.NotEqual(t, "oak-engineered", p.ID, "the room's own product family is not similar")
	}
	assert.NotEmpty(t, related.Similar)
}

// TestRulesRejectInvalidCommit tests commit-time rules roll the transaction back
func TestRulesRejectInvalidCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	estID, roomID := f.estimateWithRoom(t)
	before := f.persist.Saves()

	_, err := f.svc.Store().RunInTransaction(ctx, func(tx *Tx) error {
		_, room, err := tx.Room(estID, roomID)
		if err != nil {
			return err
		}
		room.Products = append(room.Products,
			estimate.ProductLineItem{ID: "a", IsPrimaryCategory: true},
			estimate.ProductLineItem{ID: "b", IsPrimaryCategory: true})
		tx.PutRoom(estID, room)
		return nil
	})
	assert.True(t, failureOf(t, err).Data.PrimaryConflict)
	assert.Equal(t, before, f.persist.Saves())
	assert.Empty(t, f.room(t, estID, roomID).Products)
}

// TestReloadPicksUpExternalWrites tests two stores sharing one file
func TestReloadPicksUpExternalWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "estimates.json")
	catalog, err := DefaultCatalog()
	require.NoError(t, err)
	primaries := estimate.NewCategorySet("flooring")

	openService := func(bus events.Publisher) *Service {
		fs, err := snapshot.NewFileStore(path)
		require.NoError(t, err)
		store, err := NewStore(ctx, fs)
		require.NoError(t, err)
		return NewService(store, catalog, primaries, WithPublisher(bus))
	}

	writer := openService(nil)
	readerBus := &recordingPublisher{}
	reader := openService(readerBus)

	_, err = writer.CreateEstimate(ctx, dataservice.EstimateInput{Name: "From elsewhere"})
	require.NoError(t, err)

	require.NoError(t, reader.Reload(ctx))
	list, err := reader.ListEstimates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "From elsewhere", list[0].Name)
	assert.Equal(t, []events.EventType{events.StoreReloaded}, readerBus.types())

	// own writes are not reloaded
	require.NoError(t, writer.Reload(ctx))
}

// TestParseCatalogErrors tests malformed catalogs are rejected
func TestParseCatalogErrors(t *testing.T) {
	_, err := ParseCatalog([]byte("products:\n  - name: no id\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("products:\n  - id: a\n  - id: a\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("products:\n  - id: a\n    variations:\n      - id: b\n  - id: b\n"))
	assert.Error(t, err)

	c, err := ParseCatalog([]byte("products:\n  - id: a\n    name: A\n    categories: [x]\n"))
	require.NoError(t, err)
	p, ok := c.Product("a")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, p.CategoryIDs)
}
