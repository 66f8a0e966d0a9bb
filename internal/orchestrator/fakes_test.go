package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/estimator/internal/cache"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/internal/labels"
	"github.com/standardbeagle/estimator/pkg/estimate"
)

// fakeService records calls and answers from its function fields.
type fakeService struct {
	mu    sync.Mutex
	calls map[string]int

	estimates []estimate.Estimate

	createEstimate func(dataservice.EstimateInput) (dataservice.CreateEstimateResult, error)
	removeEstimate func(string) error
	createRoom     func(string, dataservice.RoomInput, string) (dataservice.CreateRoomResult, error)
	removeRoom     func(string, string) error
	add            func(roomID, productID, estimateID string) (dataservice.AddResult, error)
	addCtx         func(ctx context.Context) error
	replace        func(estimateID, roomID, oldID, newID string) (dataservice.AddResult, error)
	remove         func(estimateID, roomID string, index int, productID string) (dataservice.RemoveResult, error)
	variations     func(string) (estimate.VariationData, error)
	related        func(string, string) (estimate.RelatedItems, error)
	listErr        error
	onList         func()
}

func newFakeService() *fakeService {
	return &fakeService{calls: map[string]int{}}
}

func (f *fakeService) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeService) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeService) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeService) ListEstimates(context.Context) ([]estimate.Estimate, error) {
	f.record("list")
	if f.onList != nil {
		f.onList()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]estimate.Estimate, len(f.estimates))
	for i, e := range f.estimates {
		out[i] = e.Clone()
	}
	return out, nil
}

func (f *fakeService) CreateEstimate(_ context.Context, in dataservice.EstimateInput) (dataservice.CreateEstimateResult, error) {
	f.record("create_estimate")
	if f.createEstimate != nil {
		return f.createEstimate(in)
	}
	return dataservice.CreateEstimateResult{EstimateID: "est-new"}, nil
}

func (f *fakeService) RemoveEstimate(_ context.Context, id string) error {
	f.record("remove_estimate")
	if f.removeEstimate != nil {
		return f.removeEstimate(id)
	}
	return nil
}

func (f *fakeService) CreateRoom(_ context.Context, estimateID string, in dataservice.RoomInput, productID string) (dataservice.CreateRoomResult, error) {
	f.record("create_room")
	if f.createRoom != nil {
		return f.createRoom(estimateID, in, productID)
	}
	return dataservice.CreateRoomResult{RoomID: "room-new"}, nil
}

func (f *fakeService) RemoveRoom(_ context.Context, estimateID, roomID string) error {
	f.record("remove_room")
	if f.removeRoom != nil {
		return f.removeRoom(estimateID, roomID)
	}
	return nil
}

func (f *fakeService) AddProductToRoom(ctx context.Context, roomID, productID, estimateID string) (dataservice.AddResult, error) {
	f.record("add")
	if f.addCtx != nil {
		if err := f.addCtx(ctx); err != nil {
			return dataservice.AddResult{}, err
		}
	}
	if f.add != nil {
		return f.add(roomID, productID, estimateID)
	}
	return dataservice.AddResult{EstimateID: estimateID, RoomID: roomID, Item: estimate.ProductLineItem{ID: productID}}, nil
}

func (f *fakeService) ReplaceProductInRoom(_ context.Context, estimateID, roomID, oldID, newID string) (dataservice.AddResult, error) {
	f.record("replace")
	if f.replace != nil {
		return f.replace(estimateID, roomID, oldID, newID)
	}
	return dataservice.AddResult{EstimateID: estimateID, RoomID: roomID, Item: estimate.ProductLineItem{ID: newID}}, nil
}

func (f *fakeService) RemoveProductFromRoom(_ context.Context, estimateID, roomID string, index int, productID string) (dataservice.RemoveResult, error) {
	f.record("remove_product")
	if f.remove != nil {
		return f.remove(estimateID, roomID, index, productID)
	}
	return dataservice.RemoveResult{}, nil
}

func (f *fakeService) GetProductVariationData(_ context.Context, productID string) (estimate.VariationData, error) {
	f.record("variations")
	if f.variations != nil {
		return f.variations(productID)
	}
	return estimate.VariationData{ProductID: productID, ProductName: productID}, nil
}

func (f *fakeService) GetRelatedItems(_ context.Context, estimateID, roomID string) (estimate.RelatedItems, error) {
	f.record("related")
	if f.related != nil {
		return f.related(estimateID, roomID)
	}
	return estimate.RelatedItems{}, nil
}

func (f *fakeService) ListProducts(context.Context) ([]estimate.Product, error) {
	f.record("products")
	return nil, nil
}

// fakeDialogs keeps every dialog it was asked to show.
type fakeDialogs struct {
	mu        sync.Mutex
	shown     []DialogOptions
	selection string
	selectErr error
	prompts   []VariationPrompt
}

func (d *fakeDialogs) Show(opts DialogOptions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = append(d.shown, opts)
}

func (d *fakeDialogs) SelectVariation(_ context.Context, p VariationPrompt) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts = append(d.prompts, p)
	return d.selection, d.selectErr
}

func (d *fakeDialogs) all() []DialogOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DialogOptions(nil), d.shown...)
}

func (d *fakeDialogs) last(t *testing.T) DialogOptions {
	t.Helper()
	all := d.all()
	require.NotEmpty(t, all, "no dialog shown")
	return all[len(all)-1]
}

type navCall struct {
	Method string
	Args   []string
}

type fakeNavigator struct {
	mu    sync.Mutex
	calls []navCall
}

func (n *fakeNavigator) add(method string, args ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, navCall{Method: method, Args: args})
}

func (n *fakeNavigator) ShowEstimatesList(est, room string) { n.add("ShowEstimatesList", est, room) }
func (n *fakeNavigator) ShowNewEstimateForm(product string) { n.add("ShowNewEstimateForm", product) }
func (n *fakeNavigator) ShowRoomSelection(est string)       { n.add("ShowRoomSelection", est) }

func (n *fakeNavigator) all() []navCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]navCall(nil), n.calls...)
}

type harness struct {
	suite   *Suite
	data    *fakeService
	dialogs *fakeDialogs
	nav     *fakeNavigator
	cache   *cache.Cache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	c, err := cache.New(16)
	require.NoError(t, err)
	l, err := labels.Default()
	require.NoError(t, err)

	h := &harness{
		data:    newFakeService(),
		dialogs: &fakeDialogs{},
		nav:     &fakeNavigator{},
		cache:   c,
	}
	session := NewSession(context.Background(), Customer{Postcode: "SW1A 1AA"})
	t.Cleanup(session.Close)
	h.suite = NewSuite(session, Deps{
		Data:      h.data,
		Cache:     c,
		Dialogs:   h.dialogs,
		Navigator: h.nav,
		Labels:    l,
	})
	return h
}

// kitchenEstimate has one room holding a primary flooring product.
func kitchenEstimate() estimate.Estimate {
	return estimate.Estimate{
		ID:   "est-1",
		Name: "House",
		Rooms: map[string]estimate.Room{
			"room-1": {
				ID:     "room-1",
				Name:   "Kitchen",
				Width:  3,
				Length: 4,
				Products: []estimate.ProductLineItem{{
					ID:                "oak",
					Name:              "Oak Flooring",
					CategoryIDs:       []string{"flooring"},
					IsPrimaryCategory: true,
					MinPrice:          40,
					MaxPrice:          50,
				}},
			},
		},
	}
}
