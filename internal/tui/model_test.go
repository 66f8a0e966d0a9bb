package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/estimator/internal/cache"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/internal/dataservice/local"
	"github.com/standardbeagle/estimator/internal/dataservice/snapshot"
	"github.com/standardbeagle/estimator/internal/labels"
	"github.com/standardbeagle/estimator/internal/orchestrator"
	"github.com/standardbeagle/estimator/internal/tui/navigation"
	"github.com/standardbeagle/estimator/pkg/estimate"
)

type capturedTick struct {
	d  time.Duration
	fn func(time.Time) tea.Msg
}

// harness drives a Model the way a running program would: commands run on
// goroutines and their results, plus bridge requests, are fed back into
// Update until nothing is left or the model waits on user input.
type harness struct {
	t        *testing.T
	m        *Model
	svc      *local.Service
	ticks    []capturedTick
	results  chan tea.Msg
	inflight int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store, err := local.NewStore(ctx, snapshot.NewMemory(), local.DefaultRules()...)
	require.NoError(t, err)
	catalog, err := local.DefaultCatalog()
	require.NoError(t, err)
	svc := local.NewService(store, catalog, estimate.NewCategorySet("flooring", "kitchen-cabinets"))
	return newHarnessWith(t, svc, svc)
}

func newHarnessWith(t *testing.T, svc *local.Service, data dataservice.Service) *harness {
	t.Helper()
	l, err := labels.Default()
	require.NoError(t, err)
	c, err := cache.New(16)
	require.NoError(t, err)

	h := &harness{t: t, svc: svc, results: make(chan tea.Msg, 64)}
	h.m = New(Options{
		Data:     data,
		Cache:    c,
		Labels:   l,
		Customer: orchestrator.Customer{Postcode: "SW1A 1AA"},
	})
	h.m.SetTicker(func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
		h.ticks = append(h.ticks, capturedTick{d, fn})
		return nil
	})
	t.Cleanup(h.m.Shutdown)
	h.run(h.m.Init())
	return h
}

func (h *harness) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	h.inflight++
	go func() { h.results <- cmd() }()
}

func (h *harness) deliver(msg tea.Msg) {
	switch msg := msg.(type) {
	case nil, tea.QuitMsg:
		return
	case tea.BatchMsg:
		for _, c := range msg {
			h.exec(c)
		}
		return
	}
	_, cmd := h.m.Update(msg)
	h.exec(cmd)
}

// run executes cmd and pumps until the model is idle.
func (h *harness) run(cmd tea.Cmd) {
	h.exec(cmd)
	for {
		if h.inflight == 0 && len(h.m.updateChan) == 0 {
			return
		}
		select {
		case msg := <-h.results:
			h.inflight--
			h.deliver(msg)
		case msg := <-h.m.updateChan:
			h.deliver(msg)
		case <-time.After(250 * time.Millisecond):
			// Something is blocked on the user.
			return
		}
	}
}

func (h *harness) send(msg tea.Msg) {
	_, cmd := h.m.Update(msg)
	h.run(cmd)
}

func (h *harness) press(names ...string) {
	for _, name := range names {
		var msg tea.KeyMsg
		switch name {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(name)}
		}
		h.send(msg)
	}
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.press(string(r))
	}
}

func (h *harness) state() navigation.State { return h.m.State() }

// seed creates an estimate with one room holding productID, if set.
func (h *harness) seed(name, room, productID string) (string, string) {
	h.t.Helper()
	ctx := context.Background()
	est, err := h.svc.CreateEstimate(ctx, dataservice.EstimateInput{Name: name})
	require.NoError(h.t, err)
	r, err := h.svc.CreateRoom(ctx, est.EstimateID, dataservice.RoomInput{Name: room, Width: 3, Length: 4}, productID)
	require.NoError(h.t, err)
	return est.EstimateID, r.RoomID
}

func (h *harness) room(estimateID, roomID string) estimate.Room {
	h.t.Helper()
	list, err := h.svc.ListEstimates(context.Background())
	require.NoError(h.t, err)
	for _, e := range list {
		if e.ID == estimateID {
			return e.Rooms[roomID]
		}
	}
	h.t.Fatalf("estimate %s not found", estimateID)
	return estimate.Room{}
}

func productIDs(r estimate.Room) []string {
	ids := make([]string, len(r.Products))
	for i, p := range r.Products {
		ids[i] = p.ID
	}
	return ids
}

// gatedService blocks ListEstimates until release is closed.
type gatedService struct {
	dataservice.Service
	release chan struct{}
}

func (g *gatedService) ListEstimates(context.Context) ([]estimate.Estimate, error) {
	<-g.release
	return g.Service.ListEstimates(context.Background())
}

func newGatedHarness(t *testing.T) (*harness, chan struct{}) {
	t.Helper()
	ctx := context.Background()
	store, err := local.NewStore(ctx, snapshot.NewMemory())
	require.NoError(t, err)
	catalog, err := local.DefaultCatalog()
	require.NoError(t, err)
	svc := local.NewService(store, catalog, estimate.NewCategorySet("flooring"))
	release := make(chan struct{})
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})
	return newHarnessWith(t, svc, &gatedService{Service: svc, release: release}), release
}

// TestInitLoadsCatalog tests the page lists the catalog while closed
func TestInitLoadsCatalog(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, navigation.StateClosed, h.state())
	assert.False(t, h.m.IsOpen())
	require.NotEmpty(t, h.m.products)
	assert.Contains(t, h.m.View(), "Product catalog")
	assert.Contains(t, h.m.View(), "Oak engineered flooring")
}

// TestProductFlowWithoutEstimates tests opening for a product with no
// estimates leads through both forms to the product in a new room
func TestProductFlowWithoutEstimates(t *testing.T) {
	h := newHarness(t)

	h.send(openMsg{productID: "luxury-vinyl"})
	require.Equal(t, navigation.StateNewEstimateForm, h.state())

	h.typeText("Home")
	h.press("enter")
	require.Equal(t, navigation.StateRoomSelection, h.state())
	assert.Equal(t, "Home", h.m.current.Name)
	assert.Equal(t, "SW1A 1AA", h.m.current.CustomerPostcode)

	// No rooms yet, so the cursor sits on the new room option.
	h.press("enter")
	require.Equal(t, navigation.StateNewRoomForm, h.state())
	h.typeText("Kitchen")
	h.press("tab")
	h.typeText("3")
	h.press("tab")
	h.typeText("4")
	h.press("enter")

	require.Equal(t, navigation.StateEstimatesList, h.state())
	require.Len(t, h.m.estimates, 1)
	est := h.m.estimates[0]
	rooms := est.RoomList()
	require.Len(t, rooms, 1)
	assert.Equal(t, []string{"luxury-vinyl"}, productIDs(rooms[0]))
	assert.True(t, h.m.expanded[est.ID])
	assert.True(t, h.m.expanded[rooms[0].ID])

	note, _, ok := h.m.notify.Current()
	require.True(t, ok)
	assert.Equal(t, "Luxury vinyl plank added to Kitchen.", note)
}

// TestProductFlowIntoExistingRoom tests choosing an estimate and a room adds
// the product and expands the room in the list
func TestProductFlowIntoExistingRoom(t *testing.T) {
	h := newHarness(t)
	estID, roomID := h.seed("House", "Hall", "")

	h.send(openMsg{productID: "wool-carpet"})
	require.Equal(t, navigation.StateEstimateSelection, h.state())
	assert.Contains(t, h.m.View(), "House")

	h.press("enter")
	require.Equal(t, navigation.StateRoomSelection, h.state())
	h.press("enter")

	require.Equal(t, navigation.StateEstimatesList, h.state())
	assert.Equal(t, []string{"wool-carpet"}, productIDs(h.room(estID, roomID)))
	assert.True(t, h.m.expanded[roomID])
	assert.Contains(t, h.m.View(), "Wool carpet")
}

// TestDuplicateProductShowsInfoDialog tests adding a product twice leaves the
// room unchanged and returns to room selection
func TestDuplicateProductShowsInfoDialog(t *testing.T) {
	h := newHarness(t)
	estID, roomID := h.seed("House", "Hall", "skirting-board")

	h.send(openMsg{productID: "skirting-board"})
	h.press("enter", "enter")

	assert.Equal(t, navigation.StateRoomSelection, h.state())
	require.Len(t, h.m.dialogs, 1)
	assert.Equal(t, "Already in this room", h.m.dialogs[0].opts.Title)
	assert.Equal(t, []string{"skirting-board"}, productIDs(h.room(estID, roomID)))

	h.press("enter")
	assert.Empty(t, h.m.dialogs)
	assert.Equal(t, navigation.StateRoomSelection, h.state())
}

func openConflict(t *testing.T) (*harness, string, string) {
	t.Helper()
	h := newHarness(t)
	estID, roomID := h.seed("House", "Kitchen", "luxury-vinyl")

	h.send(openMsg{productID: "porcelain-tile"})
	h.press("enter", "enter")

	require.Equal(t, navigation.StateConflictResolution, h.state())
	require.Len(t, h.m.dialogs, 1)
	return h, estID, roomID
}

// TestConflictReplace tests the replace button swaps the primary product and
// shows the success dialog over the expanded list
func TestConflictReplace(t *testing.T) {
	h, estID, roomID := openConflict(t)

	d := h.m.dialogs[0]
	assert.Equal(t, orchestrator.DialogConflict, d.opts.Type)
	assert.Equal(t, []string{"Replace", "Go back to room select", "Cancel"}, d.panel().Buttons)
	assert.Contains(t, d.opts.Title, "Replace")
	assert.True(t, h.m.suite.Guard.Busy(orchestrator.RoomKey(estID, roomID)))
	assert.Contains(t, h.m.View(), "[Replace]")

	h.press("enter")

	assert.Equal(t, navigation.StateEstimatesList, h.state())
	assert.Equal(t, []string{"porcelain-tile"}, productIDs(h.room(estID, roomID)))
	assert.False(t, h.m.suite.Guard.Busy(orchestrator.RoomKey(estID, roomID)))
	require.Len(t, h.m.dialogs, 1)
	assert.Equal(t, "Product replaced", h.m.dialogs[0].opts.Title)
	assert.False(t, h.m.loading)

	h.press("enter")
	assert.Empty(t, h.m.dialogs)
	assert.Equal(t, navigation.StateEstimatesList, h.state())
}

// TestConflictCancel tests esc cancels the conflict and keeps the room as it was
func TestConflictCancel(t *testing.T) {
	h, estID, roomID := openConflict(t)
	gen := h.m.nav.Generation()

	h.press("esc")

	assert.Equal(t, navigation.StateRoomSelection, h.state())
	assert.Equal(t, gen, h.m.nav.Generation(), "cancel is not a view transition")
	assert.Empty(t, h.m.dialogs)
	assert.False(t, h.m.suite.Guard.Busy(orchestrator.RoomKey(estID, roomID)))
	assert.Equal(t, []string{"luxury-vinyl"}, productIDs(h.room(estID, roomID)))
}

// TestConflictGoBack tests the go back button reloads room selection
func TestConflictGoBack(t *testing.T) {
	h, estID, roomID := openConflict(t)

	h.press("right", "enter")

	assert.Equal(t, navigation.StateRoomSelection, h.state())
	assert.Equal(t, estID, h.m.current.ID)
	assert.Len(t, h.m.current.Rooms, 1)
	assert.False(t, h.m.loading)
	assert.Equal(t, []string{"luxury-vinyl"}, productIDs(h.room(estID, roomID)))
}

// TestVariationSelection tests a variable product asks for a variation and
// adds the chosen one
func TestVariationSelection(t *testing.T) {
	h := newHarness(t)
	estID, roomID := h.seed("House", "Lounge", "")

	h.send(openMsg{productID: "oak-engineered"})
	h.press("enter", "enter")

	require.Equal(t, navigation.StateVariationSelection, h.state())
	require.Len(t, h.m.dialogs, 1)
	assert.Equal(t, []string{"Natural", "Smoked"}, h.m.dialogs[0].options)

	h.press("down", "enter")

	assert.Equal(t, navigation.StateEstimatesList, h.state())
	assert.Equal(t, []string{"oak-engineered-smoked"}, productIDs(h.room(estID, roomID)))
}

// TestVariationCancelled tests dismissing the prompt returns to room selection
// without changes
func TestVariationCancelled(t *testing.T) {
	h := newHarness(t)
	estID, roomID := h.seed("House", "Lounge", "")

	h.send(openMsg{productID: "oak-engineered"})
	h.press("enter", "enter", "esc")

	assert.Equal(t, navigation.StateRoomSelection, h.state())
	assert.Empty(t, h.m.dialogs)
	assert.Empty(t, h.room(estID, roomID).Products)
}

// TestValidationStaysOnForm tests a missing name is reported on the form
func TestValidationStaysOnForm(t *testing.T) {
	h := newHarness(t)

	h.send(openMsg{forceList: true})
	require.Equal(t, navigation.StateEstimatesList, h.state())
	assert.Contains(t, h.m.View(), "No estimates yet")

	h.press("n", "enter")

	assert.Equal(t, navigation.StateNewEstimateForm, h.state())
	assert.Equal(t, "name", h.m.form.errField)
	assert.NotEmpty(t, h.m.form.errMsg)
	assert.False(t, h.m.form.submitting)
	assert.Contains(t, h.m.View(), h.m.form.errMsg)

	list, err := h.svc.ListEstimates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

// TestRoomFormRejectsBadDimensions tests dimension errors focus the field
func TestRoomFormRejectsBadDimensions(t *testing.T) {
	h := newHarness(t)
	h.seed("House", "Hall", "")

	h.send(openMsg{forceList: true})
	h.press("a")
	require.Equal(t, navigation.StateNewRoomForm, h.state())

	h.typeText("Bedroom")
	h.press("tab")
	h.typeText("wide")
	h.press("tab")
	h.typeText("4")
	h.press("enter")

	assert.Equal(t, navigation.StateNewRoomForm, h.state())
	assert.Equal(t, "width", h.m.form.errField)
	assert.Equal(t, 1, h.m.form.focus)
}

// TestListExpandAndRemoveProduct tests expanding rows and removing a product
func TestListExpandAndRemoveProduct(t *testing.T) {
	h := newHarness(t)
	estID, roomID := h.seed("House", "Hall", "wool-carpet")

	h.send(openMsg{forceList: true})
	require.Len(t, h.m.rows(), 1)

	h.press("enter")
	require.Len(t, h.m.rows(), 2)
	h.press("down", "enter")
	rows := h.m.rows()
	require.Len(t, rows, 3)
	assert.Equal(t, rowProduct, rows[2].kind)

	h.press("down", "d")

	assert.Equal(t, navigation.StateEstimatesList, h.state())
	assert.Empty(t, h.room(estID, roomID).Products)
	assert.True(t, h.m.expanded[roomID])
}

// TestRemoveEstimateAfterConfirm tests the delete key asks first and removes
// the estimate on confirm
func TestRemoveEstimateAfterConfirm(t *testing.T) {
	h := newHarness(t)
	h.seed("House", "Hall", "")

	h.send(openMsg{forceList: true})
	h.press("d")
	require.Len(t, h.m.dialogs, 1)
	assert.Equal(t, "Delete estimate?", h.m.dialogs[0].opts.Title)

	h.press("enter")

	assert.Equal(t, navigation.StateEstimatesList, h.state())
	assert.Empty(t, h.m.estimates)
	list, err := h.svc.ListEstimates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

// TestCloseClearsState tests closing drops view data and the session
func TestCloseClearsState(t *testing.T) {
	h := newHarness(t)
	h.seed("House", "Hall", "")

	h.send(openMsg{forceList: true})
	h.press("enter")
	session := h.m.suite.Session

	h.press("esc")

	assert.Equal(t, navigation.StateClosed, h.state())
	assert.False(t, h.m.IsOpen())
	assert.True(t, session.Closed())
	assert.Nil(t, h.m.estimates)
	assert.Empty(t, h.m.expanded)
	assert.Empty(t, h.m.dialogs)
	assert.NotContains(t, h.m.View(), "Your estimates")
}

// TestStaleResultDropped tests a list that arrives after close is ignored
func TestStaleResultDropped(t *testing.T) {
	h, release := newGatedHarness(t)

	h.send(openMsg{forceList: true})
	require.Equal(t, navigation.StateListFlow, h.state())
	assert.True(t, h.m.loading)

	h.send(closeMsg{})
	close(release)
	h.run(nil)

	assert.Equal(t, navigation.StateClosed, h.state())
	assert.Nil(t, h.m.estimates)
	assert.Empty(t, h.m.errMsg)
}

// TestLoadingWatchdog tests a load that never finishes ends in the error
// view and any key leaves it
func TestLoadingWatchdog(t *testing.T) {
	h, _ := newGatedHarness(t)

	h.send(openMsg{forceList: true})
	require.NotEmpty(t, h.ticks)
	tick := h.ticks[len(h.ticks)-1]
	assert.Equal(t, DefaultLoadingTimeout, tick.d)

	h.send(tick.fn(time.Now()))
	require.Equal(t, navigation.StateError, h.state())
	assert.Equal(t, h.m.labels.Get("loading_timeout"), h.m.errMsg)
	assert.False(t, h.m.loading)
	assert.Contains(t, h.m.View(), "Something went wrong")

	h.press("x")
	assert.Equal(t, navigation.StateClosed, h.state())
	assert.False(t, h.m.IsOpen())
}

// TestWatchdogIgnoresFinishedLoad tests an expired timer after the load
// settled changes nothing
func TestWatchdogIgnoresFinishedLoad(t *testing.T) {
	h := newHarness(t)

	h.send(openMsg{forceList: true})
	require.Equal(t, navigation.StateEstimatesList, h.state())
	tick := h.ticks[len(h.ticks)-1]

	h.send(tick.fn(time.Now()))
	assert.Equal(t, navigation.StateEstimatesList, h.state())
}

// TestOneContainerVisible tests every state maps to exactly one container
func TestOneContainerVisible(t *testing.T) {
	h := newHarness(t)
	h.seed("House", "Hall", "")

	seen := map[navigation.State]bool{}
	record := func() {
		seen[h.state()] = true
		c := h.m.nav.Visible()
		assert.Contains(t, navigation.Containers, c)
		view := h.m.View()
		if c != navigation.ContainerPage {
			assert.False(t, strings.Contains(view, "Product catalog"), "page visible in %s", h.state())
		}
	}

	record()
	h.send(openMsg{productID: "wool-carpet"})
	record()
	h.press("enter")
	record()
	h.press("esc")
	record()
	h.press("n")
	record()

	assert.True(t, seen[navigation.StateClosed])
	assert.True(t, seen[navigation.StateEstimateSelection])
	assert.True(t, seen[navigation.StateRoomSelection])
	assert.True(t, seen[navigation.StateNewEstimateForm])
}

// TestBridgeOpensModal tests external navigation opens the modal
func TestBridgeOpensModal(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.m.Bridge().ShowNewEstimateForm(context.Background(), "wool-carpet"))
	h.run(nil)

	assert.True(t, h.m.IsOpen())
	assert.Equal(t, navigation.StateNewEstimateForm, h.state())
	assert.Equal(t, "wool-carpet", h.m.productID)
}

// TestClosedSessionNavigationDropped tests requests from an old session are
// ignored
func TestClosedSessionNavigationDropped(t *testing.T) {
	h := newHarness(t)
	h.send(openMsg{forceList: true})
	old := &navigatorBridge{sessionID: h.m.suite.Session.ID, send: h.m.send}
	h.send(closeMsg{})

	old.ShowRoomSelection("missing")
	h.run(nil)

	assert.Equal(t, navigation.StateClosed, h.state())
	assert.False(t, h.m.IsOpen())
}

// TestErrorViewReturnsToLastStable tests a failed load returns to the view
// it started from
func TestErrorViewReturnsToLastStable(t *testing.T) {
	h := newHarness(t)
	h.send(openMsg{forceList: true})

	h.send(navigateMsg{sessionID: h.m.suite.Session.ID, target: navRoomSelection, estimateID: "missing"})
	require.Equal(t, navigation.StateError, h.state())
	assert.NotEmpty(t, h.m.errMsg)

	h.press("x")
	assert.Equal(t, navigation.StateRoomSelection, h.state())
}
