// Package tui is the estimate builder modal: a Bubble Tea program whose
// Update loop is the view state machine.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/apperr"
	"github.com/standardbeagle/estimator/internal/cache"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/internal/labels"
	"github.com/standardbeagle/estimator/internal/metrics"
	"github.com/standardbeagle/estimator/internal/orchestrator"
	"github.com/standardbeagle/estimator/internal/tui/navigation"
	"github.com/standardbeagle/estimator/internal/tui/notifications"
	"github.com/standardbeagle/estimator/internal/tui/overlay"
	"github.com/standardbeagle/estimator/pkg/estimate"
	"github.com/standardbeagle/estimator/pkg/events"
)

// Options configure a Model.
type Options struct {
	Data                 dataservice.Service
	Cache                *cache.Cache
	Labels               *labels.Labels
	Logger               *zap.Logger
	Metrics              *metrics.Metrics
	Bus                  events.Publisher
	Customer             orchestrator.Customer
	LoadingTimeout       time.Duration
	NotificationDuration time.Duration
}

var formStates = []navigation.State{navigation.StateNewEstimateForm, navigation.StateNewRoomForm}

// Model is the modal and the host page underneath it.
type Model struct {
	opts   Options
	labels *labels.Labels
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	nav     *navigation.Controller
	router  *MessageRouter
	help    help.Model
	notify  *notifications.Controller
	overlay *overlay.Renderer
	after   notifications.TickFunc

	updateChan chan tea.Msg

	// suite is nil while the modal is closed.
	suite *orchestrator.Suite

	products   []estimate.Product
	pageCursor int
	pageErr    string

	// View-local data, reset on close.
	productID  string
	estimateID string
	roomID     string
	estimates  []estimate.Estimate
	current    estimate.Estimate
	cursor     int
	expanded   map[string]bool
	related    map[string]estimate.RelatedItems
	form       *form
	errMsg     string
	loading    bool
	dialogs    []*dialog

	width  int
	height int
}

// New creates a closed modal.
func New(opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Labels == nil {
		l, err := labels.Default()
		if err != nil {
			l = labels.New(nil)
		}
		opts.Labels = l
	}
	if opts.LoadingTimeout <= 0 {
		opts.LoadingTimeout = DefaultLoadingTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		opts:       opts,
		labels:     opts.Labels,
		logger:     opts.Logger.Named("tui"),
		ctx:        ctx,
		cancel:     cancel,
		nav:        navigation.NewController(),
		router:     NewMessageRouter(),
		help:       help.New(),
		notify:     notifications.NewController(opts.NotificationDuration),
		overlay:    overlay.NewRenderer(),
		after:      tea.Tick,
		updateChan: make(chan tea.Msg, UpdateChannelBufferSize),
		width:      DefaultWidth,
		height:     DefaultHeight,
	}
	m.resetView()
	m.nav.SetOnChange(func(from, to navigation.State) {
		m.logger.Debug("view transition",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Uint64("generation", m.nav.Generation()))
	})
	return m
}

// SetTicker replaces tea.Tick for the loading watchdog and notifications.
func (m *Model) SetTicker(fn notifications.TickFunc) {
	m.after = fn
	m.notify.SetTicker(fn)
}

// Bridge returns a handle for driving the modal from other goroutines.
func (m *Model) Bridge() *Bridge {
	return &Bridge{send: m.send}
}

// State returns the current view state.
func (m *Model) State() navigation.State { return m.nav.Current() }

// IsOpen reports whether the modal is open.
func (m *Model) IsOpen() bool { return m.suite != nil }

// Shutdown closes any open session and stops bridge sends.
func (m *Model) Shutdown() {
	m.close()
	m.cancel()
}

// send queues msg for the Update loop.
func (m *Model) send(ctx context.Context, msg tea.Msg) error {
	select {
	case m.updateChan <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return m.ctx.Err()
	}
}

func (m *Model) guardChanged() {
	select {
	case m.updateChan <- guardChangedMsg{}:
	default:
	}
}

func (m *Model) Init() tea.Cmd {
	data := m.opts.Data
	ctx := m.ctx
	return func() tea.Msg {
		products, err := data.ListProducts(ctx)
		return productsLoadedMsg{products: products, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
	case tea.KeyMsg:
		return m, m.router.Route(msg, m)
	case notifications.ClearMsg:
		m.notify.HandleMsg(msg)

	case openMsg:
		return m, m.open(msg.productID, msg.forceList)
	case closeMsg:
		return m, m.close()
	case navigateMsg:
		return m, m.handleNavigate(msg)
	case showDialogMsg:
		if m.sessionActive(msg.sessionID) {
			m.pushDialog(newDialog(msg.opts, m.labels.Get("confirm_button")))
		}
	case selectVariationMsg:
		if !m.sessionActive(msg.sessionID) {
			msg.reply <- variationReply{err: orchestrator.ErrSelectionCancelled}
			return m, nil
		}
		m.pushDialog(newVariationDialog(msg.prompt, m.labels.Get("cancel_button"), msg.reply))
		m.nav.Enter(navigation.StateVariationSelection)
	case guardChangedMsg:
		// Redraw only.
	case externalChangeMsg:
		return m, m.refresh()

	case productsLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("catalog load failed", zap.Error(msg.err))
			m.pageErr = apperr.UserMessage(apperr.Classify("list products", msg.err), m.labels.Get("generic_error"))
			return m, nil
		}
		m.products = msg.products
		m.pageErr = ""
	case flowResolvedMsg:
		return m, m.handleFlowResolved(msg)
	case estimatesLoadedMsg:
		return m, m.handleEstimatesLoaded(msg)
	case estimateLoadedMsg:
		return m, m.handleEstimateLoaded(msg)
	case estimateCreatedMsg:
		return m, m.handleEstimateCreated(msg)
	case roomCreatedMsg:
		return m, m.handleRoomCreated(msg)
	case productAddedMsg:
		return m, m.handleProductAdded(msg)
	case productRemovedMsg:
		return m, m.handleProductRemoved(msg)
	case callbackDoneMsg:
		return m, m.handleCallbackDone(msg)
	case loadingTimeoutMsg:
		return m, m.handleLoadingTimeout(msg)
	}
	return m, nil
}

// Session bookkeeping.

func (m *Model) sessionActive(id string) bool {
	return m.suite != nil && m.suite.Session.ID == id
}

func (m *Model) stamp() issued {
	s := issued{gen: m.nav.Generation()}
	if m.suite != nil {
		s.sessionID = m.suite.Session.ID
	}
	return s
}

// stale reports whether a result no longer belongs to the visible view.
func (m *Model) stale(s issued) bool {
	if m.sessionActive(s.sessionID) && s.gen == m.nav.Generation() {
		return false
	}
	m.opts.Metrics.StaleResult()
	m.logger.Debug("discarding stale result",
		zap.Uint64("generation", s.gen),
		zap.Uint64("current_generation", m.nav.Generation()))
	return true
}

func (m *Model) publish(typ events.EventType, data map[string]interface{}) {
	if m.opts.Bus != nil {
		m.opts.Bus.Publish(events.Event{Type: typ, Data: data})
	}
}

func (m *Model) resetView() {
	m.productID, m.estimateID, m.roomID = "", "", ""
	m.estimates = nil
	m.current = estimate.Estimate{}
	m.cursor = 0
	m.expanded = make(map[string]bool)
	m.related = make(map[string]estimate.RelatedItems)
	m.form = nil
	m.errMsg = ""
	m.loading = false
}

func (m *Model) startSession() {
	if m.suite != nil {
		m.close()
	}
	session := orchestrator.NewSession(m.ctx, m.opts.Customer)
	m.suite = orchestrator.NewSuite(session, orchestrator.Deps{
		Data:      m.opts.Data,
		Cache:     m.opts.Cache,
		Dialogs:   &dialogBridge{sessionID: session.ID, send: m.send},
		Navigator: &navigatorBridge{sessionID: session.ID, send: m.send},
		Labels:    m.labels,
		Logger:    m.opts.Logger,
		Metrics:   m.opts.Metrics,
		Bus:       m.opts.Bus,
	})
	m.suite.Guard.OnChange(m.guardChanged)
	m.resetView()
	m.nav.TransitionTo(navigation.StateOpening)
	m.publish(events.ModalOpened, map[string]interface{}{"session_id": session.ID})
}

// open is Closed → Opening → product or list flow.
func (m *Model) open(productID string, forceList bool) tea.Cmd {
	m.startSession()
	m.productID = productID
	m.logger.Info("modal opened",
		zap.String("session_id", m.suite.Session.ID),
		zap.String("product_id", productID),
		zap.Bool("force_list", forceList))
	if productID != "" && !forceList {
		return m.startProductFlow()
	}
	return m.showEstimatesList("", "")
}

// close is reachable from every state. It drops view data and dialogs and
// closes the session, which resets every orchestrator.
func (m *Model) close() tea.Cmd {
	if m.suite == nil {
		return nil
	}
	session := m.suite.Session
	m.suite = nil
	m.clearDialogs()
	m.resetView()
	m.nav.TransitionTo(navigation.StateClosed)
	session.Close()
	m.logger.Info("modal closed", zap.String("session_id", session.ID))
	return nil
}

func (m *Model) quit(tea.KeyMsg) tea.Cmd {
	m.close()
	return tea.Quit
}

// Loading and errors.

// load marks the view as loading and arms the watchdog for the current
// generation.
func (m *Model) load(cmd tea.Cmd) tea.Cmd {
	m.loading = true
	return tea.Batch(cmd, m.watchdog(m.nav.Generation()))
}

// enter transitions to a loading state and arms the watchdog.
func (m *Model) enter(s navigation.State) tea.Cmd {
	m.nav.TransitionTo(s)
	m.loading = true
	return m.watchdog(m.nav.Generation())
}

func (m *Model) watchdog(gen uint64) tea.Cmd {
	return m.after(m.opts.LoadingTimeout, func(time.Time) tea.Msg {
		return loadingTimeoutMsg{gen: gen}
	})
}

func (m *Model) settle() {
	m.loading = false
}

func (m *Model) handleLoadingTimeout(msg loadingTimeoutMsg) tea.Cmd {
	if msg.gen != m.nav.Generation() || !m.loading {
		return nil
	}
	if len(m.dialogs) > 0 {
		// Waiting on the user, not the backend.
		return m.watchdog(msg.gen)
	}
	m.logger.Warn("loading timed out", zap.String("state", string(m.nav.Current())))
	m.settle()
	m.errMsg = m.labels.Get("loading_timeout")
	m.nav.Fail()
	return nil
}

// fail shows err in the error view.
func (m *Model) fail(err error) tea.Cmd {
	m.settle()
	m.errMsg = apperr.UserMessage(err, m.labels.Get("generic_error"))
	m.logger.Warn("operation failed", zap.String("state", string(m.nav.Current())), zap.Error(err))
	m.nav.Fail()
	return nil
}

func (m *Model) returnFromError() tea.Cmd {
	m.errMsg = ""
	if m.nav.Return() == navigation.StateClosed {
		return m.close()
	}
	return nil
}

func (m *Model) notifyBusy() tea.Cmd {
	return m.notify.Show(notifications.LevelWarning, m.labels.Get("busy"))
}

func isBusy(err error) bool {
	return errors.Is(err, apperr.Busy)
}

// Presentation API.

func (m *Model) handleNavigate(msg navigateMsg) tea.Cmd {
	if msg.sessionID != "" && !m.sessionActive(msg.sessionID) {
		m.logger.Debug("navigation from closed session dropped", zap.String("session_id", msg.sessionID))
		return nil
	}
	if m.suite == nil {
		m.startSession()
	}
	switch msg.target {
	case navNewEstimateForm:
		return m.showNewEstimateForm(msg.productID)
	case navRoomSelection:
		return m.showRoomSelection(msg.estimateID)
	default:
		return m.showEstimatesList(msg.estimateID, msg.roomID)
	}
}

// showEstimatesList loads the list, expanding the given estimate and room.
func (m *Model) showEstimatesList(expandEstimateID, expandRoomID string) tea.Cmd {
	m.expanded = make(map[string]bool)
	m.nav.TransitionTo(navigation.StateListFlow)
	return m.loadEstimates(expandEstimateID, expandRoomID)
}

func (m *Model) loadEstimates(expandEstimateID, expandRoomID string) tea.Cmd {
	stamp, suite := m.stamp(), m.suite
	return m.load(func() tea.Msg {
		list, err := suite.Estimates.ListEstimates(suite.Session.Context(), false)
		return estimatesLoadedMsg{issued: stamp, list: list, expandEstimateID: expandEstimateID, expandRoomID: expandRoomID, err: err}
	})
}

func (m *Model) handleEstimatesLoaded(msg estimatesLoadedMsg) tea.Cmd {
	if m.stale(msg.issued) {
		return nil
	}
	m.settle()
	if msg.err != nil {
		return m.fail(msg.err)
	}
	m.estimates = msg.list
	if msg.expandEstimateID != "" {
		m.expanded[msg.expandEstimateID] = true
	}
	if msg.expandRoomID != "" {
		m.expanded[msg.expandRoomID] = true
	}
	if m.nav.Current() != navigation.StateEstimatesList {
		m.nav.TransitionTo(navigation.StateEstimatesList)
	}
	m.cursor = m.rowIndex(msg.expandEstimateID, msg.expandRoomID)
	return nil
}

// showNewEstimateForm shows an empty estimate form. productID carries
// through to the room steps.
func (m *Model) showNewEstimateForm(productID string) tea.Cmd {
	m.productID = productID
	m.form = m.newEstimateForm()
	m.nav.TransitionTo(navigation.StateNewEstimateForm)
	return nil
}

// showRoomSelection loads an estimate and lists its rooms.
func (m *Model) showRoomSelection(estimateID string) tea.Cmd {
	m.estimateID = estimateID
	m.current = estimate.Estimate{ID: estimateID}
	m.cursor = 0
	m.nav.TransitionTo(navigation.StateRoomSelection)
	stamp, suite := m.stamp(), m.suite
	return m.load(func() tea.Msg {
		e, err := suite.Estimates.GetEstimate(suite.Session.Context(), estimateID)
		return estimateLoadedMsg{issued: stamp, estimate: e, err: err}
	})
}

func (m *Model) handleEstimateLoaded(msg estimateLoadedMsg) tea.Cmd {
	if m.stale(msg.issued) {
		return nil
	}
	m.settle()
	if msg.err != nil {
		return m.fail(msg.err)
	}
	m.current = msg.estimate
	return nil
}

func (m *Model) showNewRoomForm(estimateID string) tea.Cmd {
	m.estimateID = estimateID
	m.form = m.newRoomForm()
	m.nav.TransitionTo(navigation.StateNewRoomForm)
	return nil
}

// refresh reloads what is on screen after an external change.
func (m *Model) refresh() tea.Cmd {
	if m.suite == nil || m.loading || len(m.dialogs) > 0 {
		return nil
	}
	switch m.nav.Current() {
	case navigation.StateEstimatesList:
		return m.loadEstimates("", "")
	case navigation.StateRoomSelection:
		return m.showRoomSelection(m.current.ID)
	}
	return nil
}

// Product flow.

func (m *Model) startProductFlow() tea.Cmd {
	m.nav.TransitionTo(navigation.StateProductFlow)
	stamp, suite := m.stamp(), m.suite
	return m.load(func() tea.Msg {
		ctx := suite.Session.Context()
		has, err := suite.Estimates.HasEstimates(ctx)
		var list []estimate.Estimate
		if err == nil && has {
			list, err = suite.Estimates.ListEstimates(ctx, false)
		}
		return flowResolvedMsg{issued: stamp, has: has, list: list, err: err}
	})
}

func (m *Model) handleFlowResolved(msg flowResolvedMsg) tea.Cmd {
	if m.stale(msg.issued) {
		return nil
	}
	m.settle()
	if msg.err != nil {
		return m.fail(msg.err)
	}
	if !msg.has {
		return m.showNewEstimateForm(m.productID)
	}
	m.estimates = msg.list
	m.cursor = 0
	m.nav.TransitionTo(navigation.StateEstimateSelection)
	return nil
}

func (m *Model) selectEstimate(e estimate.Estimate) tea.Cmd {
	m.current = e
	m.estimateID = e.ID
	m.cursor = 0
	m.nav.TransitionTo(navigation.StateRoomSelection)
	return nil
}

func (m *Model) addProduct(estimateID, roomID string) tea.Cmd {
	m.estimateID, m.roomID = estimateID, roomID
	m.nav.TransitionTo(navigation.StateProductAddition)
	stamp, suite, productID := m.stamp(), m.suite, m.productID
	return m.load(func() tea.Msg {
		out, err := suite.Products.AddProductToRoom(suite.Session.Context(), estimateID, roomID, productID)
		return productAddedMsg{issued: stamp, outcome: out, err: err}
	})
}

func (m *Model) handleProductAdded(msg productAddedMsg) tea.Cmd {
	if m.stale(msg.issued) {
		return nil
	}
	m.settle()
	if msg.err != nil {
		if isBusy(msg.err) {
			m.nav.TransitionTo(navigation.StateRoomSelection)
			return m.notifyBusy()
		}
		return m.fail(msg.err)
	}

	out := msg.outcome
	switch out.Kind {
	case orchestrator.OutcomeAdded:
		m.related[out.RoomID] = out.Related
		name := out.Item.Name
		if name == "" {
			name = out.ProductID
		}
		note := m.text("add_success_message", map[string]string{
			"ProductName": name,
			"RoomName":    m.current.Rooms[out.RoomID].Name,
		}, name+" added.")
		return tea.Batch(
			m.showEstimatesList(out.EstimateID, out.RoomID),
			m.notify.Show(notifications.LevelSuccess, note),
		)
	case orchestrator.OutcomeConflict:
		m.nav.TransitionTo(navigation.StateConflictResolution)
	default:
		// Duplicate dialog is already queued; cancelled needs nothing.
		m.nav.TransitionTo(navigation.StateRoomSelection)
	}
	return nil
}

// Forms.

func (m *Model) submitEstimateForm(tea.KeyMsg) tea.Cmd {
	f := m.form
	if f.submitting {
		return m.notifyBusy()
	}
	f.submitting = true
	f.errField, f.errMsg = "", ""
	name, postcode := f.value("name"), f.value("postcode")
	stamp, suite := m.stamp(), m.suite
	return m.load(func() tea.Msg {
		e, err := suite.Estimates.CreateEstimate(suite.Session.Context(), name, postcode)
		return estimateCreatedMsg{issued: stamp, estimate: e, err: err}
	})
}

func (m *Model) handleEstimateCreated(msg estimateCreatedMsg) tea.Cmd {
	if m.stale(msg.issued) {
		return nil
	}
	m.settle()
	m.form.submitting = false
	if msg.err != nil {
		return m.formError(msg.err)
	}
	e := msg.estimate
	m.estimates = append(m.estimates, e)
	if m.productID != "" {
		return m.selectEstimate(e)
	}
	return m.showEstimatesList(e.ID, "")
}

func (m *Model) submitRoomForm(tea.KeyMsg) tea.Cmd {
	f := m.form
	if f.submitting {
		return m.notifyBusy()
	}
	f.submitting = true
	f.errField, f.errMsg = "", ""
	estimateID, form, productID := m.estimateID, f.roomForm(), m.productID
	stamp, suite := m.stamp(), m.suite
	return m.load(func() tea.Msg {
		res, err := suite.Rooms.CreateRoom(suite.Session.Context(), estimateID, form, productID)
		return roomCreatedMsg{issued: stamp, estimateID: estimateID, result: res, err: err}
	})
}

func (m *Model) handleRoomCreated(msg roomCreatedMsg) tea.Cmd {
	if m.stale(msg.issued) {
		return nil
	}
	m.settle()
	m.form.submitting = false
	if msg.err != nil {
		return m.formError(msg.err)
	}
	room := msg.result.Room
	if m.current.ID == msg.estimateID {
		m.current = m.current.Clone()
		if m.current.Rooms == nil {
			m.current.Rooms = make(map[string]estimate.Room)
		}
		m.current.Rooms[room.ID] = room
	}
	if m.productID != "" && !msg.result.ProductAdded {
		return m.addProduct(msg.estimateID, room.ID)
	}
	cmds := []tea.Cmd{m.showEstimatesList(msg.estimateID, room.ID)}
	if msg.result.ProductAdded {
		note := m.text("add_success_message", map[string]string{
			"ProductName": m.productName(m.productID),
			"RoomName":    room.Name,
		}, "Product added.")
		cmds = append(cmds, m.notify.Show(notifications.LevelSuccess, note))
	}
	return tea.Batch(cmds...)
}

// formError keeps validation and busy errors on the form.
func (m *Model) formError(err error) tea.Cmd {
	switch {
	case errors.Is(err, apperr.Validation):
		m.form.fail(err, m.labels.Get("generic_error"))
		return nil
	case isBusy(err):
		return m.notifyBusy()
	}
	return m.fail(err)
}

func (m *Model) formBack(tea.KeyMsg) tea.Cmd {
	switch m.nav.Current() {
	case navigation.StateNewEstimateForm:
		switch {
		case m.productID == "":
			return m.showEstimatesList("", "")
		case len(m.estimates) > 0:
			m.cursor = 0
			m.nav.TransitionTo(navigation.StateEstimateSelection)
			return nil
		}
		return m.close()
	default:
		if m.productID == "" {
			return m.showEstimatesList(m.estimateID, "")
		}
		if m.current.ID == m.estimateID {
			m.cursor = 0
			m.nav.TransitionTo(navigation.StateRoomSelection)
			return nil
		}
		return m.showRoomSelection(m.estimateID)
	}
}

func (m *Model) formMode() bool {
	s := m.nav.Current()
	return m.form != nil && (s == navigation.StateNewEstimateForm || s == navigation.StateNewRoomForm)
}

// Dialog follow-ups and fire-and-forget calls.

// fire runs fn off the Update loop; its dialogs and navigation come back
// through the bridges.
func (m *Model) fire(operation string, fn func(ctx context.Context, suite *orchestrator.Suite)) tea.Cmd {
	suite := m.suite
	if suite == nil {
		return nil
	}
	return callbackCmd(operation, m.stamp(), "", func() { fn(suite.Session.Context(), suite) })
}

func (m *Model) handleCallbackDone(msg callbackDoneMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Error("dialog callback failed", zap.String("operation", msg.op), zap.Error(msg.err))
	}
	if msg.fallback == "" || !m.sessionActive(msg.sessionID) || msg.gen != m.nav.Generation() {
		return nil
	}
	m.settle()
	m.nav.TransitionTo(msg.fallback)
	return nil
}

func (m *Model) removeProduct(r listRow) tea.Cmd {
	stamp, suite := m.stamp(), m.suite
	return m.load(func() tea.Msg {
		_, err := suite.Products.RemoveProductFromRoom(suite.Session.Context(), r.estimateID, r.roomID, r.productIndex, r.productID)
		return productRemovedMsg{issued: stamp, estimateID: r.estimateID, roomID: r.roomID, err: err}
	})
}

func (m *Model) handleProductRemoved(msg productRemovedMsg) tea.Cmd {
	if m.stale(msg.issued) {
		return nil
	}
	m.settle()
	if msg.err != nil {
		if isBusy(msg.err) {
			return m.notifyBusy()
		}
		return m.fail(msg.err)
	}
	return m.showEstimatesList(msg.estimateID, msg.roomID)
}

// Helpers.

func (m *Model) text(key string, data any, fallback string) string {
	out, err := m.labels.RenderOr(key, data, fallback)
	if err != nil {
		m.logger.Warn("label render failed", zap.String("label", key), zap.Error(err))
	}
	return out
}

func (m *Model) productName(id string) string {
	for _, p := range m.products {
		if p.ID == id {
			return p.Name
		}
		for _, v := range p.Variations {
			if v.ID == id {
				return p.Name + " - " + v.Name
			}
		}
	}
	return id
}
