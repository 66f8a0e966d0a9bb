package orchestrator

import (
	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/apperr"
	"github.com/standardbeagle/estimator/internal/cache"
	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/internal/labels"
	"github.com/standardbeagle/estimator/internal/metrics"
	"github.com/standardbeagle/estimator/pkg/events"
)

// Deps are the long-lived collaborators shared by every session.
type Deps struct {
	Data      dataservice.Service
	Cache     *cache.Cache
	Dialogs   Dialogs
	Navigator Navigator
	Labels    *labels.Labels
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Bus       events.Publisher
}

// Suite is the set of orchestrators for one session.
type Suite struct {
	Session   *Session
	Guard     *SubmitGuard
	Estimates *EstimateOrchestrator
	Rooms     *RoomOrchestrator
	Products  *ProductOrchestrator
}

// NewSuite builds the orchestrators of a session. They are reset when the
// session closes.
func NewSuite(session *Session, deps Deps) *Suite {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Labels == nil {
		deps.Labels = labels.New(nil)
	}
	deps.Data = dataservice.Detach(deps.Data)
	b := base{
		session: session,
		deps:    deps,
		guard:   NewSubmitGuard(),
		logger:  deps.Logger.With(zap.String("session_id", session.ID)),
	}

	s := &Suite{Session: session, Guard: b.guard}
	s.Estimates = &EstimateOrchestrator{base: b}
	s.Rooms = &RoomOrchestrator{base: b, estimates: s.Estimates}
	s.Products = &ProductOrchestrator{base: b, rooms: s.Rooms}

	session.OnClose(s.Products.reset)
	session.OnClose(b.guard.Reset)
	session.OnClose(func() {
		b.logger.Debug("session closed")
		if deps.Bus != nil {
			deps.Bus.Publish(events.Event{Type: events.ModalClosed, Data: map[string]interface{}{"session_id": session.ID}})
		}
	})
	return s
}

type base struct {
	session *Session
	deps    Deps
	guard   *SubmitGuard
	logger  *zap.Logger
}

// text renders a label, logging and falling back on template failures.
func (b *base) text(key string, data any, fallback string) string {
	out, err := b.deps.Labels.RenderOr(key, data, fallback)
	if err != nil {
		b.logger.Warn("label render failed", zap.String("label", key), zap.Error(err))
	}
	return out
}

func (b *base) showError(title string, err error) {
	b.deps.Dialogs.Show(DialogOptions{
		Type:        DialogError,
		Title:       title,
		Message:     apperr.UserMessage(err, b.deps.Labels.Get("generic_error")),
		ConfirmText: b.deps.Labels.Get("confirm_button"),
	})
}

func (b *base) navigator() Navigator {
	if b.session.Closed() {
		return nopNavigator{}
	}
	return b.deps.Navigator
}

type nopNavigator struct{}

func (nopNavigator) ShowEstimatesList(string, string) {}
func (nopNavigator) ShowNewEstimateForm(string)       {}
func (nopNavigator) ShowRoomSelection(string)         {}
