package navigation

// State is a node of the modal's view state machine.
type State string

const (
	StateClosed             State = "closed"
	StateOpening            State = "opening"
	StateProductFlow        State = "product-flow"
	StateListFlow           State = "list-flow"
	StateEstimateSelection  State = "estimate-selection"
	StateRoomSelection      State = "room-selection"
	StateNewEstimateForm    State = "new-estimate-form"
	StateNewRoomForm        State = "new-room-form"
	StateProductAddition    State = "product-addition"
	StateConflictResolution State = "conflict-resolution"
	StateEstimatesList      State = "estimates-list"
	StateVariationSelection State = "variation-selection"
	StateError              State = "error"
)

// States lists every state.
var States = []State{
	StateClosed,
	StateOpening,
	StateProductFlow,
	StateListFlow,
	StateEstimateSelection,
	StateRoomSelection,
	StateNewEstimateForm,
	StateNewRoomForm,
	StateProductAddition,
	StateConflictResolution,
	StateEstimatesList,
	StateVariationSelection,
	StateError,
}

// Container is a top-level region of the screen. Exactly one is visible.
type Container string

const (
	ContainerPage              Container = "page"
	ContainerLoading           Container = "loading"
	ContainerEstimateSelection Container = "estimate-selection"
	ContainerRoomSelection     Container = "room-selection"
	ContainerNewEstimateForm   Container = "new-estimate-form"
	ContainerNewRoomForm       Container = "new-room-form"
	ContainerEstimatesList     Container = "estimates-list"
	ContainerError             Container = "error"
)

// Containers lists every container.
var Containers = []Container{
	ContainerPage,
	ContainerLoading,
	ContainerEstimateSelection,
	ContainerRoomSelection,
	ContainerNewEstimateForm,
	ContainerNewRoomForm,
	ContainerEstimatesList,
	ContainerError,
}

// Container returns the container shown in s. Conflict and variation
// prompts are dialogs drawn over the room selection.
func (s State) Container() Container {
	switch s {
	case StateClosed:
		return ContainerPage
	case StateEstimateSelection:
		return ContainerEstimateSelection
	case StateRoomSelection, StateConflictResolution, StateVariationSelection:
		return ContainerRoomSelection
	case StateNewEstimateForm:
		return ContainerNewEstimateForm
	case StateNewRoomForm:
		return ContainerNewRoomForm
	case StateEstimatesList:
		return ContainerEstimatesList
	case StateError:
		return ContainerError
	default:
		return ContainerLoading
	}
}

// Stable reports whether the error view may return to s.
func (s State) Stable() bool {
	switch s {
	case StateClosed, StateEstimateSelection, StateRoomSelection,
		StateNewEstimateForm, StateNewRoomForm, StateEstimatesList:
		return true
	}
	return false
}

// Controller tracks the current state and the view generation. Every
// transition bumps the generation; results issued under an older one are
// stale.
type Controller struct {
	current    State
	lastStable State
	generation uint64
	onChange   func(from, to State)
}

// NewController starts closed.
func NewController() *Controller {
	return &Controller{current: StateClosed, lastStable: StateClosed}
}

// SetOnChange sets the callback run after every state change.
func (c *Controller) SetOnChange(fn func(from, to State)) {
	c.onChange = fn
}

func (c *Controller) Current() State { return c.current }

func (c *Controller) Generation() uint64 { return c.generation }

// Visible returns the one container on screen.
func (c *Controller) Visible() Container {
	return c.current.Container()
}

// TransitionTo moves to s and returns the new generation.
func (c *Controller) TransitionTo(s State) uint64 {
	c.generation++
	c.set(s)
	return c.generation
}

// Enter moves to s inside the current generation. It is used for dialog
// sub-states of an operation that is still in flight.
func (c *Controller) Enter(s State) {
	c.set(s)
}

// Fail switches to the error view, remembering where to return.
func (c *Controller) Fail() uint64 {
	return c.TransitionTo(StateError)
}

// Return leaves the error view for the last stable state.
func (c *Controller) Return() State {
	c.TransitionTo(c.lastStable)
	return c.current
}

func (c *Controller) set(s State) {
	from := c.current
	c.current = s
	if s.Stable() {
		c.lastStable = s
	}
	if c.onChange != nil && from != s {
		c.onChange(from, s)
	}
}
