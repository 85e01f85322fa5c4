package workflow

import (
	"errors"
	"fmt"
)

// Phase is the status of a view's current request.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseErrored:
		return "errored"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the tagged status of one view. Only a loaded state carries a value
// and only loading, loaded and errored states carry a message.
type State[T any] struct {
	phase   Phase
	value   T
	message string
}

// Idle returns the resting state.
func Idle[T any]() State[T] {
	return State[T]{}
}

// Loading returns a state for a request in flight.
func Loading[T any](message string) State[T] {
	return State[T]{phase: PhaseLoading, message: message}
}

// Loaded returns a successful state holding v.
func Loaded[T any](v T, message string) State[T] {
	return State[T]{phase: PhaseLoaded, value: v, message: message}
}

// Errored returns a failed state.
func Errored[T any](message string) State[T] {
	return State[T]{phase: PhaseErrored, message: message}
}

func (s State[T]) Phase() Phase { return s.phase }

// Value returns the loaded value, if any.
func (s State[T]) Value() (T, bool) {
	return s.value, s.phase == PhaseLoaded
}

// Message is the status line shown next to the view.
func (s State[T]) Message() string { return s.message }

// Sentinel errors returned by views. None of them is fatal.
var (
	// ErrNoFile means extract was requested without a file.
	ErrNoFile = errors.New("no file selected")
	// ErrNoRecord means save was requested with nothing to save.
	ErrNoRecord = errors.New("no record to save")
	// ErrSaveInProgress means a save or update is already running.
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrIndexOutOfRange means a line item index is outside the details list.
	ErrIndexOutOfRange = errors.New("line item index out of range")
	// ErrSuperseded means a newer request replaced this one before its
	// response arrived. The response was not applied.
	ErrSuperseded = errors.New("response superseded by a newer request")
)

// Status messages shown to the user.
const (
	MsgPickFile      = "Pick a file to extract."
	MsgExtracting    = "Running extraction..."
	MsgExtractFailed = "Extraction failed."
	MsgSaving        = "Saving to database..."
	MsgSaveFailed    = "Save failed."
	MsgUpdateFailed  = "Update failed."
	MsgLoadingOrders = "Loading orders..."
	MsgOrdersFailed  = "Failed to load orders."
	MsgNoOrders      = "No orders yet. Save an extraction."
	MsgLoadingOrder  = "Loading order..."
	MsgOrderFailed   = "Failed to load order."
	MsgOrderNotFound = "Order not found."
)
