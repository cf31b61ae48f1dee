package workflow

import (
	"errors"
	"fmt"
)

// Messages stored in the aggregate's Error field.
const (
	MsgNoProductImage    = "Please upload a product image first."
	MsgMissingShotImages = "Please upload an image for every shot."
	MsgScriptFailed      = "Failed to generate script. Please check your connection or API key and try again."
	MsgPromptsFailed     = "Failed to generate Veo prompts. Please try again."
)

var (
	// ErrBusy is returned when a generation is already in flight.
	ErrBusy = errors.New("a generation is already in progress")
	// ErrWrongStep is returned when a transition is triggered from a step that does not offer it.
	ErrWrongStep = errors.New("transition is not available from the current step")
	// ErrStale is returned when a result arrives after ResetAll and is discarded.
	ErrStale = errors.New("result discarded after reset")
)

// ValidationError is a failed precondition. Message is shown to the user verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IndexError reports a shot slot index outside the current slot range.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("shot image index %d out of range [0,%d)", e.Index, e.Len)
}
