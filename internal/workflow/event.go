package workflow

import "time"

// EventType names a change to the aggregate.
type EventType string

const (
	EventStepChanged         EventType = "step_changed"
	EventGenerationStarted   EventType = "generation_started"
	EventGenerationSucceeded EventType = "generation_succeeded"
	EventGenerationFailed    EventType = "generation_failed"
	EventImageSet            EventType = "image_set"
	EventReset               EventType = "reset"
)

// Operation names a generation transition.
type Operation string

const (
	OpScript    Operation = "script"
	OpAnimation Operation = "animation"
)

// ProductSlot is the Event.Slot value for the product image.
const ProductSlot = -1

// Event describes one change, published after the change is applied.
type Event struct {
	Type      EventType `json:"type"`
	Session   string    `json:"session"`
	Step      Step      `json:"step"`
	Operation Operation `json:"operation,omitempty"`
	Slot      int       `json:"slot"`
	Cleared   bool      `json:"cleared,omitempty"`
	Message   string    `json:"message,omitempty"`
	Time      time.Time `json:"time"`
}

// Notifier receives events from a Machine. Notify must not block for long and
// must not call back into the Machine synchronously.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }
