package testfixtures

import (
	"errors"
	"sync"

	"github.com/mark3labs/adreel/internal/workflow"
)

// MockClipboard records clipboard writes.
//
// Example usage:
//
//	clip := testfixtures.NewMockClipboard()
//	model := adwizard.New(ctx, adwizard.Options{Clipboard: clip.WriteAll})
//	...
//	require.Equal(t, "prompt", clip.Last())
type MockClipboard struct {
	mu     sync.Mutex
	writes []string
	fail   bool
}

// NewMockClipboard creates an empty clipboard mock.
func NewMockClipboard() *MockClipboard {
	return &MockClipboard{}
}

// WriteAll records text, or fails when SetFailing(true) was called.
func (m *MockClipboard) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("clipboard unavailable")
	}
	m.writes = append(m.writes, text)
	return nil
}

// SetFailing makes subsequent writes fail, like a headless session.
func (m *MockClipboard) SetFailing(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// Last returns the most recent write, or "".
func (m *MockClipboard) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.writes) == 0 {
		return ""
	}
	return m.writes[len(m.writes)-1]
}

// Writes returns a copy of every write.
func (m *MockClipboard) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// EventRecorder is a workflow.Notifier that records events.
type EventRecorder struct {
	mu     sync.Mutex
	events []workflow.Event
}

// Notify records ev.
func (r *EventRecorder) Notify(ev workflow.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []workflow.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]workflow.Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *EventRecorder) Types() []workflow.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]workflow.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

var _ workflow.Notifier = (*EventRecorder)(nil)
