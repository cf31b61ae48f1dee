// Package workflow holds the four-step ad concept wizard state and its transitions.
//
// A Machine owns the aggregate. Views read Snapshots and call Machine methods;
// they never mutate state directly. Generation transitions release the lock
// while the remote call runs, so a ResetAll can race them; the session epoch
// makes the late result a no-op in that case.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/logger"
)

// Encoder converts image sources into payloads.
type Encoder interface {
	Encode(ctx context.Context, src encoder.Source) (encoder.Payload, error)
	EncodeAll(ctx context.Context, srcs []encoder.Source) ([]encoder.Payload, error)
}

// Machine is the workflow state machine. It is safe for concurrent use.
type Machine struct {
	mu       sync.Mutex
	state    state
	epoch    uint64
	gen      genclient.Generator
	enc      Encoder
	notifier Notifier
	session  string
	now      func() time.Time
	log      *logger.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithNotifier publishes every change to n.
func WithNotifier(n Notifier) Option {
	return func(m *Machine) { m.notifier = n }
}

// WithSession tags events with a session identifier.
func WithSession(id string) Option {
	return func(m *Machine) { m.session = id }
}

// New creates a Machine in the initial state.
func New(gen genclient.Generator, enc Encoder, opts ...Option) *Machine {
	m := &Machine{
		state: initialState(),
		gen:   gen,
		enc:   enc,
		now:   time.Now,
		log:   logger.For("workflow"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns the identifier events are tagged with.
func (m *Machine) Session() string {
	return m.session
}

// Snapshot returns a copy of the current aggregate.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.snapshot(m.epoch)
}

// SetProductImage replaces the product image. A nil src clears it.
// It returns ErrBusy while a generation is in flight.
func (m *Machine) SetProductImage(src encoder.Source) error {
	m.mu.Lock()
	if m.state.loading {
		m.mu.Unlock()
		return ErrBusy
	}
	m.state.productImage = src
	ev := m.event(EventImageSet)
	m.mu.Unlock()

	ev.Slot = ProductSlot
	ev.Cleared = src == nil
	m.notify(ev)
	return nil
}

// SetUserImage replaces the image in shot slot index. A nil src clears the slot.
// It returns ErrBusy while a generation is in flight.
func (m *Machine) SetUserImage(index int, src encoder.Source) error {
	m.mu.Lock()
	if m.state.loading {
		m.mu.Unlock()
		return ErrBusy
	}
	if index < 0 || index >= len(m.state.userImages) {
		n := len(m.state.userImages)
		m.mu.Unlock()
		return &IndexError{Index: index, Len: n}
	}
	m.state.userImages[index] = src
	ev := m.event(EventImageSet)
	m.mu.Unlock()

	ev.Slot = index
	ev.Cleared = src == nil
	m.notify(ev)
	return nil
}

// Forward moves from the script review to image collection.
// It reports whether the step changed.
func (m *Machine) Forward() bool {
	return m.move(func(s Step) (Step, bool) {
		return StepUploadShotImages, s == StepReviewScript
	})
}

// Back moves one step backward from steps 2 to 4.
// It reports whether the step changed.
func (m *Machine) Back() bool {
	return m.move(func(s Step) (Step, bool) {
		return s - 1, s > StepUploadProduct && s <= StepReviewFinalPrompts
	})
}

// NavigateTo jumps backward to target. Targets at or after the current step
// are ignored. It reports whether the step changed.
func (m *Machine) NavigateTo(target Step) bool {
	return m.move(func(s Step) (Step, bool) {
		return target, target >= StepUploadProduct && target < s
	})
}

func (m *Machine) move(next func(Step) (Step, bool)) bool {
	m.mu.Lock()
	if m.state.loading {
		m.mu.Unlock()
		return false
	}
	target, ok := next(m.state.step)
	if !ok {
		m.mu.Unlock()
		return false
	}
	m.state.step = target
	ev := m.event(EventStepChanged)
	m.mu.Unlock()

	m.notify(ev)
	return true
}

// ResetAll restores the initial aggregate and discards any in-flight result.
func (m *Machine) ResetAll() {
	m.mu.Lock()
	m.state = initialState()
	m.epoch++
	ev := m.event(EventReset)
	m.mu.Unlock()

	m.log.Info("session %s reset", m.session)
	m.notify(ev)
}

// GenerateScriptAndAdvance encodes the product image, asks the generator for a
// script and moves to the script review. On failure the step is unchanged and
// the aggregate's Error holds MsgScriptFailed.
func (m *Machine) GenerateScriptAndAdvance(ctx context.Context) error {
	m.mu.Lock()
	if err := m.guard(StepUploadProduct); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.state.productImage == nil {
		m.state.err = MsgNoProductImage
		m.mu.Unlock()
		return &ValidationError{Message: MsgNoProductImage}
	}
	src := m.state.productImage
	epoch := m.begin()
	ev := m.event(EventGenerationStarted)
	m.mu.Unlock()

	ev.Operation = OpScript
	m.notify(ev)
	defer m.clearLoading(epoch)

	shots, err := m.callScript(ctx, src)
	return m.finishScript(epoch, shots, err)
}

func (m *Machine) callScript(ctx context.Context, src encoder.Source) (shots []genclient.ShotDetail, err error) {
	defer recoverInto(&err)

	payload, err := m.enc.Encode(ctx, src)
	if err != nil {
		return nil, err
	}
	return m.gen.GenerateScript(ctx, genclient.Image{MIMEType: payload.MIMEType, Data: payload.Data})
}

func (m *Machine) finishScript(epoch uint64, shots []genclient.ShotDetail, callErr error) error {
	if callErr == nil && len(shots) == 0 {
		callErr = &genclient.ScriptGenerationError{Err: fmt.Errorf("generator returned no shots")}
	}

	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		m.log.Debug("discarding script result for session %s after reset", m.session)
		return ErrStale
	}
	m.state.loading = false

	if callErr != nil {
		m.state.err = MsgScriptFailed
		ev := m.event(EventGenerationFailed)
		m.mu.Unlock()

		m.log.Error("script generation failed: %v", callErr)
		ev.Operation = OpScript
		ev.Message = MsgScriptFailed
		m.notify(ev)
		return callErr
	}

	if len(shots) > MaxShots {
		shots = shots[:MaxShots]
	}
	m.state.script = append([]genclient.ShotDetail(nil), shots...)
	m.reshapeSlots(len(m.state.script))
	m.state.finalPrompts = nil
	m.state.step = StepReviewScript
	ev := m.event(EventGenerationSucceeded)
	m.mu.Unlock()

	ev.Operation = OpScript
	m.notify(ev)
	return nil
}

// GenerateAnimationPromptsAndAdvance encodes every shot image, asks the
// generator for animation prompts and moves to the final review. On failure the
// step is unchanged and the aggregate's Error holds MsgPromptsFailed.
func (m *Machine) GenerateAnimationPromptsAndAdvance(ctx context.Context) error {
	m.mu.Lock()
	if err := m.guard(StepUploadShotImages); err != nil {
		m.mu.Unlock()
		return err
	}
	if !m.state.snapshot(m.epoch).AllImagesSet() {
		m.state.err = MsgMissingShotImages
		m.mu.Unlock()
		return &ValidationError{Message: MsgMissingShotImages}
	}
	srcs := append([]encoder.Source(nil), m.state.userImages...)
	script := append([]genclient.ShotDetail(nil), m.state.script...)
	epoch := m.begin()
	ev := m.event(EventGenerationStarted)
	m.mu.Unlock()

	ev.Operation = OpAnimation
	m.notify(ev)
	defer m.clearLoading(epoch)

	prompts, err := m.callAnimation(ctx, srcs, script)
	return m.finishAnimation(epoch, len(srcs), prompts, err)
}

func (m *Machine) callAnimation(ctx context.Context, srcs []encoder.Source, script []genclient.ShotDetail) (prompts []string, err error) {
	defer recoverInto(&err)

	payloads, err := m.enc.EncodeAll(ctx, srcs)
	if err != nil {
		return nil, err
	}
	images := make([]genclient.Image, len(payloads))
	for i, p := range payloads {
		images[i] = genclient.Image{MIMEType: p.MIMEType, Data: p.Data}
	}
	return m.gen.GenerateAnimationPrompts(ctx, images, script)
}

func (m *Machine) finishAnimation(epoch uint64, want int, prompts []string, callErr error) error {
	if callErr == nil && len(prompts) != want {
		callErr = &genclient.AnimationPromptError{Err: fmt.Errorf("got %d prompts for %d images", len(prompts), want)}
	}

	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		m.log.Debug("discarding animation result for session %s after reset", m.session)
		return ErrStale
	}
	m.state.loading = false

	if callErr != nil {
		m.state.err = MsgPromptsFailed
		ev := m.event(EventGenerationFailed)
		m.mu.Unlock()

		m.log.Error("animation prompt generation failed: %v", callErr)
		ev.Operation = OpAnimation
		ev.Message = MsgPromptsFailed
		m.notify(ev)
		return callErr
	}

	m.state.finalPrompts = append([]string(nil), prompts...)
	m.state.step = StepReviewFinalPrompts
	ev := m.event(EventGenerationSucceeded)
	m.mu.Unlock()

	ev.Operation = OpAnimation
	m.notify(ev)
	return nil
}

// guard checks the transition preconditions shared by both generations.
// Caller holds m.mu.
func (m *Machine) guard(from Step) error {
	if m.state.loading {
		return ErrBusy
	}
	if m.state.step != from {
		return ErrWrongStep
	}
	return nil
}

// begin marks the aggregate loading and returns the epoch the call belongs to.
// Caller holds m.mu.
func (m *Machine) begin() uint64 {
	m.state.err = ""
	m.state.loading = true
	return m.epoch
}

func (m *Machine) clearLoading(epoch uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch == m.epoch {
		m.state.loading = false
	}
}

// reshapeSlots replaces the shot image slots with n empty ones.
// Caller holds m.mu.
func (m *Machine) reshapeSlots(n int) {
	m.state.userImages = make([]encoder.Source, n)
}

// event builds an event stamped with the current step. Caller holds m.mu.
func (m *Machine) event(t EventType) Event {
	return Event{
		Type:    t,
		Session: m.session,
		Step:    m.state.step,
		Time:    m.now(),
	}
}

func (m *Machine) notify(ev Event) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(ev)
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("generation panicked: %v", r)
	}
}
