// Package adwizard is the terminal UI for the four-step ad concept flow:
// product image, script review, shot images, animation prompts.
package adwizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/mark3labs/adreel/internal/events"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/logger"
	"github.com/mark3labs/adreel/internal/preview"
	"github.com/mark3labs/adreel/internal/tui/theme"
	"github.com/mark3labs/adreel/internal/tui/wizard"
	"github.com/mark3labs/adreel/internal/workflow"
)

// copiedFor is how long the "Copied!" acknowledgment stays visible.
const copiedFor = 2 * time.Second

// Options configures the wizard.
type Options struct {
	Machine *workflow.Machine
	// ExportDir receives saved concepts.
	ExportDir string
	// WorkDir is where the hooks file is looked up.
	WorkDir string
	// PickerDir is the first directory shown by the file picker.
	PickerDir string
	// Clipboard writes to the system clipboard. Defaults to atotto/clipboard.
	Clipboard func(string) error
	Now       func() time.Time
}

// Model is the BubbleTea model of the ad wizard.
type Model struct {
	opts    Options
	machine *workflow.Machine
	snap    workflow.Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
	log     *logger.Logger

	width    int
	height   int
	spinner  spinner.Model
	viewport viewport.Model
	buttons  *wizard.ButtonBar
	actions  []action
	markdown *markdownCache
	cards    []cardSpan

	registry *preview.Registry
	previews *preview.Slots

	picker       *wizard.FilePicker
	pickerTarget int
	pickerDir    string

	cursor     int
	showRaw    bool
	showDiff   bool
	prevScript []genclient.ShotDetail
	pending    workflow.Operation

	copied  int
	copySeq int

	exportPath string
	status     string

	indicator []span
}

// span is the horizontal extent of one step in the indicator row.
type span struct {
	start, end int
	step       workflow.Step
}

// cardSpan is the line range of one shot card in the body.
type cardSpan struct {
	start, end int
}

// New creates the wizard model. ctx bounds generation calls.
func New(ctx context.Context, opts Options) *Model {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "adreel-exports"
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}

	ctx, cancel := context.WithCancel(ctx)
	t := theme.Current()

	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(10))
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	registry := preview.NewRegistry()
	m := &Model{
		opts:    opts,
		machine: opts.Machine,
		ctx:     ctx,
		cancel:  cancel,
		log:     logger.For("tui"),
		width:   80,
		height:  24,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(t.Primary))),
		),
		viewport:     vp,
		buttons:      wizard.NewButtonBar(nil),
		markdown:     newMarkdownCache(),
		registry:     registry,
		previews:     preview.NewSlots(registry),
		pickerTarget: workflow.ProductSlot,
		pickerDir:    opts.PickerDir,
		copied:       -1,
	}
	m.refresh()
	return m
}

// Run starts the wizard in its own program and blocks until the user quits.
// When bus is non-nil the view follows the machine's events live.
func Run(ctx context.Context, opts Options, bus *events.Bus) error {
	if opts.Machine == nil {
		return errors.New("adwizard: machine is required")
	}
	m := New(ctx, opts)
	defer m.Close()

	p := tea.NewProgram(m)
	if bus != nil {
		sub, err := bus.Subscribe(opts.Machine.Session(), func(ev workflow.Event) {
			p.Send(eventMsg{event: ev})
		})
		if err != nil {
			m.log.Warn("live updates disabled: %v", err)
		} else {
			defer func() { _ = sub.Unsubscribe() }()
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	return nil
}

// Close cancels in-flight generation and releases previews.
func (m *Model) Close() {
	m.cancel()
	m.previews.Close()
}

// Snapshot returns the state the view was last rendered from.
func (m *Model) Snapshot() workflow.Snapshot {
	return m.snap
}

// Init initializes the wizard model.
func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) loading() bool {
	return m.snap.Loading || m.pending != ""
}

// refresh reloads the snapshot and rebuilds everything derived from it.
func (m *Model) refresh() {
	m.snap = m.machine.Snapshot()

	if n := m.itemCount(); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}

	if _, err := m.previews.Sync(workflow.ProductSlot, m.snap.ProductImage); err != nil {
		m.log.Warn("product preview: %v", err)
	}
	for i, src := range m.snap.UserImages {
		if _, err := m.previews.Sync(i, src); err != nil {
			m.log.Warn("shot %d preview: %v", i+1, err)
		}
	}
	m.previews.Truncate(len(m.snap.UserImages))

	m.layout()
}

// itemCount is the number of selectable cards on the current step.
func (m *Model) itemCount() int {
	switch m.snap.Step {
	case workflow.StepReviewScript, workflow.StepUploadShotImages:
		return len(m.snap.Script)
	case workflow.StepReviewFinalPrompts:
		return len(m.snap.FinalPrompts)
	}
	return 0
}

// Update handles messages for the wizard.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.MouseClickMsg:
		m.handleClick(msg)
		return m, nil

	case tea.MouseWheelMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		if m.loading() {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case eventMsg:
		m.refresh()
		return m, nil

	case generationDoneMsg:
		m.finishGeneration(msg)
		return m, nil

	case copiedExpiredMsg:
		if msg.seq == m.copySeq {
			m.copied = -1
			m.layout()
		}
		return m, nil

	case exportSavedMsg:
		m.finishExport(msg)
		return m, nil

	case editorClosedMsg:
		if msg.err != nil {
			m.status = "Editor exited with an error: " + msg.err.Error()
		}
		m.layout()
		return m, nil

	case wizard.FileSelectedMsg:
		m.finishPick(msg.Path)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.picker != nil {
		if key == "esc" {
			m.picker = nil
			m.layout()
			return m, nil
		}
		return m, m.picker.Update(msg)
	}

	if key == "q" {
		return m, tea.Quit
	}

	// Everything else waits for the generation call.
	if m.loading() {
		return m, nil
	}

	switch key {
	case "tab":
		m.buttons.FocusNext()
		return m, nil
	case "shift+tab":
		m.buttons.FocusPrev()
		return m, nil
	case "esc":
		if m.buttons.Focused() >= 0 {
			m.buttons.Blur()
			return m, nil
		}
		m.back()
		return m, nil
	case "1", "2", "3", "4":
		m.navigate(workflow.Step(key[0] - '0'))
		return m, nil
	case "enter":
		if i := m.buttons.Focused(); i >= 0 && i < len(m.actions) {
			return m, m.perform(m.actions[i])
		}
		return m, m.perform(m.defaultAction())
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.layout()
		}
		return m, nil
	case "down", "j":
		if m.cursor < m.itemCount()-1 {
			m.cursor++
			m.layout()
		}
		return m, nil
	case "pgup", "pgdown", "home", "end":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if a, ok := m.keyAction(key); ok {
		return m, m.perform(a)
	}
	return m, nil
}

func (m *Model) handleClick(msg tea.MouseClickMsg) {
	mouse := msg.Mouse()
	if mouse.Button != tea.MouseLeft || m.picker != nil || mouse.Y != indicatorRow {
		return
	}
	for _, sp := range m.indicator {
		if mouse.X >= sp.start && mouse.X < sp.end {
			m.navigate(sp.step)
			return
		}
	}
}

// navigate jumps backward to step. Forward targets are ignored.
func (m *Model) navigate(step workflow.Step) {
	if m.machine.NavigateTo(step) {
		m.afterMove()
	}
}

func (m *Model) back() {
	if m.machine.Back() {
		m.afterMove()
	}
}

func (m *Model) afterMove() {
	m.cursor = 0
	m.showRaw = false
	m.showDiff = false
	m.buttons.Blur()
	m.viewport.GotoTop()
	m.refresh()
}
