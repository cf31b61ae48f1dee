// Package wizard holds the setup wizard and the form components shared by the
// terminal UI: button bar, hint bar, image file picker.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/mark3labs/adreel/internal/template"
	"github.com/mark3labs/adreel/internal/tui/theme"
)

// ErrCancelled is returned when the user leaves the wizard without finishing.
var ErrCancelled = errors.New("wizard cancelled by user")

// SetupOptions seeds the setup wizard with the current configuration.
type SetupOptions struct {
	APIKey     string
	KeyFromEnv bool
	Model      string
	ExportDir  string
	Templates  template.Set
	// Lister fetches the models available to the key entered in the first step.
	Lister func(ctx context.Context, apiKey string) ([]string, error)
}

// SetupResult holds the values collected by the setup wizard.
type SetupResult struct {
	APIKey            string
	Model             string
	ExportDir         string
	ScriptTemplate    string // set only when edited
	AnimationTemplate string // set only when edited
}

var stepNames = []string{
	"Credentials",
	"Select Model",
	"Instruction Templates",
}

// SetupModel is the BubbleTea model for the setup wizard.
// It runs config → model selector → template editor.
type SetupModel struct {
	step      int
	cancelled bool
	done      bool
	opts      SetupOptions
	result    SetupResult
	width     int
	height    int

	configStep         *ConfigStep
	modelSelectorStep  *ModelSelectorStep
	templateEditorStep *TemplateEditorStep
}

// NewSetupModel creates the setup wizard model.
func NewSetupModel(opts SetupOptions) *SetupModel {
	return &SetupModel{opts: opts, width: 80, height: 24}
}

// RunSetup runs the setup wizard in its own program and returns the result.
func RunSetup(opts SetupOptions) (*SetupResult, error) {
	m := NewSetupModel(opts)
	finalModel, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	wizModel, ok := finalModel.(*SetupModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	if wizModel.cancelled || !wizModel.done {
		return nil, ErrCancelled
	}
	return wizModel.Result(), nil
}

// Result returns the collected values.
func (m *SetupModel) Result() *SetupResult {
	r := m.result
	return &r
}

// Init initializes the wizard model.
func (m *SetupModel) Init() tea.Cmd {
	m.step = 0
	m.initCurrentStep()
	return m.configStep.Init()
}

// Update handles messages for the wizard.
func (m *SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "esc":
			if m.step == 0 {
				m.cancelled = true
				return m, tea.Quit
			}
			m.step--
			m.initCurrentStep()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateCurrentStepSize()
		return m, nil

	case ConfigCompleteMsg:
		m.result.APIKey = m.configStep.APIKey()
		m.result.ExportDir = m.configStep.ExportDir()
		m.step++
		m.initCurrentStep()
		return m, m.modelSelectorStep.Init()

	case ModelSelectedMsg:
		m.result.Model = msg.ModelID
		m.step++
		m.initCurrentStep()
		return m, m.templateEditorStep.Init()

	case TemplatesDoneMsg:
		if m.templateEditorStep.Edited(template.KindScript) {
			m.result.ScriptTemplate = m.templateEditorStep.Content(template.KindScript)
		}
		if m.templateEditorStep.Edited(template.KindAnimation) {
			m.result.AnimationTemplate = m.templateEditorStep.Content(template.KindAnimation)
		}
		m.done = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	switch m.step {
	case 0:
		cmd = m.configStep.Update(msg)
	case 1:
		cmd = m.modelSelectorStep.Update(msg)
	case 2:
		cmd = m.templateEditorStep.Update(msg)
	}
	return m, cmd
}

// initCurrentStep creates the current step component on first visit.
func (m *SetupModel) initCurrentStep() {
	switch m.step {
	case 0:
		if m.configStep == nil {
			m.configStep = NewConfigStep(m.opts.APIKey, m.opts.ExportDir, m.opts.KeyFromEnv)
		}
	case 1:
		if m.modelSelectorStep == nil {
			var lister ModelLister
			if m.opts.Lister != nil {
				key := m.configStep.APIKey()
				lister = func(ctx context.Context) ([]string, error) {
					return m.opts.Lister(ctx, key)
				}
			}
			m.modelSelectorStep = NewModelSelectorStep(lister, m.opts.Model)
		}
	case 2:
		if m.templateEditorStep == nil {
			m.templateEditorStep = NewTemplateEditorStep(m.opts.Templates)
		}
	}
	m.updateCurrentStepSize()
}

func (m *SetupModel) contentSize() (int, int) {
	return max(m.width-10, 40), max(m.height-10, 10)
}

func (m *SetupModel) updateCurrentStepSize() {
	w, h := m.contentSize()
	switch m.step {
	case 0:
		if m.configStep != nil {
			m.configStep.SetSize(w, h)
		}
	case 1:
		if m.modelSelectorStep != nil {
			m.modelSelectorStep.SetSize(w, h)
		}
	case 2:
		if m.templateEditorStep != nil {
			m.templateEditorStep.SetSize(w, h)
		}
	}
}

// View renders the wizard UI.
func (m *SetupModel) View() tea.View {
	var view tea.View
	view.AltScreen = true

	var stepContent string
	switch m.step {
	case 0:
		if m.configStep != nil {
			stepContent = m.configStep.View()
		}
	case 1:
		if m.modelSelectorStep != nil {
			stepContent = m.modelSelectorStep.View()
		}
	case 2:
		if m.templateEditorStep != nil {
			stepContent = m.templateEditorStep.View()
		}
	}

	content := m.renderModal(stepContent)

	canvas := uv.NewScreenBuffer(m.width, m.height)
	uv.NewStyledString(content).Draw(canvas, uv.Rectangle{
		Min: uv.Position{X: 0, Y: 0},
		Max: uv.Position{X: m.width, Y: m.height},
	})
	view.Content = lipgloss.NewLayer(canvas.Render())
	return view
}

// renderModal wraps the step content in a centered modal with a title.
func (m *SetupModel) renderModal(stepContent string) string {
	s := theme.Current().S()
	title := fmt.Sprintf("adreel setup - Step %d of %d: %s", m.step+1, len(stepNames), stepNames[m.step])

	content := strings.Join([]string{
		s.HeaderTitle.Render(title),
		"",
		stepContent,
	}, "\n")

	modalWidth := min(max(m.width-10, 60), 100)
	modal := s.Modal.Width(modalWidth).Render(content)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}
