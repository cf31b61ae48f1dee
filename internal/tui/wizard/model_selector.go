package wizard

import (
	"context"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mark3labs/adreel/internal/tui/theme"
)

// KnownModels is offered when the model list cannot be fetched.
var KnownModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash",
}

// ModelLister returns the model IDs available to the configured key.
type ModelLister func(ctx context.Context) ([]string, error)

const listTimeout = 15 * time.Second

// ModelSelectorStep lets the user pick the Gemini model.
type ModelSelectorStep struct {
	lister      ModelLister
	current     string
	allModels   []string
	filtered    []string
	selectedIdx int
	offset      int
	searchInput textinput.Model
	loading     bool
	error       string
	spinner     spinner.Model
	width       int
	height      int
}

// NewModelSelectorStep creates a model selector. A nil lister uses KnownModels.
func NewModelSelectorStep(lister ModelLister, current string) *ModelSelectorStep {
	input := textinput.New()
	input.Placeholder = "Type to filter models..."
	input.Prompt = "Search: "
	input.SetStyles(inputStyles())
	input.SetWidth(50)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current().Primary))

	return &ModelSelectorStep{
		lister:      lister,
		current:     current,
		searchInput: input,
		spinner:     s,
		loading:     true,
		width:       60,
		height:      10,
	}
}

// Init starts fetching models.
func (m *ModelSelectorStep) Init() tea.Cmd {
	return tea.Batch(
		m.fetchModels(),
		m.spinner.Tick,
		m.searchInput.Focus(),
	)
}

func (m *ModelSelectorStep) fetchModels() tea.Cmd {
	lister := m.lister
	return func() tea.Msg {
		if lister == nil {
			return ModelsLoadedMsg{models: KnownModels}
		}
		ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
		defer cancel()
		models, err := lister(ctx)
		if err != nil {
			return ModelsErrorMsg{err: err}
		}
		if len(models) == 0 {
			models = KnownModels
		}
		return ModelsLoadedMsg{models: models}
	}
}

// filterModels filters allModels by case-insensitive substring match.
func (m *ModelSelectorStep) filterModels() {
	query := strings.ToLower(strings.TrimSpace(m.searchInput.Value()))
	if query == "" {
		m.filtered = m.allModels
	} else {
		m.filtered = make([]string, 0)
		for _, model := range m.allModels {
			if strings.Contains(strings.ToLower(model), query) {
				m.filtered = append(m.filtered, model)
			}
		}
	}
	if m.selectedIdx >= len(m.filtered) {
		m.selectedIdx = 0
	}
}

// SetSize updates the dimensions for the model selector.
func (m *ModelSelectorStep) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.searchInput.SetWidth(width - 10)
}

// Update handles messages for the model selector step.
func (m *ModelSelectorStep) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ModelsLoadedMsg:
		m.loading = false
		m.allModels = msg.models
		m.filterModels()
		for i, id := range m.filtered {
			if id == m.current {
				m.selectedIdx = i
			}
		}
		return nil

	case ModelsErrorMsg:
		m.loading = false
		m.error = msg.err.Error()
		m.allModels = KnownModels
		m.filterModels()
		return nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return cmd
		}
		return nil
	}

	if m.loading {
		return nil
	}

	if keyMsg, ok := msg.(tea.KeyPressMsg); ok {
		switch keyMsg.String() {
		case "ctrl+r":
			m.loading = true
			m.error = ""
			return tea.Batch(m.fetchModels(), m.spinner.Tick)
		case "up":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
			return nil
		case "down":
			if m.selectedIdx < len(m.filtered)-1 {
				m.selectedIdx++
			}
			return nil
		case "enter":
			id := m.SelectedModel()
			if id == "" {
				// Unlisted model IDs are accepted as typed.
				id = strings.TrimSpace(m.searchInput.Value())
			}
			if id == "" {
				return nil
			}
			return func() tea.Msg { return ModelSelectedMsg{ModelID: id} }
		}
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.filterModels()
	return cmd
}

// View renders the model selector step.
func (m *ModelSelectorStep) View() string {
	s := theme.Current().S()
	var b strings.Builder

	if m.loading {
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading models...\n")
		return b.String()
	}

	if m.error != "" {
		b.WriteString(s.Muted.Render("Could not fetch models (" + m.error + "), showing defaults."))
		b.WriteString("\n\n")
	}

	b.WriteString(m.searchInput.View())
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(s.Subtitle.Render("No listed model matches. Press enter to use it as typed."))
		b.WriteString("\n\n")
		b.WriteString(RenderHintBar("type", "filter", "enter", "use typed", "esc", "back"))
		return b.String()
	}

	visible := max(m.height-6, 3)
	if m.selectedIdx < m.offset {
		m.offset = m.selectedIdx
	}
	if m.selectedIdx >= m.offset+visible {
		m.offset = m.selectedIdx - visible + 1
	}
	end := min(m.offset+visible, len(m.filtered))
	for i := m.offset; i < end; i++ {
		line := m.filtered[i]
		if line == m.current {
			line += s.Muted.Render(" (current)")
		}
		if i == m.selectedIdx {
			b.WriteString(s.ListSelected.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(RenderHintBar(
		"type", "filter",
		"↑↓", "navigate",
		"enter", "select",
		"ctrl+r", "reload",
		"esc", "back",
	))
	return b.String()
}

// SelectedModel returns the highlighted model ID, or "" when the filter matches nothing.
func (m *ModelSelectorStep) SelectedModel() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.filtered) {
		return m.filtered[m.selectedIdx]
	}
	return ""
}

// ModelsLoadedMsg is sent when models are successfully fetched.
type ModelsLoadedMsg struct {
	models []string
}

// ModelsErrorMsg is sent when model fetching fails.
type ModelsErrorMsg struct {
	err error
}

// ModelSelectedMsg is sent when a model is selected.
type ModelSelectedMsg struct {
	ModelID string
}
