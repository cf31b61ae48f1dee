package wizard

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/mark3labs/adreel/internal/tui/theme"
)

const (
	focusAPIKey = iota
	focusExportDir
	configInputs
)

// ConfigStep collects the Gemini API key and the export directory.
type ConfigStep struct {
	apiKeyInput    textinput.Model
	exportDirInput textinput.Model
	focusIndex     int
	apiKeyError    string
	exportDirError string
	keyFromEnv     bool // an API key is already available from the environment
	width          int
	height         int
}

func inputStyles() textinput.Styles {
	t := theme.Current()
	return textinput.Styles{
		Focused: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgBase)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgSubtle)),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.Secondary)),
		},
		Blurred: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgSubtle)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgSubtle)),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color(t.FgMuted)),
		},
		Cursor: textinput.CursorStyle{
			Color: lipgloss.Color(t.Primary),
			Shape: tea.CursorBar,
			Blink: true,
		},
	}
}

// NewConfigStep creates a config step prefilled with the current values.
func NewConfigStep(apiKey, exportDir string, keyFromEnv bool) *ConfigStep {
	styles := inputStyles()

	apiKeyInput := textinput.New()
	apiKeyInput.Placeholder = "Paste your Gemini API key..."
	if keyFromEnv {
		apiKeyInput.Placeholder = "Using the key from the environment"
	}
	apiKeyInput.Prompt = ""
	apiKeyInput.EchoMode = textinput.EchoPassword
	apiKeyInput.SetStyles(styles)
	apiKeyInput.SetWidth(50)
	apiKeyInput.SetValue(apiKey)

	exportDirInput := textinput.New()
	exportDirInput.Placeholder = "adreel-exports"
	exportDirInput.Prompt = ""
	exportDirInput.SetStyles(styles)
	exportDirInput.SetWidth(50)
	exportDirInput.SetValue(exportDir)

	return &ConfigStep{
		apiKeyInput:    apiKeyInput,
		exportDirInput: exportDirInput,
		keyFromEnv:     keyFromEnv,
		width:          60,
		height:         10,
	}
}

// Init focuses the API key input.
func (c *ConfigStep) Init() tea.Cmd {
	c.focusIndex = focusAPIKey
	c.exportDirInput.Blur()
	return c.apiKeyInput.Focus()
}

// SetSize updates the dimensions for the config step.
func (c *ConfigStep) SetSize(width, height int) {
	c.width = width
	c.height = height
	c.apiKeyInput.SetWidth(width - 10)
	c.exportDirInput.SetWidth(width - 10)
}

// Update handles messages for the config step.
func (c *ConfigStep) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyPressMsg); ok {
		switch keyMsg.String() {
		case "tab", "down":
			return c.setFocus((c.focusIndex + 1) % configInputs)
		case "shift+tab", "up":
			return c.setFocus((c.focusIndex - 1 + configInputs) % configInputs)
		case "enter":
			if c.validate() {
				return func() tea.Msg { return ConfigCompleteMsg{} }
			}
			return nil
		}
	}

	var cmd tea.Cmd
	if c.focusIndex == focusAPIKey {
		c.apiKeyInput, cmd = c.apiKeyInput.Update(msg)
		if _, ok := msg.(tea.KeyPressMsg); ok {
			c.apiKeyError = ""
		}
	} else {
		c.exportDirInput, cmd = c.exportDirInput.Update(msg)
		if _, ok := msg.(tea.KeyPressMsg); ok {
			c.exportDirError = ""
		}
	}
	return cmd
}

func (c *ConfigStep) setFocus(idx int) tea.Cmd {
	c.focusIndex = idx
	if idx == focusAPIKey {
		c.exportDirInput.Blur()
		return c.apiKeyInput.Focus()
	}
	c.apiKeyInput.Blur()
	return c.exportDirInput.Focus()
}

// View renders the config step.
func (c *ConfigStep) View() string {
	s := theme.Current().S()
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current().Error))
	var b strings.Builder

	b.WriteString(s.Subtitle.Render("Gemini API Key"))
	b.WriteString("\n")
	b.WriteString(c.apiKeyInput.View())
	b.WriteString("\n")
	if c.apiKeyError != "" {
		b.WriteString(errorStyle.Render("✗ " + c.apiKeyError))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(s.Subtitle.Render("Export Directory"))
	b.WriteString("\n")
	b.WriteString(c.exportDirInput.View())
	b.WriteString("\n")
	if c.exportDirError != "" {
		b.WriteString(errorStyle.Render("✗ " + c.exportDirError))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(RenderHintBar(
		"tab", "next field",
		"enter", "continue",
		"esc", "cancel",
	))
	return b.String()
}

func (c *ConfigStep) validate() bool {
	valid := true

	key := strings.TrimSpace(c.apiKeyInput.Value())
	switch {
	case key == "" && !c.keyFromEnv:
		c.apiKeyError = "API key cannot be empty"
		valid = false
	case strings.ContainsAny(key, " \t"):
		c.apiKeyError = "API key must not contain spaces"
		valid = false
	}

	if dir := strings.TrimSpace(c.exportDirInput.Value()); strings.ContainsRune(dir, '\x00') {
		c.exportDirError = "Invalid directory"
		valid = false
	}
	return valid
}

// APIKey returns the entered key, which is empty when the environment key is kept.
func (c *ConfigStep) APIKey() string {
	return strings.TrimSpace(c.apiKeyInput.Value())
}

// ExportDir returns the entered export directory or the default.
func (c *ConfigStep) ExportDir() string {
	if dir := strings.TrimSpace(c.exportDirInput.Value()); dir != "" {
		return dir
	}
	return c.exportDirInput.Placeholder
}

// ConfigCompleteMsg is sent when the config step is complete and valid.
type ConfigCompleteMsg struct{}
