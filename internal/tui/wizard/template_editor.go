package wizard

import (
	"os"
	"regexp"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/editor"
	"github.com/mark3labs/adreel/internal/template"
	"github.com/mark3labs/adreel/internal/tui/theme"
)

var templateVarRegex = regexp.MustCompile(`\{\{[^}]+\}\}`)

// TemplateEditorStep shows the instruction templates and opens them in $EDITOR.
type TemplateEditorStep struct {
	viewport viewport.Model
	contents map[template.Kind]string
	edited   map[template.Kind]bool
	kind     template.Kind
	width    int
	height   int
	tmpFile  string
}

// NewTemplateEditorStep creates the step from the given template set.
func NewTemplateEditorStep(set template.Set) *TemplateEditorStep {
	vp := viewport.New(
		viewport.WithWidth(60),
		viewport.WithHeight(10),
	)
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	t := &TemplateEditorStep{
		viewport: vp,
		contents: map[template.Kind]string{
			template.KindScript:    set.Script,
			template.KindAnimation: set.Animation,
		},
		edited: map[template.Kind]bool{},
		kind:   template.KindScript,
		width:  60,
		height: 20,
	}
	t.refresh()
	return t
}

// highlightTemplate colors {{variables}} in template content.
func highlightTemplate(content string) string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Current().Primary)).
		Bold(true)
	return templateVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		return style.Render(match)
	})
}

func (t *TemplateEditorStep) refresh() {
	t.viewport.SetContent(highlightTemplate(t.contents[t.kind]))
	t.viewport.GotoTop()
}

// Init initializes the template editor.
func (t *TemplateEditorStep) Init() tea.Cmd {
	return nil
}

// SetSize updates the dimensions for the template editor.
func (t *TemplateEditorStep) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.viewport.SetWidth(width)
	// Tab header and hint bar.
	t.viewport.SetHeight(max(height-3, 5))
}

// Update handles messages for the template editor step.
func (t *TemplateEditorStep) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "e":
			return t.openEditor()
		case "t", "tab":
			if t.kind == template.KindScript {
				t.kind = template.KindAnimation
			} else {
				t.kind = template.KindScript
			}
			t.refresh()
			return nil
		case "enter":
			return func() tea.Msg { return TemplatesDoneMsg{} }
		}
	case TemplateEditedMsg:
		if strings.TrimSpace(msg.Content) != "" && msg.Content != t.contents[msg.Kind] {
			t.contents[msg.Kind] = msg.Content
			t.edited[msg.Kind] = true
		}
		t.kind = msg.Kind
		t.refresh()
		if t.tmpFile != "" {
			_ = os.Remove(t.tmpFile)
			t.tmpFile = ""
		}
		return nil
	}

	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return cmd
}

// openEditor launches $EDITOR on a temp copy of the visible template.
func (t *TemplateEditorStep) openEditor() tea.Cmd {
	kind := t.kind
	tmpfile, err := os.CreateTemp("", "adreel_template_*.md")
	if err != nil {
		return nil
	}
	if _, err := tmpfile.WriteString(t.contents[kind]); err != nil {
		_ = tmpfile.Close()
		_ = os.Remove(tmpfile.Name())
		return nil
	}
	_ = tmpfile.Close()
	t.tmpFile = tmpfile.Name()

	cmd, err := editor.Command("adreel", tmpfile.Name())
	if err != nil {
		_ = os.Remove(tmpfile.Name())
		t.tmpFile = ""
		return nil
	}

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		if err != nil {
			return nil
		}
		content, err := os.ReadFile(tmpfile.Name())
		if err != nil {
			return nil
		}
		return TemplateEditedMsg{Kind: kind, Content: string(content)}
	})
}

// View renders the template editor step.
func (t *TemplateEditorStep) View() string {
	s := theme.Current().S()
	var b strings.Builder

	for _, k := range []template.Kind{template.KindScript, template.KindAnimation} {
		label := string(k)
		if t.edited[k] {
			label += " *"
		}
		if k == t.kind {
			b.WriteString(s.StepActive.Render(label))
		} else {
			b.WriteString(s.StepPending.Render(label))
		}
		b.WriteString(" ")
	}
	b.WriteString("\n")

	b.WriteString(t.viewport.View())
	b.WriteString("\n")

	if os.Getenv("EDITOR") != "" {
		b.WriteString(RenderHintBar("↑↓", "scroll", "t", "switch", "e", "edit", "enter", "finish", "esc", "back"))
	} else {
		b.WriteString(RenderHintBar("↑↓", "scroll", "t", "switch", "enter", "finish", "esc", "back"))
	}
	return b.String()
}

// Content returns the current content of the given template.
func (t *TemplateEditorStep) Content(kind template.Kind) string {
	return t.contents[kind]
}

// Edited reports whether the given template was changed in the editor.
func (t *TemplateEditorStep) Edited(kind template.Kind) bool {
	return t.edited[kind]
}

// TemplateEditedMsg is sent when the external editor returns with new content.
type TemplateEditedMsg struct {
	Kind    template.Kind
	Content string
}

// TemplatesDoneMsg is sent when the user finishes reviewing templates.
type TemplatesDoneMsg struct{}
