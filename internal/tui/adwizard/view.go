package adwizard

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/mark3labs/adreel/internal/tui/theme"
	"github.com/mark3labs/adreel/internal/tui/wizard"
	"github.com/mark3labs/adreel/internal/workflow"
)

// indicatorRow is the screen row of the step indicator.
const indicatorRow = 1

// Button labels.
const (
	labelChooseImage    = "Choose Image"
	labelGenerateScript = "Generate Script & Prompts"
	labelBack           = "← Back"
	labelImagesReady    = "I've created the images, what's next?"
	labelGenerateVeo    = "Generate Veo Prompts"
	labelSave           = "Save Export"
	labelNewProject     = "Start a New Project"
)

// layout rebuilds buttons and the body viewport for the current state.
func (m *Model) layout() {
	m.buildButtons()
	m.buttons.SetWidth(m.width)

	// Header (2) + blank, blank + buttons + hints + status.
	chrome := 3 + 4
	if m.snap.Error != "" {
		chrome += 3
	}
	bodyHeight := max(m.height-chrome, 3)

	if m.picker != nil {
		m.picker.SetSize(m.width-2, bodyHeight)
	}

	m.viewport.SetWidth(m.width)
	m.viewport.SetHeight(bodyHeight)
	m.viewport.SetContent(m.renderBody())
	m.followCursor()
}

// followCursor scrolls the viewport so the selected card is visible.
func (m *Model) followCursor() {
	if m.cursor >= len(m.cards) {
		return
	}
	c := m.cards[m.cursor]
	h := m.viewport.Height()
	switch {
	case c.start < m.viewport.YOffset():
		m.viewport.SetYOffset(c.start)
	case c.end > m.viewport.YOffset()+h:
		m.viewport.SetYOffset(max(c.end-h, 0))
	}
}

func (m *Model) buildButtons() {
	focused := m.buttons.Focused()
	busy := m.loading()
	state := func(enabled bool) wizard.ButtonState {
		if !enabled || busy {
			return wizard.ButtonDisabled
		}
		return wizard.ButtonNormal
	}

	var buttons []wizard.Button
	switch m.snap.Step {
	case workflow.StepUploadProduct:
		buttons = []wizard.Button{
			{Label: labelChooseImage, State: state(true)},
			{Label: labelGenerateScript, State: state(m.snap.ProductImage != nil)},
		}
		m.actions = []action{actPickProduct, actGenerateScript}
	case workflow.StepReviewScript:
		buttons = []wizard.Button{
			{Label: labelBack, State: state(true)},
			{Label: labelImagesReady, State: state(true)},
		}
		m.actions = []action{actBack, actForward}
	case workflow.StepUploadShotImages:
		buttons = []wizard.Button{
			{Label: labelBack, State: state(true)},
			{Label: labelGenerateVeo, State: state(m.snap.AllImagesSet())},
		}
		m.actions = []action{actBack, actGeneratePrompts}
	case workflow.StepReviewFinalPrompts:
		buttons = []wizard.Button{
			{Label: labelBack, State: state(true)},
			{Label: labelSave, State: state(true)},
			{Label: labelNewProject, State: state(true)},
		}
		m.actions = []action{actBack, actSave, actNewProject}
	}

	if focused >= 0 && focused < len(buttons) && buttons[focused].State != wizard.ButtonDisabled {
		buttons[focused].State = wizard.ButtonFocused
	}
	m.buttons.SetButtons(buttons)
}

// View renders the wizard UI.
func (m *Model) View() tea.View {
	var view tea.View
	view.AltScreen = true
	view.MouseMode = tea.MouseModeCellMotion

	canvas := uv.NewScreenBuffer(m.width, m.height)
	uv.NewStyledString(m.render()).Draw(canvas, uv.Rectangle{
		Min: uv.Position{X: 0, Y: 0},
		Max: uv.Position{X: m.width, Y: m.height},
	})
	view.Content = lipgloss.NewLayer(canvas.Render())
	return view
}

func (m *Model) render() string {
	t := theme.Current()
	s := t.S()

	sections := []string{
		theme.ApplyGradient("adreel", t.Primary, t.Tertiary) + "  " + s.Subtitle.Render("video ad storyboards from a product photo"),
		m.renderIndicator(),
		"",
	}

	if m.snap.Error != "" {
		sections = append(sections, s.ErrorBanner.Width(max(m.width-2, 20)).Render("⚠ "+m.snap.Error))
	}

	switch {
	case m.picker != nil:
		target := "product image"
		if m.pickerTarget != workflow.ProductSlot {
			target = fmt.Sprintf("image for shot %d", m.pickerTarget+1)
		}
		sections = append(sections, s.Label.Render("Choose the "+target), m.picker.View())
	case m.loading():
		sections = append(sections, m.spinner.View()+" "+m.loadingText())
	default:
		sections = append(sections, m.viewport.View())
	}

	sections = append(sections, "", m.buttons.Render(), m.renderHints())
	if m.status != "" {
		sections = append(sections, s.Muted.Render(m.status))
	}
	return strings.Join(sections, "\n")
}

func (m *Model) loadingText() string {
	op := m.pending
	if op == "" && m.snap.Step == workflow.StepUploadShotImages {
		op = workflow.OpAnimation
	}
	if op == workflow.OpAnimation {
		return "Generating Veo prompts for your shots..."
	}
	return "Analyzing your product and writing the script..."
}

// renderIndicator draws the step indicator and records each step's columns.
func (m *Model) renderIndicator() string {
	s := theme.Current().S()
	m.indicator = m.indicator[:0]

	var b strings.Builder
	x := 0
	for i, step := range workflow.Steps {
		if i > 0 {
			sep := s.StepConnector.Render(" ─ ")
			b.WriteString(sep)
			x += lipgloss.Width(sep)
		}

		label := fmt.Sprintf("%d %s", int(step), step.Title())
		var seg string
		switch {
		case step == m.snap.Step:
			seg = s.StepActive.Render(label)
		case step < m.snap.Step:
			seg = s.StepDone.Render("✓ " + label)
		default:
			seg = s.StepPending.Render(label)
		}

		w := lipgloss.Width(seg)
		m.indicator = append(m.indicator, span{start: x, end: x + w, step: step})
		x += w
		b.WriteString(seg)
	}
	return b.String()
}

func (m *Model) renderHints() string {
	if m.picker != nil {
		return ""
	}
	if m.loading() {
		return wizard.RenderHintBar("q", "quit")
	}

	nav := []string{"tab", "buttons", "1-4", "jump back"}
	switch m.snap.Step {
	case workflow.StepUploadProduct:
		return wizard.RenderHintBar(append([]string{"o", "choose image", "x", "clear", "g", "generate"}, nav...)...)
	case workflow.StepReviewScript:
		pairs := []string{"↑↓", "select", "c", "copy prompt", "r", "raw json"}
		if m.prevScript != nil {
			pairs = append(pairs, "d", "diff")
		}
		return wizard.RenderHintBar(append(append(pairs, "n", "next", "b", "back"), nav...)...)
	case workflow.StepUploadShotImages:
		return wizard.RenderHintBar(append([]string{"↑↓", "select", "o", "choose", "x", "clear", "g", "generate", "b", "back"}, nav...)...)
	case workflow.StepReviewFinalPrompts:
		pairs := []string{"↑↓", "select", "c", "copy", "s", "save"}
		if m.exportPath != "" {
			pairs = append(pairs, "e", "edit")
		}
		return wizard.RenderHintBar(append(append(pairs, "n", "new project", "b", "back"), nav...)...)
	}
	return ""
}

// renderBody renders the scrollable content of the current step and records
// the line span of each card.
func (m *Model) renderBody() string {
	m.cards = m.cards[:0]
	switch m.snap.Step {
	case workflow.StepUploadProduct:
		return m.renderProductStep()
	case workflow.StepReviewScript:
		return m.renderScriptStep()
	case workflow.StepUploadShotImages:
		return m.renderImagesStep()
	case workflow.StepReviewFinalPrompts:
		return m.renderPromptsStep()
	}
	return ""
}

func (m *Model) cardWidth() int {
	return max(m.width-4, 20)
}

// joinCards stacks intro and cards and records card spans.
func (m *Model) joinCards(intro string, cards []string) string {
	var b strings.Builder
	line := 0
	if intro != "" {
		b.WriteString(intro)
		b.WriteString("\n\n")
		line += lipgloss.Height(intro) + 1
	}
	for i, c := range cards {
		if i > 0 {
			b.WriteString("\n")
		}
		h := lipgloss.Height(c)
		m.cards = append(m.cards, cardSpan{start: line, end: line + h})
		b.WriteString(c)
		line += h
	}
	return b.String()
}

func (m *Model) card(i int, content string) string {
	s := theme.Current().S()
	style := s.Card
	if i == m.cursor {
		style = s.CardFocused
	}
	return style.Width(m.cardWidth()).Render(content)
}

func (m *Model) copyState(i int, hint string) string {
	s := theme.Current().S()
	if i == m.copied {
		return s.Success.Render("✓ Copied!")
	}
	if i == m.cursor {
		return s.Muted.Render(hint)
	}
	return ""
}

func (m *Model) renderProductStep() string {
	s := theme.Current().S()
	intro := s.Subtitle.Render("Upload a clear photo of your product. adreel writes a short video script around it, with an image prompt for every shot.")

	var content string
	if h := m.previews.Get(workflow.ProductSlot); h != nil {
		content = s.Label.Render("Product image") + "\n" + h.Summary()
	} else {
		content = s.Label.Render("Product image") + "\n" + s.Muted.Render("No image selected. Press o to choose one.")
	}
	return intro + "\n\n" + s.CardFocused.Width(m.cardWidth()).Render(content)
}

func (m *Model) renderScriptStep() string {
	s := theme.Current().S()

	if m.showDiff && m.prevScript != nil {
		return s.Label.Render("Changes since the previous script") + "\n\n" + colorDiff(scriptDiff(m.prevScript, m.snap.Script))
	}
	if m.showRaw {
		return highlightJSON(scriptJSON(m.snap.Script))
	}

	intro := s.Subtitle.Render("Create an image for each shot from its prompt with your favourite image tool, then continue.")
	cards := make([]string, len(m.snap.Script))
	inner := m.cardWidth() - 4
	for i, shot := range m.snap.Script {
		md := fmt.Sprintf("### %s\n\n%s\n\n**Image prompt**\n\n> %s", shot.ShotNumber, shot.ShotDescription, shot.ImagePrompt)
		content := m.markdown.Render(md, inner)
		if st := m.copyState(i, "c copy image prompt"); st != "" {
			content += "\n" + st
		}
		cards[i] = m.card(i, content)
	}
	return m.joinCards(intro, cards)
}

func (m *Model) renderImagesStep() string {
	s := theme.Current().S()
	intro := s.Subtitle.Render(fmt.Sprintf("Upload the image you created for each shot. %d of %d ready.",
		m.snap.FilledSlots(), len(m.snap.UserImages)))

	cards := make([]string, len(m.snap.Script))
	for i, shot := range m.snap.Script {
		title := s.Label.Render(shot.ShotNumber) + "  " + s.Subtitle.Render(shot.ShotDescription)
		var slot string
		if h := m.previews.Get(i); h != nil {
			slot = s.Success.Render("✓ ") + h.Summary()
		} else {
			slot = s.Muted.Render("Empty slot. Press o to choose an image.")
		}
		cards[i] = m.card(i, title+"\n"+slot)
	}
	return m.joinCards(intro, cards)
}

func (m *Model) renderPromptsStep() string {
	s := theme.Current().S()
	intro := s.Subtitle.Render("Paste each prompt into Veo together with its image to animate the shot.")
	if m.exportPath != "" {
		intro += "\n" + s.Muted.Render("Saved: "+m.exportPath)
	}

	inner := m.cardWidth() - 4
	cards := make([]string, len(m.snap.FinalPrompts))
	for i, prompt := range m.snap.FinalPrompts {
		title := fmt.Sprintf("Shot %d", i+1)
		if i < len(m.snap.Script) {
			title = m.snap.Script[i].ShotNumber
		}
		head := s.Label.Render(title)
		if h := m.previews.Get(i); h != nil {
			head += "  " + s.Muted.Render(h.Summary())
		}
		content := head + "\n" + m.markdown.Render("```\n"+prompt+"\n```", inner)
		if st := m.copyState(i, "c copy prompt"); st != "" {
			content += "\n" + st
		}
		cards[i] = m.card(i, content)
	}
	return m.joinCards(intro, cards)
}
