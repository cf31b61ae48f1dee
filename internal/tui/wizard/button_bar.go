package wizard

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mark3labs/adreel/internal/tui/theme"
)

// ButtonState represents the visual state of a button.
type ButtonState int

const (
	ButtonNormal   ButtonState = iota // Normal state (enabled)
	ButtonDisabled                    // Disabled state (grayed out)
	ButtonFocused                     // Focused/highlighted state
)

// Button represents a single button in the button bar.
type Button struct {
	Label string
	State ButtonState
}

// ButtonBar manages a set of buttons with consistent styling and keyboard focus.
type ButtonBar struct {
	buttons []Button
	focus   int // -1 when no button has focus
	width   int
}

// NewButtonBar creates a new button bar with the given buttons.
func NewButtonBar(buttons []Button) *ButtonBar {
	b := &ButtonBar{width: 60, focus: -1}
	b.SetButtons(buttons)
	return b
}

// SetButtons replaces the buttons. A button passed in ButtonFocused state takes focus.
func (b *ButtonBar) SetButtons(buttons []Button) {
	b.buttons = buttons
	b.focus = -1
	for i, btn := range buttons {
		if btn.State == ButtonFocused {
			b.buttons[i].State = ButtonNormal
			b.focus = i
		}
	}
	if b.focus >= 0 && !b.enabled(b.focus) {
		b.focus = -1
	}
}

// SetWidth updates the width for the button bar.
func (b *ButtonBar) SetWidth(width int) {
	b.width = width
}

// Len returns the number of buttons.
func (b *ButtonBar) Len() int {
	return len(b.buttons)
}

// Focused returns the index of the focused button, or -1.
func (b *ButtonBar) Focused() int {
	return b.focus
}

// FocusFirst focuses the first enabled button.
func (b *ButtonBar) FocusFirst() {
	b.focus = -1
	b.FocusNext()
}

// FocusLast focuses the last enabled button.
func (b *ButtonBar) FocusLast() {
	b.focus = len(b.buttons)
	b.FocusPrev()
}

// FocusNext moves focus to the next enabled button, wrapping around.
// It returns false when no button is enabled.
func (b *ButtonBar) FocusNext() bool {
	return b.step(1)
}

// FocusPrev moves focus to the previous enabled button, wrapping around.
func (b *ButtonBar) FocusPrev() bool {
	return b.step(-1)
}

// Blur removes focus from every button.
func (b *ButtonBar) Blur() {
	b.focus = -1
}

func (b *ButtonBar) step(dir int) bool {
	n := len(b.buttons)
	if n == 0 {
		return false
	}
	start := b.focus
	for i := 1; i <= n; i++ {
		idx := ((start+dir*i)%n + n) % n
		if b.enabled(idx) {
			b.focus = idx
			return true
		}
	}
	b.focus = -1
	return false
}

func (b *ButtonBar) enabled(i int) bool {
	return i >= 0 && i < len(b.buttons) && b.buttons[i].State != ButtonDisabled
}

// Render renders the button bar with proper spacing and styling.
func (b *ButtonBar) Render() string {
	if len(b.buttons) == 0 {
		return ""
	}

	s := theme.Current().S()

	var renderedButtons []string
	for i, btn := range b.buttons {
		var rendered string
		switch {
		case btn.State == ButtonDisabled:
			rendered = s.ButtonDisabled.Render(btn.Label)
		case i == b.focus:
			rendered = s.ButtonFocused.Render(btn.Label)
		default:
			rendered = s.ButtonNormal.Render(btn.Label)
		}
		renderedButtons = append(renderedButtons, rendered)
	}

	result := strings.Join(renderedButtons, "")
	return lipgloss.PlaceHorizontal(b.width, lipgloss.Center, result)
}

// CreateBackNextButtons creates a Back/Next button set.
// nextLabel is the label of the forward action (e.g. "Generate Veo Prompts").
func CreateBackNextButtons(backEnabled, nextEnabled bool, nextLabel string) []Button {
	backState := ButtonNormal
	if !backEnabled {
		backState = ButtonDisabled
	}
	nextState := ButtonNormal
	if !nextEnabled {
		nextState = ButtonDisabled
	}
	return []Button{
		{Label: "← Back", State: backState},
		{Label: nextLabel, State: nextState},
	}
}

// CreateCancelNextButtons creates a Cancel/Next button set for the first step.
func CreateCancelNextButtons(nextEnabled bool, nextLabel string) []Button {
	nextState := ButtonNormal
	if !nextEnabled {
		nextState = ButtonDisabled
	}
	return []Button{
		{Label: "Cancel", State: ButtonNormal},
		{Label: nextLabel, State: nextState},
	}
}
