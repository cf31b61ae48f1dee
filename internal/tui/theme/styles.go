package theme

import "charm.land/lipgloss/v2"

// Styles contains all pre-built lipgloss styles for the TUI.
type Styles struct {
	HeaderTitle lipgloss.Style
	Subtitle    lipgloss.Style
	Muted       lipgloss.Style
	Label       lipgloss.Style
	Success     lipgloss.Style

	// Step indicator
	StepActive    lipgloss.Style
	StepDone      lipgloss.Style
	StepPending   lipgloss.Style
	StepConnector lipgloss.Style

	// Containers
	Card        lipgloss.Style
	CardFocused lipgloss.Style
	ErrorBanner lipgloss.Style
	Modal       lipgloss.Style

	// Buttons
	ButtonNormal   lipgloss.Style
	ButtonDisabled lipgloss.Style
	ButtonFocused  lipgloss.Style

	// Hint bar
	HintKey       lipgloss.Style
	HintDesc      lipgloss.Style
	HintSeparator lipgloss.Style

	ListSelected lipgloss.Style

	// Unified diff lines
	DiffInsert  lipgloss.Style
	DiffDelete  lipgloss.Style
	DiffContext lipgloss.Style
	DiffHunk    lipgloss.Style
}
