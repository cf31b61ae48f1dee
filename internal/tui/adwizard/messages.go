package adwizard

import "github.com/mark3labs/adreel/internal/workflow"

// eventMsg carries a workflow event published on the bus.
type eventMsg struct {
	event workflow.Event
}

// generationDoneMsg is sent when a generation transition returns.
type generationDoneMsg struct {
	op  workflow.Operation
	err error
}

// copiedExpiredMsg hides the "Copied!" acknowledgment with sequence seq.
type copiedExpiredMsg struct {
	seq int
}

// exportSavedMsg reports the result of saving the concept.
type exportSavedMsg struct {
	path       string
	hookOutput string
	err        error
}

// editorClosedMsg is sent when the external editor exits.
type editorClosedMsg struct {
	err error
}
