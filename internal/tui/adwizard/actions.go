package adwizard

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/editor"
	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/export"
	"github.com/mark3labs/adreel/internal/hooks"
	"github.com/mark3labs/adreel/internal/tui/wizard"
	"github.com/mark3labs/adreel/internal/workflow"
)

type action int

const (
	actNone action = iota
	actPickProduct
	actClearProduct
	actGenerateScript
	actBack
	actForward
	actCopyImagePrompt
	actToggleRaw
	actToggleDiff
	actPickShot
	actClearShot
	actGeneratePrompts
	actCopyVeoPrompt
	actSave
	actOpenExport
	actNewProject
)

var stepKeys = map[workflow.Step]map[string]action{
	workflow.StepUploadProduct: {
		"o": actPickProduct,
		"x": actClearProduct,
		"g": actGenerateScript,
	},
	workflow.StepReviewScript: {
		"b": actBack,
		"n": actForward,
		"c": actCopyImagePrompt,
		"r": actToggleRaw,
		"d": actToggleDiff,
	},
	workflow.StepUploadShotImages: {
		"b": actBack,
		"o": actPickShot,
		"x": actClearShot,
		"g": actGeneratePrompts,
	},
	workflow.StepReviewFinalPrompts: {
		"b": actBack,
		"c": actCopyVeoPrompt,
		"s": actSave,
		"e": actOpenExport,
		"n": actNewProject,
	},
}

func (m *Model) keyAction(key string) (action, bool) {
	a, ok := stepKeys[m.snap.Step][key]
	return a, ok
}

// defaultAction runs on enter when no button has focus.
func (m *Model) defaultAction() action {
	switch m.snap.Step {
	case workflow.StepUploadProduct:
		if m.snap.ProductImage == nil {
			return actPickProduct
		}
		return actGenerateScript
	case workflow.StepReviewScript:
		return actForward
	case workflow.StepUploadShotImages:
		return actPickShot
	case workflow.StepReviewFinalPrompts:
		return actCopyVeoPrompt
	}
	return actNone
}

func (m *Model) perform(a action) tea.Cmd {
	switch a {
	case actPickProduct:
		m.openPicker(workflow.ProductSlot)
	case actClearProduct:
		if err := m.machine.SetProductImage(nil); err != nil {
			m.status = err.Error()
		}
		m.refresh()
	case actGenerateScript:
		return m.startGeneration(workflow.OpScript)
	case actBack:
		m.back()
	case actForward:
		if m.machine.Forward() {
			m.afterMove()
		}
	case actCopyImagePrompt:
		if m.cursor < len(m.snap.Script) {
			return m.copyText(m.snap.Script[m.cursor].ImagePrompt, m.cursor)
		}
	case actToggleRaw:
		m.showRaw = !m.showRaw
		m.showDiff = false
		m.layout()
	case actToggleDiff:
		if m.prevScript != nil {
			m.showDiff = !m.showDiff
			m.showRaw = false
			m.layout()
		}
	case actPickShot:
		if m.cursor < len(m.snap.UserImages) {
			m.openPicker(m.cursor)
		}
	case actClearShot:
		if err := m.machine.SetUserImage(m.cursor, nil); err != nil {
			m.status = err.Error()
		}
		m.refresh()
	case actGeneratePrompts:
		return m.startGeneration(workflow.OpAnimation)
	case actCopyVeoPrompt:
		if m.cursor < len(m.snap.FinalPrompts) {
			return m.copyText(m.snap.FinalPrompts[m.cursor], m.cursor)
		}
	case actSave:
		return m.saveExport()
	case actOpenExport:
		return m.openExport()
	case actNewProject:
		m.machine.ResetAll()
		m.prevScript = nil
		m.exportPath = ""
		m.status = ""
		m.afterMove()
	}
	return nil
}

// startGeneration runs a generation transition off the UI goroutine.
func (m *Model) startGeneration(op workflow.Operation) tea.Cmd {
	if m.loading() {
		return nil
	}
	if op == workflow.OpScript {
		m.prevScript = m.snap.Script
	}
	m.pending = op
	m.buttons.Blur()
	m.layout()

	machine, ctx := m.machine, m.ctx
	run := func() tea.Msg {
		var err error
		switch op {
		case workflow.OpScript:
			err = machine.GenerateScriptAndAdvance(ctx)
		case workflow.OpAnimation:
			err = machine.GenerateAnimationPromptsAndAdvance(ctx)
		}
		return generationDoneMsg{op: op, err: err}
	}
	return tea.Batch(run, m.spinner.Tick)
}

func (m *Model) finishGeneration(msg generationDoneMsg) {
	if msg.op == m.pending {
		m.pending = ""
	}
	switch {
	case errors.Is(msg.err, workflow.ErrStale):
		m.prevScript = nil
	case msg.err != nil:
		m.log.Debug("%s generation ended with %v", msg.op, msg.err)
		if msg.op == workflow.OpScript {
			m.prevScript = nil
		}
	default:
		m.afterMove()
		if msg.op == workflow.OpScript && (len(m.prevScript) == 0 || scriptDiff(m.prevScript, m.snap.Script) == "") {
			m.prevScript = nil
		}
		return
	}
	m.refresh()
}

// copyText writes text to the system clipboard and through OSC 52, and shows
// "Copied!" on card idx for copiedFor.
func (m *Model) copyText(text string, idx int) tea.Cmd {
	if err := m.opts.Clipboard(text); err != nil {
		m.log.Debug("system clipboard unavailable: %v", err)
	}
	m.copied = idx
	m.copySeq++
	seq := m.copySeq
	m.layout()

	return tea.Batch(
		tea.SetClipboard(text),
		tea.Tick(copiedFor, func(time.Time) tea.Msg {
			return copiedExpiredMsg{seq: seq}
		}),
	)
}

func (m *Model) openPicker(target int) {
	m.pickerTarget = target
	m.picker = wizard.NewFilePicker(m.pickerDir)
	m.layout()
}

func (m *Model) finishPick(path string) {
	if m.picker == nil {
		return
	}
	m.picker = nil
	m.pickerDir = filepath.Dir(path)
	src := encoder.NewFileSource(path)

	if m.pickerTarget == workflow.ProductSlot {
		if err := m.machine.SetProductImage(src); err != nil {
			m.status = err.Error()
		}
		m.refresh()
		return
	}

	if err := m.machine.SetUserImage(m.pickerTarget, src); err != nil {
		m.status = err.Error()
		m.refresh()
		return
	}
	m.refresh()
	// Move to the next empty slot.
	for i := range m.snap.UserImages {
		idx := (m.pickerTarget + 1 + i) % len(m.snap.UserImages)
		if m.snap.UserImages[idx] == nil {
			m.cursor = idx
			break
		}
	}
	m.layout()
}

func (m *Model) saveExport() tea.Cmd {
	concept, err := export.FromSnapshot("", m.snap, m.opts.Now())
	if err != nil {
		m.status = err.Error()
		m.layout()
		return nil
	}

	dir, workDir, session := m.opts.ExportDir, m.opts.WorkDir, m.machine.Session()
	return func() tea.Msg {
		path, err := export.Save(dir, concept, export.FormatMarkdown)
		if err != nil {
			return exportSavedMsg{err: err}
		}
		out, err := hooks.RunPostExport(context.Background(), workDir, hooks.Variables{
			File:    path,
			Format:  string(export.FormatMarkdown),
			Session: session,
		})
		if err != nil {
			return exportSavedMsg{path: path, err: err}
		}
		return exportSavedMsg{path: path, hookOutput: out}
	}
}

func (m *Model) finishExport(msg exportSavedMsg) {
	if msg.path != "" {
		m.exportPath = msg.path
	}
	switch {
	case msg.err != nil && msg.path == "":
		m.status = "Save failed: " + msg.err.Error()
	case msg.err != nil:
		m.status = "Saved to " + msg.path + " (hook failed: " + msg.err.Error() + ")"
	case msg.hookOutput != "":
		m.status = "Saved to " + msg.path + ", post-export hook ran"
		m.log.Info("post-export hook output: %s", msg.hookOutput)
	default:
		m.status = "Saved to " + msg.path
	}
	m.layout()
}

func (m *Model) openExport() tea.Cmd {
	if m.exportPath == "" {
		m.status = "Save the concept first (s)"
		m.layout()
		return nil
	}
	cmd, err := editor.Command("adreel", m.exportPath)
	if err != nil {
		m.status = "No editor available: " + err.Error()
		m.layout()
		return nil
	}
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorClosedMsg{err: err}
	})
}
