// Package template holds the instruction texts sent to the generation service.
package template

import (
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/adreel/internal/logger"
)

// Kind selects which built-in template a lookup falls back to.
type Kind string

const (
	KindScript    Kind = "script"
	KindAnimation Kind = "animation"
)

// Variables holds the data to be injected into template placeholders.
type Variables struct {
	ScriptContext string // One "shot_number: shot_description" line per shot
	Extra         string // Extra instructions appended by the user
}

// Render replaces {{variable}} placeholders in template with actual values.
// Supports the following variables:
// - {{script_context}} - Script context for animation prompts
// - {{extra}} - Extra instructions (empty if none)
//
// Each placeholder is replaced in a single pass, so values that contain
// placeholder text are inserted verbatim. Unknown placeholders are left
// untouched and surrounding whitespace is trimmed.
func Render(template string, vars Variables) string {
	r := strings.NewReplacer(
		"{{script_context}}", vars.ScriptContext,
		"{{extra}}", vars.Extra,
	)
	return strings.TrimSpace(r.Replace(template))
}

// LoadFromFile loads a template from a file.
// If the file doesn't exist or can't be read, returns an error.
func LoadFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template file %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("template file %s is empty", path)
	}
	return string(data), nil
}

// Builtin returns the embedded template for kind.
func Builtin(kind Kind) (string, error) {
	switch kind {
	case KindScript:
		return ScriptTemplate, nil
	case KindAnimation:
		return AnimationTemplate, nil
	default:
		return "", fmt.Errorf("unknown template kind %q", kind)
	}
}

// GetTemplate returns the template content.
// If customPath is non-empty, loads from that file.
// Otherwise returns the embedded template for kind.
func GetTemplate(kind Kind, customPath string) (string, error) {
	if customPath == "" {
		return Builtin(kind)
	}
	logger.Debug("Using custom %s template: %s", kind, customPath)
	return LoadFromFile(customPath)
}

// Set is the pair of templates a generation client renders from.
type Set struct {
	Script    string
	Animation string
}

// DefaultSet returns the embedded templates.
func DefaultSet() Set {
	return Set{Script: ScriptTemplate, Animation: AnimationTemplate}
}

// LoadSet resolves both templates, preferring the override files when given.
func LoadSet(scriptPath, animationPath string) (Set, error) {
	script, err := GetTemplate(KindScript, scriptPath)
	if err != nil {
		return Set{}, err
	}
	animation, err := GetTemplate(KindAnimation, animationPath)
	if err != nil {
		return Set{}, err
	}
	return Set{Script: script, Animation: animation}, nil
}
