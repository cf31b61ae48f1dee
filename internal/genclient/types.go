// Package genclient is the contract with the generative backend that writes
// ad scripts and animation prompts.
package genclient

import (
	"context"
	"fmt"
	"strings"
)

// ShotDetail is one shot of a generated ad script.
type ShotDetail struct {
	ShotNumber      string `json:"shot_number"`
	ShotDescription string `json:"shot_description"`
	ImagePrompt     string `json:"image_prompt"`
}

// Image is a base64 image payload with its MIME type.
type Image struct {
	MIMEType string
	Data     string
}

// Generator produces scripts and animation prompts.
// Implementations make a single attempt per call and never return partial results.
type Generator interface {
	// GenerateScript returns the shot list for a product image.
	GenerateScript(ctx context.Context, image Image) ([]ShotDetail, error)
	// GenerateAnimationPrompts returns one prompt per image, in image order.
	// len(images) must equal len(script).
	GenerateAnimationPrompts(ctx context.Context, images []Image, script []ShotDetail) ([]string, error)
}

// Messages carried by the error types below.
const (
	ScriptFailureMessage    = "failed to communicate with the Gemini API for script generation"
	AnimationFailureMessage = "failed to communicate with the Gemini API for Veo prompt generation"
)

// ScriptGenerationError wraps any failure of GenerateScript.
type ScriptGenerationError struct {
	Err error
}

func (e *ScriptGenerationError) Error() string {
	if e.Err == nil {
		return ScriptFailureMessage
	}
	return fmt.Sprintf("%s: %v", ScriptFailureMessage, e.Err)
}

func (e *ScriptGenerationError) Unwrap() error {
	return e.Err
}

// AnimationPromptError wraps any failure of GenerateAnimationPrompts.
type AnimationPromptError struct {
	Err error
}

func (e *AnimationPromptError) Error() string {
	if e.Err == nil {
		return AnimationFailureMessage
	}
	return fmt.Sprintf("%s: %v", AnimationFailureMessage, e.Err)
}

func (e *AnimationPromptError) Unwrap() error {
	return e.Err
}

// ScriptContext renders one "shot_number: shot_description" line per shot, in order.
func ScriptContext(script []ShotDetail) string {
	lines := make([]string, len(script))
	for i, s := range script {
		lines[i] = s.ShotNumber + ": " + s.ShotDescription
	}
	return strings.Join(lines, "\n")
}
