// Package genclienttest provides an in-memory genclient.Generator for tests.
package genclienttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/adreel/internal/genclient"
)

// Fake is a scriptable Generator. Unset functions return a canned success.
type Fake struct {
	ScriptFn  func(ctx context.Context, image genclient.Image) ([]genclient.ShotDetail, error)
	PromptsFn func(ctx context.Context, images []genclient.Image, script []genclient.ShotDetail) ([]string, error)

	mu            sync.Mutex
	scriptCalls   int
	promptsCalls  int
	lastImages    []genclient.Image
	lastScript    []genclient.ShotDetail
	lastProductIn genclient.Image
}

// Shots returns n canned shots numbered from 1.
func Shots(n int) []genclient.ShotDetail {
	shots := make([]genclient.ShotDetail, n)
	for i := range shots {
		shots[i] = genclient.ShotDetail{
			ShotNumber:      fmt.Sprintf("Shot %d", i+1),
			ShotDescription: fmt.Sprintf("Description of shot %d", i+1),
			ImagePrompt:     fmt.Sprintf("Image prompt for shot %d", i+1),
		}
	}
	return shots
}

func (f *Fake) GenerateScript(ctx context.Context, image genclient.Image) ([]genclient.ShotDetail, error) {
	f.mu.Lock()
	f.scriptCalls++
	f.lastProductIn = image
	fn := f.ScriptFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, image)
	}
	return Shots(4), nil
}

func (f *Fake) GenerateAnimationPrompts(ctx context.Context, images []genclient.Image, script []genclient.ShotDetail) ([]string, error) {
	f.mu.Lock()
	f.promptsCalls++
	f.lastImages = append([]genclient.Image(nil), images...)
	f.lastScript = append([]genclient.ShotDetail(nil), script...)
	fn := f.PromptsFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, images, script)
	}
	prompts := make([]string, len(images))
	for i := range images {
		prompts[i] = fmt.Sprintf("Slow push in on shot %d", i+1)
	}
	return prompts, nil
}

// ScriptCalls returns how many times GenerateScript ran.
func (f *Fake) ScriptCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scriptCalls
}

// PromptsCalls returns how many times GenerateAnimationPrompts ran.
func (f *Fake) PromptsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.promptsCalls
}

// LastProductImage returns the image passed to the latest GenerateScript call.
func (f *Fake) LastProductImage() genclient.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastProductIn
}

// LastImages returns the images passed to the latest GenerateAnimationPrompts call.
func (f *Fake) LastImages() []genclient.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastImages
}

// LastScript returns the script passed to the latest GenerateAnimationPrompts call.
func (f *Fake) LastScript() []genclient.ShotDetail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastScript
}

var _ genclient.Generator = (*Fake)(nil)
