// Package export writes finished ad concepts to disk as Markdown or JSON.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/logger"
	"github.com/mark3labs/adreel/internal/workflow"
)

// Format selects the export encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts "markdown", "md" and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md", "":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

func (f Format) ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".md"
}

// ErrIncomplete is returned when a snapshot has no final prompts to export.
var ErrIncomplete = errors.New("concept is not finished: generate animation prompts first")

// Shot is one exported shot with its image and animation prompt.
type Shot struct {
	Number          string `json:"shot_number"`
	Description     string `json:"shot_description"`
	ImagePrompt     string `json:"image_prompt"`
	Image           string `json:"image,omitempty"`
	AnimationPrompt string `json:"veo_prompt"`
}

// Concept is a finished ad concept.
type Concept struct {
	Title     string    `json:"title"`
	Product   string    `json:"product,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Shots     []Shot    `json:"shots"`
}

// FromSnapshot builds a concept from a snapshot on the final step.
// An empty title falls back to the product image name.
func FromSnapshot(title string, snap workflow.Snapshot, now time.Time) (Concept, error) {
	if len(snap.FinalPrompts) == 0 || len(snap.FinalPrompts) != len(snap.Script) {
		return Concept{}, ErrIncomplete
	}

	product := ""
	if snap.ProductImage != nil {
		product = snap.ProductImage.Name()
	}
	if title == "" {
		title = strings.TrimSuffix(product, filepath.Ext(product))
	}
	if title == "" {
		title = "Ad concept"
	}

	shots := make([]Shot, len(snap.Script))
	for i, s := range snap.Script {
		shots[i] = Shot{
			Number:          s.ShotNumber,
			Description:     s.ShotDescription,
			ImagePrompt:     s.ImagePrompt,
			AnimationPrompt: snap.FinalPrompts[i],
		}
		if i < len(snap.UserImages) && snap.UserImages[i] != nil {
			shots[i].Image = snap.UserImages[i].Name()
		}
	}

	return Concept{Title: title, Product: product, CreatedAt: now, Shots: shots}, nil
}

// FromPrompts builds a concept from a script and its animation prompts.
func FromPrompts(title string, script []genclient.ShotDetail, prompts []string, now time.Time) (Concept, error) {
	return FromSnapshot(title, workflow.Snapshot{Script: script, FinalPrompts: prompts}, now)
}

// Markdown renders the concept as a Markdown document.
func (c Concept) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", c.Title)
	if c.Product != "" {
		fmt.Fprintf(&sb, "Product image: `%s`  \n", c.Product)
	}
	fmt.Fprintf(&sb, "Created: %s\n", c.CreatedAt.Format("2006-01-02 15:04"))

	for _, s := range c.Shots {
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n\n", s.Number, s.Description)
		fmt.Fprintf(&sb, "**Image prompt**\n\n> %s\n\n", s.ImagePrompt)
		if s.Image != "" {
			fmt.Fprintf(&sb, "**Image:** `%s`\n\n", s.Image)
		}
		fmt.Fprintf(&sb, "**Veo prompt**\n\n```\n%s\n```\n", s.AnimationPrompt)
	}
	return sb.String()
}

// JSON renders the concept as indented JSON.
func (c Concept) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Encode renders the concept in format f.
func (c Concept) Encode(f Format) ([]byte, error) {
	if f == FormatJSON {
		return c.JSON()
	}
	return []byte(c.Markdown()), nil
}

// Save writes the concept to dir as <slug>-<timestamp>.<ext>, records it in
// dir/README.md and returns the written path.
func Save(dir string, c Concept, f Format) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	data, err := c.Encode(f)
	if err != nil {
		return "", fmt.Errorf("encoding concept: %w", err)
	}

	name := slug.Make(c.Title)
	if name == "" {
		name = "ad-concept"
	}
	filename := fmt.Sprintf("%s-%s%s", name, c.CreatedAt.Format("20060102-150405"), f.ext())
	path := filepath.Join(dir, filename)

	logger.Debug("Writing concept to %s", path)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write concept: %w", err)
	}

	if err := updateIndex(filepath.Join(dir, "README.md"), filename, c); err != nil {
		return "", fmt.Errorf("failed to update index: %w", err)
	}
	return path, nil
}
