package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/export"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/hooks"
	"github.com/mark3labs/adreel/internal/workflow"
	"github.com/spf13/cobra"
)

var scriptFlags struct {
	image  string
	output string
	text   bool
}

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Generate a shot script for a product photo",
	Long: `Generate a shot script for a product photo and print it as JSON.

The JSON can be passed back to 'adreel prompts --script'.`,
	Example: `  adreel script --image can.png > script.json
  adreel script --image can.png --text`,
	Args: cobra.NoArgs,
	RunE: runScript,
}

var promptsFlags struct {
	script string
	images []string
	save   bool
	title  string
	format string
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Generate Veo animation prompts for shot images",
	Long: `Generate one Veo animation prompt per shot image.

Images are matched to shots by position, so pass exactly one image per shot
in script order.`,
	Example: `  adreel prompts --script script.json --images shot1.png,shot2.png,shot3.png
  adreel prompts --script script.json --images a.png --images b.png --save --title "Cold Brew"`,
	Args: cobra.NoArgs,
	RunE: runPrompts,
}

func init() {
	scriptCmd.Flags().StringVarP(&scriptFlags.image, "image", "i", "", "Product photo (required)")
	scriptCmd.Flags().StringVarP(&scriptFlags.output, "output", "o", "", "Write the script JSON to a file instead of stdout")
	scriptCmd.Flags().BoolVar(&scriptFlags.text, "text", false, "Print a readable shot list instead of JSON")
	_ = scriptCmd.MarkFlagRequired("image")

	promptsCmd.Flags().StringVarP(&promptsFlags.script, "script", "s", "", "Script JSON file, or - for stdin (required)")
	promptsCmd.Flags().StringSliceVarP(&promptsFlags.images, "images", "i", nil, "Shot images in shot order (required)")
	promptsCmd.Flags().BoolVar(&promptsFlags.save, "save", false, "Save the concept to the export directory")
	promptsCmd.Flags().StringVar(&promptsFlags.title, "title", "", "Concept title used when saving")
	promptsCmd.Flags().StringVar(&promptsFlags.format, "format", "markdown", "Export format when saving: markdown or json")
	_ = promptsCmd.MarkFlagRequired("script")
	_ = promptsCmd.MarkFlagRequired("images")
}

func runScript(cmd *cobra.Command, args []string) error {
	cfg, err := loadGeneratorConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}

	payload, err := encoder.New().Encode(ctx, encoder.NewFileSource(scriptFlags.image))
	if err != nil {
		return err
	}
	shots, err := gen.GenerateScript(ctx, genclient.Image{MIMEType: payload.MIMEType, Data: payload.Data})
	if err != nil {
		return err
	}
	if len(shots) > workflow.MaxShots {
		shots = shots[:workflow.MaxShots]
	}

	out := cmd.OutOrStdout()
	if scriptFlags.output != "" {
		f, err := os.Create(scriptFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", scriptFlags.output, err)
		}
		defer f.Close()
		out = f
	}

	if scriptFlags.text {
		return writeShotList(out, shots)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(shots)
}

func writeShotList(w io.Writer, shots []genclient.ShotDetail) error {
	for i, s := range shots {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n  %s\n  Image prompt: %s\n", s.ShotNumber, s.ShotDescription, s.ImagePrompt); err != nil {
			return err
		}
	}
	return nil
}

// readScript loads a script written by 'adreel script'.
func readScript(path string, stdin io.Reader) ([]genclient.ShotDetail, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	var script []genclient.ShotDetail
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("script is not a JSON array of shots: %w", err)
	}
	if len(script) == 0 {
		return nil, fmt.Errorf("script has no shots")
	}
	if len(script) > workflow.MaxShots {
		return nil, fmt.Errorf("script has %d shots; at most %d are allowed", len(script), workflow.MaxShots)
	}
	return script, nil
}

func runPrompts(cmd *cobra.Command, args []string) error {
	script, err := readScript(promptsFlags.script, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(promptsFlags.images) != len(script) {
		return fmt.Errorf("got %d images for %d shots; pass one image per shot", len(promptsFlags.images), len(script))
	}
	format, err := export.ParseFormat(promptsFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadGeneratorConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}

	srcs := make([]encoder.Source, len(promptsFlags.images))
	for i, p := range promptsFlags.images {
		srcs[i] = encoder.NewFileSource(p)
	}
	payloads, err := encoder.New().EncodeAll(ctx, srcs)
	if err != nil {
		return err
	}
	images := make([]genclient.Image, len(payloads))
	for i, p := range payloads {
		images[i] = genclient.Image{MIMEType: p.MIMEType, Data: p.Data}
	}

	prompts, err := gen.GenerateAnimationPrompts(ctx, images, script)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, p := range prompts {
		fmt.Fprintf(out, "%s\n  %s\n", script[i].ShotNumber, strings.TrimSpace(p))
	}

	if !promptsFlags.save {
		return nil
	}

	concept, err := export.FromPrompts(promptsFlags.title, script, prompts, time.Now())
	if err != nil {
		return err
	}
	for i := range concept.Shots {
		concept.Shots[i].Image = srcs[i].Name()
	}
	path, err := export.Save(cfg.ExportDir, concept, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSaved to %s\n", path)

	hookOut, err := hooks.RunPostExport(ctx, ".", hooks.Variables{File: path, Format: string(format)})
	if err != nil {
		return fmt.Errorf("post-export hook: %w", err)
	}
	if hookOut != "" {
		fmt.Fprint(out, hookOut)
	}
	return nil
}
