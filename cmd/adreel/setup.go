package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/adreel/internal/config"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/template"
	"github.com/mark3labs/adreel/internal/tui/wizard"
	"github.com/spf13/cobra"
)

var setupFlags struct {
	project bool
	force   bool
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create adreel configuration file",
	Long: `Create an adreel configuration file interactively.

Asks for a Gemini API key, lets you pick a model from those available to the
key, and optionally edit the instruction templates.

By default, creates a global config at ~/.config/adreel/adreel.yml.
Use --project to create a project-local config in the current directory.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	setupCmd.Flags().BoolVarP(&setupFlags.force, "force", "f", false, "Overwrite existing config file")
}

func runSetup(cmd *cobra.Command, args []string) error {
	targetPath := config.GlobalPath()
	if setupFlags.project {
		targetPath = config.ProjectPath()
	}

	if !setupFlags.force && fileExists(targetPath) {
		return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", targetPath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	templates, err := template.LoadSet(cfg.ScriptTemplate, cfg.AnimationTemplate)
	if err != nil {
		templates = template.DefaultSet()
	}

	keyFromEnv := false
	for _, name := range []string{"ADREEL_API_KEY", "GEMINI_API_KEY", "API_KEY"} {
		if os.Getenv(name) != "" {
			keyFromEnv = true
		}
	}
	result, err := wizard.RunSetup(wizard.SetupOptions{
		APIKey:     cfg.APIKey,
		KeyFromEnv: keyFromEnv,
		Model:      cfg.Model,
		ExportDir:  cfg.ExportDir,
		Templates:  templates,
		Lister: func(ctx context.Context, apiKey string) ([]string, error) {
			return genclient.ListModels(ctx, apiKey, nil)
		},
	})
	if errors.Is(err, wizard.ErrCancelled) {
		fmt.Fprintln(cmd.OutOrStdout(), "Setup cancelled, nothing written.")
		return nil
	}
	if err != nil {
		return err
	}

	out := config.Default()
	out.Model = result.Model
	out.ExportDir = result.ExportDir
	// A key that came from the environment stays there.
	if result.APIKey != "" && !(keyFromEnv && result.APIKey == cfg.APIKey) {
		out.APIKey = result.APIKey
	}

	dir := filepath.Dir(targetPath)
	if result.ScriptTemplate != "" {
		path := filepath.Join(dir, "script-template.md")
		if err := writeTemplate(path, result.ScriptTemplate); err != nil {
			return err
		}
		out.ScriptTemplate = path
	}
	if result.AnimationTemplate != "" {
		path := filepath.Join(dir, "animation-template.md")
		if err := writeTemplate(path, result.AnimationTemplate); err != nil {
			return err
		}
		out.AnimationTemplate = path
	}

	if setupFlags.project {
		err = config.WriteProject(out)
	} else {
		err = config.WriteGlobal(out)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Config written to: %s\n\n", targetPath)
	fmt.Fprintln(cmd.OutOrStdout(), "Run 'adreel' to get started.")
	return nil
}

func writeTemplate(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating template directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing template %s: %w", path, err)
	}
	return nil
}

// fileExists checks if a file exists (helper for setup command).
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
