package main

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/mark3labs/adreel/internal/logger"
	"github.com/mark3labs/adreel/internal/tui/theme"
	"github.com/spf13/cobra"
)

const (
	logoText1 = "▄▀█ █▀▄ █▀█ █▀▀ █▀▀ █  "
	logoText2 = "█▀█ █▄▀ █▀▄ ██▄ ██▄ █▄▄"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adreel",
	Short: "Turn a product photo into a storyboarded video ad with Veo prompts",
	Args:  cobra.NoArgs,
	RunE:  runWizard,
}

// renderLogo creates the logo with gradient colors
func renderLogo() string {
	t := theme.Current()
	line1 := theme.ApplyGradient(logoText1, t.Primary, t.Secondary)
	line2 := theme.ApplyGradient(logoText2, t.Primary, t.Secondary)
	return strings.Join([]string{line1, line2}, "\n")
}

func init() {
	rootCmd.Long = renderLogo() + `

adreel walks you from a product photo to a short video ad in four steps:
Gemini writes a script of up to five shots with an image prompt for each,
you create the shot images with the tool of your choice, and adreel writes
one Veo animation prompt per image.

Run without a subcommand to start the terminal wizard.`

	rootCmd.PersistentFlags().StringVarP(&globalFlags.model, "model", "m", "", "Gemini model (overrides config)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.exportDir, "export-dir", "", "Directory for saved concepts (overrides config)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&wizardFlags.pickerDir, "dir", ".", "Directory the image picker starts in")

	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(setupCmd)
}
