package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/tui/adwizard"
	"github.com/mark3labs/adreel/internal/workflow"
	"github.com/spf13/cobra"
)

var wizardFlags struct {
	pickerDir string
}

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Run the four-step ad wizard in the terminal",
	Long: `Run the four-step ad wizard in the terminal.

1. Upload Product     choose a product photo
2. Get Script         review the generated shots and copy their image prompts
3. Upload Images      choose the image you created for each shot
4. Get Veo Prompts    copy one animation prompt per shot, save the concept`,
	Args: cobra.NoArgs,
	RunE: runWizard,
}

func init() {
	wizardCmd.Flags().StringVar(&wizardFlags.pickerDir, "dir", ".", "Directory the image picker starts in")
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfg, err := loadGeneratorConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}

	bus, stopBus, err := startBus()
	if err != nil {
		return err
	}
	defer stopBus()

	enc := encoder.New()
	defer enc.Forget()

	machine := workflow.New(gen, enc,
		workflow.WithNotifier(bus),
		workflow.WithSession(uuid.NewString()),
	)

	if err := adwizard.Run(ctx, adwizard.Options{
		Machine:   machine,
		ExportDir: cfg.ExportDir,
		WorkDir:   ".",
		PickerDir: wizardFlags.pickerDir,
	}, bus); err != nil {
		return fmt.Errorf("wizard: %w", err)
	}
	return nil
}
