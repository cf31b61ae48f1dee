package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/httpapi"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wizard as an HTTP API for browser front ends",
	Long: `Serve the wizard as a JSON HTTP API.

Each client creates a session and drives it through the four steps. Session
events stream over a WebSocket at /ws/sessions/:id. Sessions are kept in
memory and dropped after session_ttl without requests.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.addr, "addr", "a", "", "Listen address (default from listen_addr config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadGeneratorConfig()
	if err != nil {
		return err
	}
	addr := serveFlags.addr
	if addr == "" {
		addr = cfg.ListenAddr
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

	srv := httpapi.New(httpapi.Options{
		Generator:  gen,
		Encoder:    encoder.New(),
		Bus:        bus,
		SessionTTL: cfg.SessionTTL,
		ExportDir:  cfg.ExportDir,
		WorkDir:    ".",
	})
	cmd.Printf("Listening on %s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}
