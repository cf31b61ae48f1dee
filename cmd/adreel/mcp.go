package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpFlags struct {
	http string
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the generation steps as MCP tools",
	Long: `Serve adreel as a Model Context Protocol server.

Tools:
  generate-script             product photo path -> shot script
  generate-animation-prompts  shot image paths + script -> one Veo prompt per shot
  save-concept                script + prompts -> saved export

Serves over stdio by default; pass --http to serve streamable HTTP instead.`,
	Example: `  adreel mcp
  adreel mcp --http 127.0.0.1:8765`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpFlags.http, "http", "", "Serve streamable HTTP on this address instead of stdio")
}

func runMCP(cmd *cobra.Command, args []string) error {
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
	srv := mcpserver.New(gen, encoder.New(), cfg.ExportDir)

	if mcpFlags.http == "" {
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	}

	if _, err := srv.Start(ctx, mcpFlags.http); err != nil {
		return err
	}
	cmd.PrintErrf("MCP endpoint: %s\n", srv.URL())
	<-ctx.Done()
	return srv.Stop()
}
