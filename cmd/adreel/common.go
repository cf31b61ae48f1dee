package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/adreel/internal/config"
	"github.com/mark3labs/adreel/internal/events"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/logger"
	"github.com/mark3labs/adreel/internal/template"
	"github.com/nats-io/nats.go"
)

var globalFlags struct {
	model     string
	exportDir string
	logLevel  string
}

// loadConfig loads configuration, applies flag overrides and configures logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if globalFlags.model != "" {
		cfg.Model = globalFlags.model
	}
	if globalFlags.exportDir != "" {
		cfg.ExportDir = globalFlags.exportDir
	}
	if globalFlags.logLevel != "" {
		cfg.LogLevel = globalFlags.logLevel
	}
	if err := logger.Default.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return cfg, nil
}

// loadGeneratorConfig is loadConfig plus the checks generation needs.
func loadGeneratorConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w\n\nRun 'adreel setup' to store a key", err)
		}
		return nil, err
	}
	return cfg, nil
}

// newGenerator builds the Gemini client from configuration.
func newGenerator(ctx context.Context, cfg *config.Config) (*genclient.Gemini, error) {
	templates, err := template.LoadSet(cfg.ScriptTemplate, cfg.AnimationTemplate)
	if err != nil {
		return nil, err
	}
	return genclient.NewGemini(ctx, cfg.APIKey, genclient.Options{
		Model:                cfg.Model,
		ScriptTemperature:    float32(cfg.ScriptTemperature),
		ScriptTopP:           float32(cfg.ScriptTopP),
		AnimationTemperature: float32(cfg.AnimationTemperature),
		RateInterval:         cfg.RateInterval,
		Templates:            templates,
	})
}

// startBus boots the event bus with the debug journal attached.
// The returned stop function is safe to defer.
func startBus() (*events.Bus, func(), error) {
	bus, err := events.Start()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start event bus: %w", err)
	}
	journal, err := events.Journal(bus, logger.For("journal"))
	if err != nil {
		_ = bus.Close()
		return nil, nil, fmt.Errorf("failed to start event journal: %w", err)
	}
	stop := func() {
		_ = unsubscribe(journal)
		if err := bus.Close(); err != nil {
			logger.Warn("closing event bus: %v", err)
		}
	}
	return bus, stop, nil
}

func unsubscribe(sub *nats.Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}
