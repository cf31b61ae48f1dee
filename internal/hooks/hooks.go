// Package hooks runs user-configured shell commands after adreel saves a concept.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/adreel/internal/logger"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the hooks configuration file.
const ConfigFileName = ".adreel.hooks.yml"

// LoadConfig loads the hooks configuration from the working directory.
// Returns nil if the config file doesn't exist (hooks are optional).
// Returns an error only if the file exists but cannot be parsed.
func LoadConfig(workDir string) (*Config, error) {
	configPath := filepath.Join(workDir, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No hooks config found at %s", configPath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hooks config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hooks config: %w", err)
	}

	logger.Debug("Loaded hooks config from %s (version: %d, post_export: %d)", configPath, cfg.Version, len(cfg.Hooks.PostExport))
	return &cfg, nil
}

// Variables holds template variables that can be expanded in hook commands.
type Variables struct {
	File    string // Path of the saved export
	Format  string // "markdown" or "json"
	Session string
}

// Execute runs a hook command and returns its output.
// {{file}}, {{format}} and {{session}} are expanded before execution.
// Failures and timeouts are reported in the output with a nil error;
// only context cancellation is returned as an error.
func Execute(ctx context.Context, hook *HookConfig, workDir string, vars Variables) (string, error) {
	if hook == nil || hook.Command == "" {
		return "", nil
	}

	command := expandVariables(hook.Command, vars)
	logger.Debug("Executing hook command: %s", command)

	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = workDir
	cmd.WaitDelay = time.Second
	cmd.Env = append(os.Environ(), "ADREEL_EXPORT_FILE="+vars.File)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if execCtx.Err() == context.DeadlineExceeded {
		logger.Warn("Hook command timed out after %ds: %s", timeout, command)
		return fmt.Sprintf("[Hook timed out after %ds]\nPartial output:\n%s", timeout, stdout.String()), nil
	}

	if err != nil {
		logger.Warn("Hook command failed: %v", err)
		output := stdout.String()
		if stderr.Len() > 0 {
			output += "\n[stderr]\n" + stderr.String()
		}
		return fmt.Sprintf("[Hook command failed: %v]\n%s", err, output), nil
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		output += "\n[stderr]\n" + stderr.String()
	}
	return output, nil
}

// ExecuteAll runs hooks in order and joins their non-empty outputs with a blank line.
// It stops at the first context cancellation.
func ExecuteAll(ctx context.Context, hooks []*HookConfig, workDir string, vars Variables) (string, error) {
	var outputs []string
	for _, hook := range hooks {
		out, err := Execute(ctx, hook, workDir, vars)
		if err != nil {
			return strings.Join(outputs, "\n"), err
		}
		if out != "" {
			outputs = append(outputs, out)
		}
	}
	return strings.Join(outputs, "\n"), nil
}

// RunPostExport loads the hooks file from workDir and runs its post_export hooks.
// A missing hooks file is not an error.
func RunPostExport(ctx context.Context, workDir string, vars Variables) (string, error) {
	cfg, err := LoadConfig(workDir)
	if err != nil {
		return "", err
	}
	if cfg == nil || len(cfg.Hooks.PostExport) == 0 {
		return "", nil
	}
	return ExecuteAll(ctx, cfg.Hooks.PostExport, workDir, vars)
}

func expandVariables(command string, vars Variables) string {
	r := strings.NewReplacer(
		"{{file}}", vars.File,
		"{{format}}", vars.Format,
		"{{session}}", vars.Session,
	)
	return r.Replace(command)
}
