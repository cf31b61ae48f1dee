// Package config provides centralized configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults applied before any config file or environment variable.
const (
	DefaultModel                = "gemini-2.5-flash"
	DefaultScriptTemperature    = 0.7
	DefaultScriptTopP           = 0.95
	DefaultAnimationTemperature = 0.5
	DefaultExportDir            = "adreel-exports"
	DefaultListenAddr           = ":8080"
	DefaultSessionTTL           = 30 * time.Minute
)

// ErrMissingAPIKey is returned by Validate when no Gemini credential is available.
var ErrMissingAPIKey = errors.New("no Gemini API key configured: set api_key, ADREEL_API_KEY or GEMINI_API_KEY")

// Config holds all configuration values for adreel.
type Config struct {
	APIKey               string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model                string        `mapstructure:"model" yaml:"model"`
	ScriptTemperature    float64       `mapstructure:"script_temperature" yaml:"script_temperature"`
	ScriptTopP           float64       `mapstructure:"script_top_p" yaml:"script_top_p"`
	AnimationTemperature float64       `mapstructure:"animation_temperature" yaml:"animation_temperature"`
	RateInterval         time.Duration `mapstructure:"rate_interval" yaml:"rate_interval"`
	ExportDir            string        `mapstructure:"export_dir" yaml:"export_dir"`
	ScriptTemplate       string        `mapstructure:"script_template" yaml:"script_template,omitempty"`
	AnimationTemplate    string        `mapstructure:"animation_template" yaml:"animation_template,omitempty"`
	ListenAddr           string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	SessionTTL           time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	LogLevel             string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile              string        `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

// envKeys lists every key bound to an ADREEL_ environment variable.
var envKeys = []string{
	"api_key",
	"model",
	"script_temperature",
	"script_top_p",
	"animation_temperature",
	"rate_interval",
	"export_dir",
	"script_template",
	"animation_template",
	"listen_addr",
	"session_ttl",
	"log_level",
	"log_file",
}

// Default returns a config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Model:                DefaultModel,
		ScriptTemperature:    DefaultScriptTemperature,
		ScriptTopP:           DefaultScriptTopP,
		AnimationTemperature: DefaultAnimationTemperature,
		ExportDir:            DefaultExportDir,
		ListenAddr:           DefaultListenAddr,
		SessionTTL:           DefaultSessionTTL,
		LogLevel:             "info",
	}
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars (.env included) > project config > XDG global config > defaults
func Load() (*Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("adreel")

	def := Default()
	v.SetDefault("api_key", "")
	v.SetDefault("model", def.Model)
	v.SetDefault("script_temperature", def.ScriptTemperature)
	v.SetDefault("script_top_p", def.ScriptTopP)
	v.SetDefault("animation_temperature", def.AnimationTemperature)
	v.SetDefault("rate_interval", time.Duration(0))
	v.SetDefault("export_dir", def.ExportDir)
	v.SetDefault("script_template", "")
	v.SetDefault("animation_template", "")
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("session_ttl", def.SessionTTL)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", "")

	v.SetEnvPrefix("ADREEL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range envKeys {
		if err := v.BindEnv(key, "ADREEL_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = envutil.GetEnv("GEMINI_API_KEY", envutil.GetEnv("API_KEY", ""))
	}

	return &cfg, nil
}

// Validate reports configuration that prevents generation commands from running.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.RateInterval < 0 {
		return fmt.Errorf("rate_interval must not be negative, got %s", c.RateInterval)
	}
	return nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/adreel/adreel.yml or $XDG_CONFIG_HOME/adreel/adreel.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "adreel", "adreel.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "adreel", "adreel.yml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "adreel.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// The file may carry an API key.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
