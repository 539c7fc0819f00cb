// Package config resolves runtime settings from defaults, an optional
// YAML file, and environment variables, in increasing precedence. Flag
// values override all of these at the call site.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

// DefaultModel is used when neither flag, env, nor file names one.
const DefaultModel = "gemini-2.5-flash-lite"

const defaultContextWindow = 8000

// Config is the fully resolved runtime configuration.
type Config struct {
	APIKeys       []string `env:"GEMINI_API_KEY" envSeparator:"," yaml:"api_keys"`
	Model         string   `env:"QUILL_DEFAULT_MODEL" yaml:"model"`
	OllamaBaseURL string   `env:"OLLAMA_BASE_URL" yaml:"ollama_base_url"`
	ContextWindow int      `env:"QUILL_CONTEXT_WINDOW" yaml:"context_window"`
	Home          string   `env:"QUILL_HOME" yaml:"-"`
	AudioDevice   string   `env:"QUILL_AUDIO_DEVICE" yaml:"audio_device"`
	LogToFile     bool     `env:"QUILL_LOG_TO_FILE" yaml:"log_to_file"`
}

// Load resolves the configuration. A missing config file is not an error.
func Load() (*Config, error) {
	cfg := &Config{
		Model:         DefaultModel,
		OllamaBaseURL: "http://localhost:11434",
		ContextWindow: defaultContextWindow,
	}

	home, err := defaultHome()
	if err != nil {
		return nil, err
	}
	cfg.Home = home

	if err := cfg.mergeFile(filepath.Join(home, "config.yaml")); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = defaultContextWindow
	}
	return cfg, nil
}

func defaultHome() (string, error) {
	if h := os.Getenv("QUILL_HOME"); h != "" {
		return h, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(userHome, ".quill"), nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc Config
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(fc.APIKeys) > 0 {
		c.APIKeys = fc.APIKeys
	}
	if fc.Model != "" {
		c.Model = fc.Model
	}
	if fc.OllamaBaseURL != "" {
		c.OllamaBaseURL = fc.OllamaBaseURL
	}
	if fc.ContextWindow > 0 {
		c.ContextWindow = fc.ContextWindow
	}
	if fc.AudioDevice != "" {
		c.AudioDevice = fc.AudioDevice
	}
	if fc.LogToFile {
		c.LogToFile = true
	}
	return nil
}

// ConversationsDir is where conversation records live.
func (c *Config) ConversationsDir() string { return filepath.Join(c.Home, "conversations") }

// RolesDir holds reusable role prompt files.
func (c *Config) RolesDir() string { return filepath.Join(c.Home, "roles") }

// TasksDir holds reusable task prompt files, searched after RolesDir.
func (c *Config) TasksDir() string { return filepath.Join(c.Home, "tasks") }

// UsageDBPath is the token-usage ledger location.
func (c *Config) UsageDBPath() string { return filepath.Join(c.Home, "usage.db") }

// LogsDir holds per-conversation log files when file logging is enabled.
func (c *Config) LogsDir() string { return filepath.Join(c.Home, "logs") }
