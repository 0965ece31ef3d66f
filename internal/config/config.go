// Package config loads the top-level opsward configuration, falling back
// to defaults rooted in ~/.opsward when no file is present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the host configuration.
type Config struct {
	// DataDir roots the database, audit log, and plugin directory.
	DataDir string `yaml:"data_dir"`

	// CommandPolicyPath and PathPolicyPath point at the gate policy files;
	// empty means the built-in defaults.
	CommandPolicyPath string `yaml:"command_policy"`
	PathPolicyPath    string `yaml:"path_policy"`

	PluginDir    string        `yaml:"plugin_dir"`
	AuditLogPath string        `yaml:"audit_log"`
	DatabasePath string        `yaml:"database"`
	HookDeadline time.Duration `yaml:"hook_deadline"`

	RateLimit struct {
		Calls  int           `yaml:"calls"`
		Window time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".opsward")

	cfg := &Config{
		DataDir:      dataDir,
		PluginDir:    filepath.Join(dataDir, "plugins"),
		AuditLogPath: filepath.Join(dataDir, "audit.jsonl"),
		DatabasePath: filepath.Join(dataDir, "opsward.db"),
		HookDeadline: 5 * time.Second,
		LogLevel:     "info",
	}
	cfg.RateLimit.Calls = 30
	cfg.RateLimit.Window = time.Minute
	return cfg
}

// Load reads the configuration file, defaulting when path is empty or the
// file does not exist. Unset fields pick up their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), nil
		}
		path = filepath.Join(home, ".opsward", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.HookDeadline <= 0 {
		cfg.HookDeadline = 5 * time.Second
	}
	if cfg.RateLimit.Calls <= 0 {
		cfg.RateLimit.Calls = 30
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}
	return cfg, nil
}
