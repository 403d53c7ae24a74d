package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the configuration file looked up in the config directory.
const ConfigFileName = "secretmask.yaml"

// SecretmaskYAMLConfig represents the complete secretmask.yaml file structure
type SecretmaskYAMLConfig struct {
	Masking *MaskingConfig `yaml:"masking"`
	Batch   *BatchConfig   `yaml:"batch"`
	Server  *ServerConfig  `yaml:"server"`
	History *HistoryConfig `yaml:"history"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load secretmask.yaml from configDir (optional)
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user values over built-in defaults
//  5. Validate all configuration
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Debug("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Debug("Configuration initialized",
		"protect_keys", len(cfg.ProtectKeys()),
		"connection_keys", len(cfg.ConnectionKeys()),
		"workers", cfg.Batch.Workers,
		"gitleaks", cfg.Masking.Gitleaks)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	path := filepath.Join(configDir, ConfigFileName)

	userConfig, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if userConfig == nil {
		slog.Debug("No configuration file found, using built-in defaults", "path", path)
		userConfig = &SecretmaskYAMLConfig{}
	}

	cfg := Default()
	cfg.configDir = configDir

	// Non-zero user values override the defaults, unset ones keep them
	sections := []struct {
		name      string
		dst, src  any
		specified bool
	}{
		{"masking", cfg.Masking, userConfig.Masking, userConfig.Masking != nil},
		{"batch", cfg.Batch, userConfig.Batch, userConfig.Batch != nil},
		{"server", cfg.Server, userConfig.Server, userConfig.Server != nil},
		{"history", cfg.History, userConfig.History, userConfig.History != nil},
	}
	for _, section := range sections {
		if !section.specified {
			continue
		}
		if err := mergo.Merge(section.dst, section.src, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge %s config: %w", section.name, err)
		}
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}

// readConfigFile parses path after environment expansion. A missing file
// returns nil without error.
func readConfigFile(path string) (*SecretmaskYAMLConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	// ExpandEnv passes through original data on template errors,
	// leaving the YAML parser to report a clearer message
	data = ExpandEnv(data)

	var userConfig SecretmaskYAMLConfig
	if err := yaml.Unmarshal(data, &userConfig); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %v", ErrInvalidYAML, err)}
	}
	return &userConfig, nil
}
