package config

import "time"

// Config is the umbrella configuration object returned by Initialize() and
// used by the CLI, the batch runner and the HTTP service.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// Masking rules layered on top of the built-in pattern lists
	Masking *MaskingConfig

	// Directory batch settings
	Batch *BatchConfig

	// HTTP / gRPC service settings
	Server *ServerConfig

	// Run history persistence
	History *HistoryConfig
}

// MaskingConfig controls which patterns the masking engine compiles.
type MaskingConfig struct {
	// ExtraProtectKeys are appended to the built-in sensitive key patterns.
	// Each entry is a case-insensitive regex fragment matched at the end of a field name.
	ExtraProtectKeys []string `yaml:"extra_protect_keys,omitempty"`

	// ExtraConnectionKeys are appended to the built-in connection scheme patterns.
	ExtraConnectionKeys []string `yaml:"extra_connection_keys,omitempty"`

	// Gitleaks enables the gitleaks detector as an additional redaction pass.
	Gitleaks bool `yaml:"gitleaks"`

	// DumpConf is the default for --dump-conf.
	DumpConf bool `yaml:"dump_conf"`
}

// BatchConfig controls directory processing.
type BatchConfig struct {
	// Workers is the number of files masked concurrently.
	Workers int `yaml:"workers"`

	// Extensions lists the file suffixes picked up while walking a directory.
	Extensions []string `yaml:"extensions,omitempty"`
}

// ServerConfig controls `secretmask serve`.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port"`
	GRPCPort        int           `yaml:"grpc_port"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HistoryConfig controls recording of batch runs in PostgreSQL.
// Connection settings come from DB_* environment variables.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`

	// RetentionDays is how many days recorded runs are kept by `serve`.
	RetentionDays int `yaml:"retention_days"`

	// CleanupInterval is how often expired runs are deleted.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// ProtectKeys returns the built-in sensitive key patterns followed by the
// user-defined ones.
func (c *Config) ProtectKeys() []string {
	builtin := GetBuiltinConfig()
	keys := append([]string{}, builtin.ProtectKeys...)
	if c.Masking != nil {
		keys = append(keys, c.Masking.ExtraProtectKeys...)
	}
	return keys
}

// ConnectionKeys returns the built-in connection scheme patterns followed by
// the user-defined ones.
func (c *Config) ConnectionKeys() []string {
	builtin := GetBuiltinConfig()
	keys := append([]string{}, builtin.ConnectionKeys...)
	if c.Masking != nil {
		keys = append(keys, c.Masking.ExtraConnectionKeys...)
	}
	return keys
}
