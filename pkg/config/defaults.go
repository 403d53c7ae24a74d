package config

import "time"

// DefaultMaskingConfig returns the built-in masking defaults.
func DefaultMaskingConfig() *MaskingConfig {
	return &MaskingConfig{
		Gitleaks: false,
		DumpConf: false,
	}
}

// DefaultBatchConfig returns the built-in batch defaults.
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		Workers:    4,
		Extensions: []string{".yaml", ".yml"},
	}
}

// DefaultServerConfig returns the built-in service defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		HTTPPort:        8080,
		GRPCPort:        9090,
		MaxBodyBytes:    10 * 1024 * 1024,
		ShutdownTimeout: 5 * time.Second,
	}
}

// DefaultHistoryConfig returns the built-in run history defaults.
func DefaultHistoryConfig() *HistoryConfig {
	return &HistoryConfig{
		Enabled:         false,
		RetentionDays:   90,
		CleanupInterval: 12 * time.Hour,
	}
}

// Default returns a fully populated configuration without reading any file.
func Default() *Config {
	return &Config{
		Masking: DefaultMaskingConfig(),
		Batch:   DefaultBatchConfig(),
		Server:  DefaultServerConfig(),
		History: DefaultHistoryConfig(),
	}
}
