package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ConfigValidator validates configuration with clear error messages
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs validation (fail-fast - stops at first error)
func (v *ConfigValidator) ValidateAll() error {
	if err := v.validateMasking(); err != nil {
		return fmt.Errorf("masking validation failed: %w", err)
	}

	if err := v.validateBatch(); err != nil {
		return fmt.Errorf("batch validation failed: %w", err)
	}

	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}

	if err := v.validateHistory(); err != nil {
		return fmt.Errorf("history validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validateMasking() error {
	m := v.cfg.Masking
	if m == nil {
		return nil
	}
	for i, fragment := range m.ExtraProtectKeys {
		if err := ValidatePatternFragment(fragment); err != nil {
			return NewValidationError("masking", fmt.Sprintf("extra_protect_keys[%d]", i), err)
		}
	}
	for i, fragment := range m.ExtraConnectionKeys {
		if err := ValidatePatternFragment(fragment); err != nil {
			return NewValidationError("masking", fmt.Sprintf("extra_connection_keys[%d]", i), err)
		}
	}
	return nil
}

func (v *ConfigValidator) validateBatch() error {
	b := v.cfg.Batch
	if b == nil {
		return nil
	}
	if b.Workers < 1 {
		return NewValidationError("batch", "workers", fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, b.Workers))
	}
	if len(b.Extensions) == 0 {
		return NewValidationError("batch", "extensions", fmt.Errorf("%w: at least one extension required", ErrInvalidValue))
	}
	for _, ext := range b.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return NewValidationError("batch", "extensions", fmt.Errorf("%w: %q must start with '.'", ErrInvalidValue, ext))
		}
	}
	return nil
}

func (v *ConfigValidator) validateServer() error {
	s := v.cfg.Server
	if s == nil {
		return nil
	}
	if s.HTTPPort < 1 || s.HTTPPort > 65535 {
		return NewValidationError("server", "http_port", fmt.Errorf("%w: %d out of range", ErrInvalidValue, s.HTTPPort))
	}
	if s.GRPCPort < 1 || s.GRPCPort > 65535 {
		return NewValidationError("server", "grpc_port", fmt.Errorf("%w: %d out of range", ErrInvalidValue, s.GRPCPort))
	}
	if s.HTTPPort == s.GRPCPort {
		return NewValidationError("server", "grpc_port", fmt.Errorf("%w: must differ from http_port", ErrInvalidValue))
	}
	if s.MaxBodyBytes < 1 {
		return NewValidationError("server", "max_body_bytes", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *ConfigValidator) validateHistory() error {
	h := v.cfg.History
	if h == nil {
		return nil
	}
	if h.RetentionDays < 1 {
		return NewValidationError("history", "retention_days", fmt.Errorf("%w: must be at least 1, got %d", ErrInvalidValue, h.RetentionDays))
	}
	if h.CleanupInterval <= 0 {
		return NewValidationError("history", "cleanup_interval", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

// ValidatePatternFragment checks that a pattern list entry is non-empty and
// compiles on its own. An empty fragment would make every field name match.
func ValidatePatternFragment(fragment string) error {
	if strings.TrimSpace(fragment) == "" {
		return fmt.Errorf("%w: empty fragment", ErrInvalidPattern)
	}
	if _, err := regexp.Compile("(?:" + fragment + ")"); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, fragment, err)
	}
	return nil
}
