package masking

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

// GitleaksDetector reports secrets matched by the gitleaks default rule set
// (cloud provider keys, tokens, private keys).
type GitleaksDetector struct {
	detector *detect.Detector
}

// NewGitleaksDetector loads the gitleaks default configuration.
func NewGitleaksDetector() (*GitleaksDetector, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(strings.NewReader(config.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("failed to read gitleaks config: %w", err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gitleaks config: %w", err)
	}

	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("failed to translate gitleaks config: %w", err)
	}

	return &GitleaksDetector{detector: detect.NewDetector(cfg)}, nil
}

// Name returns the detector identifier.
func (g *GitleaksDetector) Name() string { return "gitleaks" }

// Detect returns the distinct secrets gitleaks finds in text.
func (g *GitleaksDetector) Detect(text string) []string {
	findings := g.detector.Detect(detect.Fragment{Raw: text})
	if len(findings) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(findings))
	secrets := make([]string, 0, len(findings))
	for _, f := range findings {
		if f.Secret == "" || seen[f.Secret] {
			continue
		}
		seen[f.Secret] = true
		secrets = append(secrets, f.Secret)
	}
	return secrets
}
