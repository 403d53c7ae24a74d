package masking

import (
	"strings"
)

// Detector finds secrets that the key/connection patterns cannot describe.
// Detect returns the secret substrings found in text.
type Detector interface {
	Name() string
	Detect(text string) []string
}

// Redactor applies the registry matchers, then any detectors, to a single
// text blob. Safe for concurrent use.
type Redactor struct {
	registry  *Registry
	detectors []Detector
}

// NewRedactor creates a redactor over the given registry.
func NewRedactor(registry *Registry, detectors ...Detector) *Redactor {
	return &Redactor{
		registry:  registry,
		detectors: detectors,
	}
}

// Registry returns the registry used by this redactor.
func (r *Redactor) Registry() *Registry {
	return r.registry
}

// Redact masks assignments first, then connection strings, then detector
// findings. The number of line breaks in the result always equals the
// number in the input.
func (r *Redactor) Redact(text string) string {
	if text == "" {
		return text
	}

	masked := r.registry.RedactConnectionStrings(r.registry.RedactAssignments(text))

	for _, d := range r.detectors {
		for _, secret := range d.Detect(masked) {
			if strings.Trim(secret, "*\n") == "" {
				continue
			}
			masked = strings.ReplaceAll(masked, secret, maskLines(secret))
		}
	}

	return masked
}

// maskLines returns one MaskString per line of secret so multi-line findings
// (private keys) keep their line count.
func maskLines(secret string) string {
	n := strings.Count(secret, "\n")
	if n == 0 {
		return MaskString
	}
	return strings.Repeat(MaskString+"\n", n) + MaskString
}
