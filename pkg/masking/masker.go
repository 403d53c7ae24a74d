package masking

import (
	"gopkg.in/yaml.v3"
)

// KindSecret is the resource kind routed to the Secret strategy.
const KindSecret = "Secret"

// StrategyKind selects how a resource is masked.
type StrategyKind int

const (
	// StrategyPlaintext masks native strings anywhere in the tree.
	StrategyPlaintext StrategyKind = iota
	// StrategySecret decodes, masks and re-encodes base64 `data` values.
	StrategySecret
)

// String returns the strategy name used in logs, metrics and reports.
func (k StrategyKind) String() string {
	switch k {
	case StrategySecret:
		return "secret"
	default:
		return "plaintext"
	}
}

// StrategyFor returns the strategy for a resource kind. Only `Secret` uses
// the Secret strategy; ConfigMaps, custom resources and resources without a
// kind are plaintext.
func StrategyFor(kind string) StrategyKind {
	if kind == KindSecret {
		return StrategySecret
	}
	return StrategyPlaintext
}

// Strategy masks one resource mapping in place.
type Strategy interface {
	// Kind returns the variant of this strategy.
	Kind() StrategyKind

	// Mask redacts sensitive values under resource. Problems with single
	// fields are reported in the result, never returned.
	Mask(resource *yaml.Node) *Result
}

// Result summarizes one masking pass.
type Result struct {
	// Redacted counts the values whose content changed.
	Redacted int

	// FieldErrors holds the non-fatal problems met on the way
	// (*DecodeError, *AnnotationParseError, *WriteError).
	FieldErrors []error
}

func (r *Result) merge(other *Result) {
	if other == nil {
		return
	}
	r.Redacted += other.Redacted
	r.FieldErrors = append(r.FieldErrors, other.FieldErrors...)
}

// maskLeaf applies the plaintext leaf rule to one string value held under
// key: a single-line value of a sensitive key is replaced entirely, anything
// else goes through the redactor. Returns true when the value changed.
func maskLeaf(r *Redactor, key string, node *yaml.Node) bool {
	var masked string
	if r.Registry().KeyIsSensitive(key) && !containsLineBreak(node.Value) {
		masked = MaskString
	} else {
		masked = r.Redact(node.Value)
	}
	if masked == node.Value {
		return false
	}
	setString(node, masked)
	return true
}

func containsLineBreak(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			return true
		}
	}
	return false
}
