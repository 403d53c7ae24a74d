package masking

import (
	"gopkg.in/yaml.v3"
)

// PlaintextStrategy masks resources whose sensitive values are native
// strings (ConfigMaps, custom resources): every string leaf of the tree is
// checked against its key name and its content.
type PlaintextStrategy struct {
	redactor *Redactor
	path     string
}

// NewPlaintextStrategy creates a plaintext strategy. path is only used in logs.
func NewPlaintextStrategy(redactor *Redactor, path string) *PlaintextStrategy {
	return &PlaintextStrategy{redactor: redactor, path: path}
}

// Kind returns StrategyPlaintext.
func (p *PlaintextStrategy) Kind() StrategyKind { return StrategyPlaintext }

// Mask walks resource and masks every string leaf in place.
func (p *PlaintextStrategy) Mask(resource *yaml.Node) *Result {
	return p.mask(resource, nil)
}

// mask walks resource, leaving out the nodes in skip.
func (p *PlaintextStrategy) mask(resource *yaml.Node, skip map[*yaml.Node]bool) *Result {
	res := &Result{}

	// The annotation is a JSON document in a string; running the text
	// patterns over it could cut through its syntax.
	if n := maskLastApplied(resource, p.path, res, p.Mask); n != nil {
		if skip == nil {
			skip = make(map[*yaml.Node]bool, 1)
		}
		skip[n] = true
	}

	Walk(resource, func(key string, node *yaml.Node) bool {
		if skip[node] {
			return false
		}
		if isString(node) && maskLeaf(p.redactor, key, node) {
			res.Redacted++
		}
		return true
	})

	return res
}
