package masking

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// VisitFunc is called for every node reached by Walk together with the name
// of the mapping key holding it ("" for document roots and sequence items).
// Returning false skips the children of that node.
type VisitFunc func(key string, node *yaml.Node) bool

// Walk visits node and its descendants depth-first. The node kind is the
// variant tag: documents and sequences pass their parent key on as "",
// mappings pass each entry's key name, scalars are leaves. An alias is
// resolved to its anchored node, which is visited again under the alias's
// key; an alias pointing back into its own anchor is not followed.
func Walk(node *yaml.Node, visit VisitFunc) {
	w := &walker{visit: visit, following: make(map[*yaml.Node]bool)}
	w.walk(node, "")
}

type walker struct {
	visit     VisitFunc
	following map[*yaml.Node]bool
}

func (w *walker) walk(node *yaml.Node, key string) {
	if node == nil {
		return
	}
	if node.Kind == yaml.AliasNode {
		target := node.Alias
		if target == nil || w.following[target] {
			return
		}
		w.following[target] = true
		w.walk(target, key)
		delete(w.following, target)
		return
	}
	if !w.visit(key, node) {
		return
	}

	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			w.walk(child, "")
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			w.walk(node.Content[i+1], node.Content[i].Value)
		}
	}
}

// resolveAlias returns the anchored node behind an alias, or node itself.
func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// isString reports whether node is a scalar resolving to a string.
// Numbers, booleans and null are left alone by the maskers.
func isString(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!str"
}

// isNull reports whether node is absent or an explicit null.
func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

// setString replaces the content of node with a plain string scalar.
// The anchor is kept so aliases to node stay valid.
func setString(node *yaml.Node, value string) {
	node.Kind = yaml.ScalarNode
	node.Tag = "!!str"
	node.Value = value
	node.Content = nil
	node.Alias = nil
	if !strings.Contains(value, "\n") {
		node.Style &^= yaml.LiteralStyle | yaml.FoldedStyle
	}
}

// unwrapDocument returns the root content node of a document node.
func unwrapDocument(node *yaml.Node) *yaml.Node {
	if node != nil && node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		return node.Content[0]
	}
	return node
}

// mappingValue returns the value node stored under key, or nil. Aliases are
// resolved.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return resolveAlias(node.Content[i+1])
		}
	}
	return nil
}

// resourceKind returns the `kind` string of a resource mapping, or "".
func resourceKind(node *yaml.Node) string {
	kind := mappingValue(node, "kind")
	if kind == nil || !isString(kind) {
		return ""
	}
	return kind.Value
}

// useLiteralBlocks switches every multi-line string to literal block style
// so the written file keeps the value's line structure.
func useLiteralBlocks(node *yaml.Node) {
	Walk(node, func(_ string, n *yaml.Node) bool {
		if isString(n) && strings.Contains(n.Value, "\n") {
			n.Style = yaml.LiteralStyle
		}
		return true
	})
}
