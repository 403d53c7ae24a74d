package masking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"
)

// LastAppliedConfigAnnotation holds the JSON snapshot kubectl stores on
// every resource created with `kubectl apply`.
const LastAppliedConfigAnnotation = corev1.LastAppliedConfigAnnotation

// lastAppliedNode returns the last-applied-configuration annotation value of
// a resource mapping, or nil when absent or empty.
func lastAppliedNode(resource *yaml.Node) *yaml.Node {
	annotations := mappingValue(mappingValue(resource, "metadata"), "annotations")
	node := mappingValue(annotations, LastAppliedConfigAnnotation)
	if node == nil || !isString(node) || node.Value == "" {
		return nil
	}
	return node
}

// maskLastApplied parses the last-applied-configuration payload of resource,
// masks it with mask and stores it back as compact JSON. The annotation is
// only rewritten when mask changed something. A payload that cannot be
// parsed is replaced entirely with MaskString.
// Returns the annotation node so callers can exclude it from further passes.
func maskLastApplied(resource *yaml.Node, path string, res *Result, mask func(payload *yaml.Node) *Result) *yaml.Node {
	node := lastAppliedNode(resource)
	if node == nil {
		return nil
	}

	payload, err := parseJSONPayload(node.Value)
	if err != nil {
		failAnnotation(node, path, res, err)
		return node
	}

	inner := mask(payload)
	res.merge(inner)
	if inner.Redacted == 0 && len(inner.FieldErrors) == 0 {
		return node
	}

	out, err := compactJSON(payload)
	if err != nil {
		failAnnotation(node, path, res, err)
		return node
	}
	setString(node, out)
	return node
}

func failAnnotation(node *yaml.Node, path string, res *Result, err error) {
	slog.Warn("Failed to parse last-applied-configuration, masking whole annotation",
		"path", path, "error", err)
	setString(node, MaskString)
	res.Redacted++
	res.FieldErrors = append(res.FieldErrors, &AnnotationParseError{
		Annotation: LastAppliedConfigAnnotation,
		Err:        err,
	})
}

// parseJSONPayload parses a JSON object into a YAML node tree so it can be
// masked with the same visitors as the enclosing document.
func parseJSONPayload(raw string) (*yaml.Node, error) {
	if !json.Valid([]byte(raw)) {
		return nil, ErrInvalidJSON
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	root := unwrapDocument(&doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrNotMapping)
	}
	return root, nil
}

// compactJSON serializes a node tree as single-line JSON without HTML
// escaping. Keys keep their document order and numbers their original text.
func compactJSON(node *yaml.Node) (string, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeJSON(buf *bytes.Buffer, node *yaml.Node) error {
	node = resolveAlias(node)
	if node == nil {
		buf.WriteString("null")
		return nil
	}

	switch node.Kind {
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, node.Content[i].Value); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, child := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			buf.WriteString("null")
		case "!!bool", "!!int", "!!float":
			if !json.Valid([]byte(node.Value)) {
				return writeJSONString(buf, node.Value)
			}
			buf.WriteString(node.Value)
		default:
			return writeJSONString(buf, node.Value)
		}
	default:
		return fmt.Errorf("cannot encode %s node as JSON", kindName(node))
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	var out bytes.Buffer
	encoder := json.NewEncoder(&out)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(out.Bytes(), "\n"))
	return nil
}
