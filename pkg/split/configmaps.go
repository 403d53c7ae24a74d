// Package split breaks a ConfigMapList dump into one file per ConfigMap.
package split

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/secretmask/pkg/masking"
)

// KindConfigMapList is the only input kind accepted by ConfigMapList.
const KindConfigMapList = "ConfigMapList"

// DefaultOutputDir is used when no output directory is given.
const DefaultOutputDir = "configmaps"

// ErrUnexpectedKind is returned when the input is not a ConfigMapList.
var ErrUnexpectedKind = errors.New("unexpected kind")

// Masker masks a written file in place.
type Masker interface {
	MaskResource(path string, dumpConfig bool) (*masking.Report, error)
}

// Result lists what ConfigMapList produced.
type Result struct {
	// Files are the written paths in item order.
	Files []string

	// Reports holds the masking report of every file when masking was requested.
	Reports []*masking.Report
}

// ConfigMapList writes every item of the ConfigMapList at input to
// `<outputDir>/<metadata.name>.yaml`; items without a name are written as
// `unnamed-<n>.yaml`, n counting from 1. When masker is not nil every written
// file is masked afterwards; a file that fails to mask is logged and kept.
func ConfigMapList(input, outputDir string, masker Masker) (*Result, error) {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", input, err)
	}

	kind, err := masking.PeekKind(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", input, err)
	}
	if kind != KindConfigMapList {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrUnexpectedKind, KindConfigMapList, kind)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", input, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outputDir, err)
	}

	result := &Result{}
	for i, item := range items(&root) {
		path := filepath.Join(outputDir, itemName(item, i+1)+".yaml")
		if err := writeItem(path, item); err != nil {
			return result, err
		}
		result.Files = append(result.Files, path)
	}

	slog.Info("ConfigMapList split", "input", input, "output_dir", outputDir, "files", len(result.Files))

	if masker == nil {
		return result, nil
	}
	for _, path := range result.Files {
		report, err := masker.MaskResource(path, false)
		if err != nil {
			slog.Warn("Could not mask split file", "path", path, "error", err)
		}
		result.Reports = append(result.Reports, report)
	}
	return result, nil
}

func items(root *yaml.Node) []*yaml.Node {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	list := lookup(doc, "items")
	if list == nil || list.Kind != yaml.SequenceNode {
		return nil
	}
	return list.Content
}

func itemName(item *yaml.Node, n int) string {
	name := lookup(lookup(item, "metadata"), "name")
	if name == nil || name.Kind != yaml.ScalarNode || name.Value == "" {
		return fmt.Sprintf("unnamed-%d", n)
	}
	// Names are DNS subdomains; anything else must not escape outputDir
	base := filepath.Base(filepath.Clean("/" + name.Value))
	if base == "/" || base == "." {
		return fmt.Sprintf("unnamed-%d", n)
	}
	return base
}

func lookup(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func writeItem(path string, item *yaml.Node) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(item); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return &masking.WriteError{Path: path, Err: err}
	}
	return nil
}
