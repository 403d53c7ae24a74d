package masking

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	sigsyaml "sigs.k8s.io/yaml"
)

// Document is one resource file loaded as a stream of YAML documents.
// It is built fresh per file and mutated in place by a single masking pass.
type Document struct {
	Path  string
	Nodes []*yaml.Node // one DocumentNode per `---` separated document
}

// FileWriter persists masked output. The default writes to the local filesystem.
type FileWriter interface {
	WriteFile(path string, data []byte) error
}

type osFileWriter struct{}

func (osFileWriter) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}

// LoadDocument reads and parses the resource file at path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return ParseDocument(path, data)
}

// ParseDocument parses raw YAML (or JSON) into a Document. Empty input
// yields a Document without nodes.
func ParseDocument(path string, data []byte) (*Document, error) {
	doc := &Document{Path: path}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var node yaml.Node
		err := decoder.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		doc.Nodes = append(doc.Nodes, &node)
	}

	return doc, nil
}

// Resources returns the root node of every non-empty document.
func (d *Document) Resources() []*yaml.Node {
	resources := make([]*yaml.Node, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		root := unwrapDocument(n)
		if isNull(root) {
			continue
		}
		resources = append(resources, root)
	}
	return resources
}

// Encode serializes the document back to YAML with two-space indentation;
// multi-line strings are written as literal blocks.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	for _, n := range d.Nodes {
		if isNull(unwrapDocument(n)) {
			continue
		}
		useLiteralBlocks(n)
		if err := encoder.Encode(n); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", d.Path, err)
		}
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", d.Path, err)
	}
	return buf.Bytes(), nil
}

// Save overwrites the document's path with its encoded form.
func (d *Document) Save(w FileWriter) error {
	data, err := d.Encode()
	if err != nil {
		return &WriteError{Path: d.Path, Err: err}
	}
	if err := w.WriteFile(d.Path, data); err != nil {
		return &WriteError{Path: d.Path, Err: err}
	}
	return nil
}

// PeekKind returns the `kind` of the first document in data without
// building the full node tree.
func PeekKind(data []byte) (string, error) {
	var meta metav1.TypeMeta
	if err := sigsyaml.Unmarshal(data, &meta); err != nil {
		return "", err
	}
	return meta.Kind, nil
}
