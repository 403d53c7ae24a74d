package masking

import (
	"errors"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResourceReport describes how one resource of a file was masked.
type ResourceReport struct {
	Kind     string
	Strategy StrategyKind
	Redacted int
}

// Report describes one MaskResource / MaskDocument call.
type Report struct {
	Path      string
	Resources []ResourceReport

	// Completed is true when the masked document was produced (and, for
	// files, written back), including when nothing needed masking.
	Completed bool

	// Redacted counts the values changed across all resources.
	Redacted int

	// FieldErrors holds non-fatal problems (*DecodeError,
	// *AnnotationParseError, side-file *WriteError).
	FieldErrors []error

	// Err is the *LoadError or *WriteError that stopped the call, if any.
	Err error
}

// Kind returns the kind of the first resource, or "".
func (r *Report) Kind() string {
	if len(r.Resources) == 0 {
		return ""
	}
	return r.Resources[0].Kind
}

// Strategy returns the strategy of the first resource.
func (r *Report) Strategy() StrategyKind {
	if len(r.Resources) == 0 {
		return StrategyPlaintext
	}
	return r.Resources[0].Strategy
}

// Dispatcher selects the strategy for each resource by its kind and runs it.
// It holds no per-file state and is safe for concurrent use as long as each
// call targets a distinct path.
type Dispatcher struct {
	redactor *Redactor
	files    FileWriter
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithFileWriter replaces the filesystem writer used for masked files and
// side files.
func WithFileWriter(w FileWriter) DispatcherOption {
	return func(d *Dispatcher) { d.files = w }
}

// NewDispatcher creates a dispatcher over the given redactor.
func NewDispatcher(redactor *Redactor, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		redactor: redactor,
		files:    osFileWriter{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaskResource masks the resource file at path and overwrites it.
// `Secret` resources use the Secret strategy with dumpConfig forwarded,
// everything else the plaintext strategy.
//
// The returned error is a *LoadError when the file cannot be read or parsed
// and a *WriteError when it cannot be written back; the report is returned
// in every case.
func (d *Dispatcher) MaskResource(path string, dumpConfig bool) (*Report, error) {
	report := &Report{Path: path}

	doc, err := LoadDocument(path)
	if err != nil {
		report.Err = err
		return report, err
	}

	d.maskDocument(doc, dumpConfig, report)
	if len(doc.Resources()) == 0 {
		// Nothing to mask and nothing to write back
		report.Completed = true
		return report, nil
	}

	if err := doc.Save(d.files); err != nil {
		slog.Error("Failed to write masked file", "path", path, "error", err)
		report.Err = err
		return report, err
	}

	report.Completed = true
	return report, nil
}

// MaskDocument masks raw YAML/JSON and returns the masked YAML. Side files
// are never written.
func (d *Dispatcher) MaskDocument(data []byte) ([]byte, *Report, error) {
	report := &Report{}

	doc, err := ParseDocument("", data)
	if err != nil {
		report.Err = err
		return nil, report, err
	}

	d.maskDocument(doc, false, report)

	out, err := doc.Encode()
	if err != nil {
		report.Err = &WriteError{Err: err}
		return nil, report, report.Err
	}

	report.Completed = true
	return out, report, nil
}

func (d *Dispatcher) maskDocument(doc *Document, dumpConfig bool, report *Report) {
	for _, resource := range doc.Resources() {
		kind := resourceKind(resource)
		var res *Result
		var strategy StrategyKind
		if items := listItems(kind, resource); items != nil {
			strategy = StrategyPlaintext
			res = d.maskList(doc.Path, kind, resource, items, dumpConfig)
		} else {
			s := d.strategy(StrategyFor(kind), doc.Path, dumpConfig)
			strategy = s.Kind()
			res = s.Mask(resource)
		}

		report.Resources = append(report.Resources, ResourceReport{
			Kind:     kind,
			Strategy: strategy,
			Redacted: res.Redacted,
		})
		report.Redacted += res.Redacted
		report.FieldErrors = append(report.FieldErrors, res.FieldErrors...)

		slog.Debug("Masked resource",
			"path", doc.Path,
			"kind", kind,
			"strategy", strategy,
			"redacted", res.Redacted,
			"field_errors", len(res.FieldErrors))
	}
}

// maskList masks the items of a List resource one by one, each with the
// strategy of its own kind, and the list envelope as plaintext.
func (d *Dispatcher) maskList(path, kind string, list, items *yaml.Node, dumpConfig bool) *Result {
	res := &Result{}
	for _, item := range items.Content {
		itemKind := resourceKind(item)
		if itemKind == "" && kind == KindSecret+"List" {
			itemKind = KindSecret
		}
		res.merge(d.strategy(StrategyFor(itemKind), path, dumpConfig).Mask(item))
	}

	envelope := NewPlaintextStrategy(d.redactor, path)
	res.merge(envelope.mask(list, map[*yaml.Node]bool{items: true}))
	return res
}

func (d *Dispatcher) strategy(kind StrategyKind, path string, dumpConfig bool) Strategy {
	if kind == StrategySecret {
		return NewSecretStrategy(d.redactor, SecretOptions{
			DumpConfig: dumpConfig,
			SourcePath: path,
			Files:      d.files,
		})
	}
	return NewPlaintextStrategy(d.redactor, path)
}

// listItems returns the `items` sequence of a *List resource, or nil.
func listItems(kind string, resource *yaml.Node) *yaml.Node {
	if !strings.HasSuffix(kind, "List") {
		return nil
	}
	items := mappingValue(resource, "items")
	if items == nil || items.Kind != yaml.SequenceNode {
		return nil
	}
	return items
}

// IsLoadError reports whether err stopped a file from being loaded.
func IsLoadError(err error) bool {
	var loadErr *LoadError
	return errors.As(err, &loadErr)
}
