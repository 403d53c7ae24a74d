package masking

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"regexp"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// confFileKey matches data keys holding a configuration file (nova.conf).
var confFileKey = regexp.MustCompile(`^.+\.conf$`)

// SecretOptions configures a SecretStrategy.
type SecretOptions struct {
	// DumpConfig writes the masked plaintext of every `*.conf` data entry to
	// `<SourcePath>-<key>`.
	DumpConfig bool

	// SourcePath is the file the Secret was loaded from. Side files are not
	// written when empty.
	SourcePath string

	// Files receives side files; defaults to the local filesystem.
	Files FileWriter
}

// SecretStrategy masks Kubernetes Secrets: `data` values are base64-decoded,
// redacted and re-encoded, `stringData` values are masked as plaintext, and
// the last-applied-configuration annotation is masked the same way.
type SecretStrategy struct {
	redactor *Redactor
	opts     SecretOptions
}

// NewSecretStrategy creates a Secret strategy.
func NewSecretStrategy(redactor *Redactor, opts SecretOptions) *SecretStrategy {
	if opts.Files == nil {
		opts.Files = osFileWriter{}
	}
	return &SecretStrategy{redactor: redactor, opts: opts}
}

// Kind returns StrategySecret.
func (s *SecretStrategy) Kind() StrategyKind { return StrategySecret }

// Mask masks resource in place.
func (s *SecretStrategy) Mask(resource *yaml.Node) *Result {
	return s.mask(resource, true)
}

// mask handles a Secret mapping. sideFiles is false for payloads embedded in
// an annotation: their side file path would collide with the outer entry's.
func (s *SecretStrategy) mask(resource *yaml.Node, sideFiles bool) *Result {
	res := &Result{}
	if resource == nil || resource.Kind != yaml.MappingNode {
		return res
	}

	for i := 0; i+1 < len(resource.Content); i += 2 {
		key, value := resource.Content[i].Value, resolveAlias(resource.Content[i+1])
		switch key {
		case "data":
			s.maskData(value, res, sideFiles)
		case "stringData":
			s.maskStringData(value, res)
		}
	}

	maskLastApplied(resource, s.opts.SourcePath, res, func(payload *yaml.Node) *Result {
		return s.mask(payload, false)
	})

	return res
}

func (s *SecretStrategy) maskData(data *yaml.Node, res *Result, sideFiles bool) {
	if isNull(data) {
		return
	}
	if data.Kind != yaml.MappingNode {
		slog.Warn("Secret data section is not a map", "path", s.opts.SourcePath)
		setString(data, ErrFormat)
		res.FieldErrors = append(res.FieldErrors, &DecodeError{Key: "data", Err: ErrNotMapping})
		return
	}

	for i := 0; i+1 < len(data.Content); i += 2 {
		key, value := data.Content[i].Value, resolveAlias(data.Content[i+1])

		if isNull(value) {
			continue
		}
		if value.Kind != yaml.ScalarNode {
			s.decodeFailed(key, value, res, fmt.Errorf("expected a base64 string, got a %s", kindName(value)))
			continue
		}

		// Entries without an encoded value stay empty
		if value.Value == "" {
			setString(value, "")
			continue
		}

		var masked string
		if s.redactor.Registry().KeyIsSensitive(key) {
			masked = MaskString
			res.Redacted++
		} else {
			decoded, err := base64.StdEncoding.DecodeString(value.Value)
			if err != nil {
				s.decodeFailed(key, value, res, err)
				continue
			}
			if !utf8.Valid(decoded) {
				s.decodeFailed(key, value, res, ErrInvalidUTF8)
				continue
			}
			masked = s.redactor.Redact(string(decoded))
			if masked != string(decoded) {
				res.Redacted++
			}
			if sideFiles && s.opts.DumpConfig && confFileKey.MatchString(key) {
				s.dumpConfig(key, masked, res)
			}
		}

		setString(value, base64.StdEncoding.EncodeToString([]byte(masked)))
	}
}

func (s *SecretStrategy) maskStringData(data *yaml.Node, res *Result) {
	if data == nil || data.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(data.Content); i += 2 {
		key, value := data.Content[i].Value, resolveAlias(data.Content[i+1])
		if isString(value) && maskLeaf(s.redactor, key, value) {
			res.Redacted++
		}
	}
}

func (s *SecretStrategy) decodeFailed(key string, value *yaml.Node, res *Result, err error) {
	slog.Warn("Failed to decode Secret value", "key", key, "path", s.opts.SourcePath, "error", err)
	setString(value, ErrString)
	res.FieldErrors = append(res.FieldErrors, &DecodeError{Key: key, Err: err})
}

func (s *SecretStrategy) dumpConfig(key, masked string, res *Result) {
	if s.opts.SourcePath == "" {
		return
	}
	path := fmt.Sprintf("%s-%s", s.opts.SourcePath, key)
	if err := s.opts.Files.WriteFile(path, []byte(masked)); err != nil {
		slog.Warn("Failed to write masked config file", "path", path, "error", err)
		res.FieldErrors = append(res.FieldErrors, &WriteError{Path: path, Err: err})
		return
	}
	slog.Debug("Dumped masked config file", "path", path)
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	default:
		return "alias"
	}
}
