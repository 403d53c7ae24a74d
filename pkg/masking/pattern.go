package masking

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/secretmask/pkg/config"
)

const (
	// MaskString replaces every redacted value.
	MaskString = "**********"

	// ErrString replaces a Secret data value that could not be decoded.
	ErrString = "Not a valid string for masking"

	// ErrFormat replaces a Secret data section that is not a map.
	ErrFormat = "Required a dict for masking"
)

// Registry holds the compiled matchers for one set of sensitive key and
// connection scheme patterns. It is immutable after construction and safe
// for concurrent use.
type Registry struct {
	protectKeys    []string
	connectionKeys []string

	keyRegex        *regexp.Regexp // <protect key>$
	assignmentRegex *regexp.Regexp // <token><protect key> = <value>
	connectionRegex *regexp.Regexp // <scheme>://<user>:<secret>@
}

// NewRegistry compiles the matchers for the given pattern fragments.
// Fragments are regex snippets (e.g. `FernetKeys\d`); an empty or invalid
// fragment is an error.
func NewRegistry(protectKeys, connectionKeys []string) (*Registry, error) {
	if len(protectKeys) == 0 {
		return nil, fmt.Errorf("at least one protect key required")
	}
	if len(connectionKeys) == 0 {
		return nil, fmt.Errorf("at least one connection key required")
	}
	for _, fragment := range protectKeys {
		if err := config.ValidatePatternFragment(fragment); err != nil {
			return nil, fmt.Errorf("protect key: %w", err)
		}
	}
	for _, fragment := range connectionKeys {
		if err := config.ValidatePatternFragment(fragment); err != nil {
			return nil, fmt.Errorf("connection key: %w", err)
		}
	}

	keys := strings.Join(protectKeys, "|")
	schemes := strings.Join(connectionKeys, "|")

	keyRegex, err := regexp.Compile(`(?i)(?:` + keys + `)$`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile key pattern: %w", err)
	}
	// The value stops before the first CR or LF
	assignmentRegex, err := regexp.Compile(`(?i)(?P<lhs>\w*(?:` + keys + `)\s*=\s*)[^\r\n]*`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile assignment pattern: %w", err)
	}
	// The secret runs up to the last '@' of the whitespace/quote delimited
	// token; without a user, a ':' separator, a non-empty secret and a '@'
	// nothing matches.
	connectionRegex, err := regexp.Compile(`(?i)(?P<scheme>(?:` + schemes + `)\s*://)(?P<user>[^\s:@/"']*):[^\s"']+@`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile connection pattern: %w", err)
	}

	return &Registry{
		protectKeys:     append([]string{}, protectKeys...),
		connectionKeys:  append([]string{}, connectionKeys...),
		keyRegex:        keyRegex,
		assignmentRegex: assignmentRegex,
		connectionRegex: connectionRegex,
	}, nil
}

// NewDefaultRegistry compiles the built-in pattern lists.
func NewDefaultRegistry() *Registry {
	builtin := config.GetBuiltinConfig()
	r, err := NewRegistry(builtin.ProtectKeys, builtin.ConnectionKeys)
	if err != nil {
		// Built-in lists are covered by tests; failing here is a programming error
		slog.Error("Failed to compile built-in masking patterns", "error", err)
		panic(err)
	}
	return r
}

// NewRegistryFromConfig compiles the built-in pattern lists extended with
// the user-defined ones.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	r, err := NewRegistry(cfg.ProtectKeys(), cfg.ConnectionKeys())
	if err != nil {
		return nil, err
	}
	slog.Debug("Masking patterns compiled",
		"protect_keys", len(r.protectKeys),
		"connection_keys", len(r.connectionKeys))
	return r, nil
}

// KeyIsSensitive reports whether a field name ends with one of the protect
// key patterns (case-insensitive).
func (r *Registry) KeyIsSensitive(name string) bool {
	if name == "" {
		return false
	}
	return r.keyRegex.MatchString(name)
}

// RedactAssignments replaces the value of every `<key> = <value>` pair whose
// key ends with a protect key. The key and separator are kept.
func (r *Registry) RedactAssignments(text string) string {
	return r.assignmentRegex.ReplaceAllString(text, "${lhs}"+MaskString)
}

// RedactConnectionStrings replaces the credential of every
// `<scheme>://<user>:<secret>@<host>` connection string. Scheme, user and
// everything from the '@' on are kept.
func (r *Registry) RedactConnectionStrings(text string) string {
	return r.connectionRegex.ReplaceAllString(text, "${scheme}${user}:"+MaskString+"@")
}

// ProtectKeys returns a copy of the protect key fragments.
func (r *Registry) ProtectKeys() []string {
	return append([]string{}, r.protectKeys...)
}

// ConnectionKeys returns a copy of the connection scheme fragments.
func (r *Registry) ConnectionKeys() []string {
	return append([]string{}, r.connectionKeys...)
}
