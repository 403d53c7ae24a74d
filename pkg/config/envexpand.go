package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands {{.VAR_NAME}} references in YAML content with values
// from the process environment. `$` stays literal: the masking patterns are
// regex fragments and routinely end in `$` or contain `\d`.
//
// Examples:
//   - {{.EXTRA_KEY}} → value of EXTRA_KEY environment variable
//   - "token_\d+$"   → preserved literally
//
// Missing variables expand to empty string. Malformed templates return the
// input untouched.
func ExpandEnv(data []byte) []byte {
	return expandTemplate(data, environMap(os.Environ()))
}

func expandTemplate(data []byte, vars map[string]string) []byte {
	if !bytes.Contains(data, []byte("{{")) {
		return data
	}

	tmpl, err := template.New("config").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return data
	}
	return buf.Bytes()
}

// environMap splits KEY=VALUE pairs on the first '='.
func environMap(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			vars[key] = value
		}
	}
	return vars
}
