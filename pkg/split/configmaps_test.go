package split

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/secretmask/pkg/masking"
)

const listYAML = `apiVersion: v1
kind: ConfigMapList
items:
- apiVersion: v1
  kind: ConfigMap
  metadata:
    name: keystone-config
  data:
    keystone.conf: |
      [DEFAULT]
      admin_token = s3cr3t
- apiVersion: v1
  kind: ConfigMap
  metadata:
    namespace: openstack
  data:
    region: regionOne
- apiVersion: v1
  kind: ConfigMap
  metadata:
    name: ../escape
  data:
    password: plain
`

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "configmaps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfigMapList(t *testing.T) {
	input := writeInput(t, listYAML)
	out := filepath.Join(t.TempDir(), "out")

	result, err := ConfigMapList(input, out, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(out, "keystone-config.yaml"),
		filepath.Join(out, "unnamed-2.yaml"),
		filepath.Join(out, "escape.yaml"),
	}, result.Files)
	assert.Empty(t, result.Reports)

	data, err := os.ReadFile(result.Files[0])
	require.NoError(t, err)

	var cm struct {
		Kind string            `yaml:"kind"`
		Data map[string]string `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal(data, &cm))
	assert.Equal(t, "ConfigMap", cm.Kind)
	assert.Contains(t, cm.Data["keystone.conf"], "admin_token = s3cr3t", "unmasked without a masker")
}

func TestConfigMapList_Masked(t *testing.T) {
	input := writeInput(t, listYAML)
	out := filepath.Join(t.TempDir(), "out")
	dispatcher := masking.NewDispatcher(masking.NewRedactor(masking.NewDefaultRegistry()))

	result, err := ConfigMapList(input, out, dispatcher)
	require.NoError(t, err)
	require.Len(t, result.Reports, 3)

	data, err := os.ReadFile(filepath.Join(out, "keystone-config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "admin_token = **********")
	assert.NotContains(t, string(data), "s3cr3t")

	data, err = os.ReadFile(filepath.Join(out, "escape.yaml"))
	require.NoError(t, err)
	var cm struct {
		Data map[string]string `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal(data, &cm))
	assert.Equal(t, masking.MaskString, cm.Data["password"])
}

func TestConfigMapList_WrongKind(t *testing.T) {
	input := writeInput(t, "apiVersion: v1\nkind: SecretList\nitems: []\n")

	_, err := ConfigMapList(input, t.TempDir(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedKind)
	assert.Contains(t, err.Error(), `got "SecretList"`)
}

func TestConfigMapList_MissingInput(t *testing.T) {
	_, err := ConfigMapList(filepath.Join(t.TempDir(), "missing.yaml"), t.TempDir(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigMapList_EmptyItems(t *testing.T) {
	input := writeInput(t, "kind: ConfigMapList\nitems: []\n")

	result, err := ConfigMapList(input, filepath.Join(t.TempDir(), "out"), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Files)
}
