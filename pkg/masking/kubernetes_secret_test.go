package masking

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// memoryFiles records written files instead of touching the filesystem.
type memoryFiles struct {
	mu    sync.Mutex
	files map[string]string
	err   error
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{files: make(map[string]string)}
}

func (m *memoryFiles) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.files[path] = string(data)
	return nil
}

func loadFixture(t *testing.T, name string) *yaml.Node {
	t.Helper()
	doc, err := LoadDocument(filepath.Join("testdata", name))
	require.NoError(t, err)
	resources := doc.Resources()
	require.Len(t, resources, 1)
	return resources[0]
}

func decodedData(t *testing.T, resource *yaml.Node) map[string]string {
	t.Helper()
	data := mappingValue(resource, "data")
	require.NotNil(t, data)
	out := make(map[string]string)
	for i := 0; i+1 < len(data.Content); i += 2 {
		raw, err := base64.StdEncoding.DecodeString(data.Content[i+1].Value)
		require.NoError(t, err, "key %s must stay valid base64", data.Content[i].Value)
		out[data.Content[i].Value] = string(raw)
	}
	return out
}

func newTestSecretStrategy(opts SecretOptions) *SecretStrategy {
	return NewSecretStrategy(NewRedactor(NewDefaultRegistry()), opts)
}

func TestSecretStrategy_SensitiveKeys(t *testing.T) {
	resource := loadFixture(t, "secrets/secret1.yaml")

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	data := decodedData(t, resource)
	for _, key := range []string{"AdminPassword", "DatabasePassword", "FernetKeys0", "MetadataSecret"} {
		assert.Equal(t, MaskString, data[key], "key %s", key)
	}
	assert.Equal(t, "", data["empty"])
	assert.Equal(t, 4, res.Redacted)
	assert.Empty(t, res.FieldErrors)
}

func TestSecretStrategy_ConfigFile(t *testing.T) {
	resource := loadFixture(t, "secrets/secret2.yaml")

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	conf := decodedData(t, resource)["01-nova.conf"]
	assert.Contains(t, conf, "password = **********")
	assert.Contains(t, conf, "transport_url = **********")
	assert.Contains(t, conf, "connection = **********")
	assert.Contains(t, conf, "auth_type = password")
	for _, secret := range []string{"keystonePass99", "n0vaRabbit", "dbSecret42"} {
		assert.NotContains(t, conf, secret)
	}
	assert.Equal(t, "# no secrets here\n\"os_compute_api:servers:index\": \"rule:admin_or_owner\"\n",
		decodedData(t, resource)["policy.yaml"])
	assert.Equal(t, 1, res.Redacted)
}

func TestSecretStrategy_NoChange(t *testing.T) {
	resource := loadFixture(t, "secrets/nochange.yaml")
	before := decodedData(t, resource)

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	assert.Equal(t, before, decodedData(t, resource))
	assert.Zero(t, res.Redacted)
	assert.Empty(t, res.FieldErrors)
}

func TestSecretStrategy_DecodeErrors(t *testing.T) {
	resource := parseNode(t, `
kind: Secret
data:
  notbase64: "%%%"
  binary: `+base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00})+`
  nested:
    a: b
  missing: null
  ok: `+base64.StdEncoding.EncodeToString([]byte("password = x"))+`
`)

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	data := mappingValue(resource, "data")
	assert.Equal(t, ErrString, mappingValue(data, "notbase64").Value)
	assert.Equal(t, ErrString, mappingValue(data, "binary").Value)
	assert.Equal(t, ErrString, mappingValue(data, "nested").Value)
	assert.True(t, isNull(mappingValue(data, "missing")))

	ok, err := base64.StdEncoding.DecodeString(mappingValue(data, "ok").Value)
	require.NoError(t, err)
	assert.Equal(t, "password = **********", string(ok))

	require.Len(t, res.FieldErrors, 3)
	var decodeErr *DecodeError
	require.True(t, errors.As(res.FieldErrors[0], &decodeErr))
	assert.Equal(t, "notbase64", decodeErr.Key)
	assert.ErrorIs(t, res.FieldErrors[1], ErrInvalidUTF8)
	assert.Equal(t, 1, res.Redacted)
}

func TestSecretStrategy_DataNotMapping(t *testing.T) {
	resource := parseNode(t, "kind: Secret\ndata:\n  - a\n  - b\n")

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	assert.Equal(t, ErrFormat, mappingValue(resource, "data").Value)
	require.Len(t, res.FieldErrors, 1)
	assert.ErrorIs(t, res.FieldErrors[0], ErrNotMapping)
}

func TestSecretStrategy_NullData(t *testing.T) {
	resource := parseNode(t, "kind: Secret\ndata: null\n")

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	assert.True(t, isNull(mappingValue(resource, "data")))
	assert.Zero(t, res.Redacted)
	assert.Empty(t, res.FieldErrors)
}

func TestSecretStrategy_StringData(t *testing.T) {
	resource := parseNode(t, `
kind: Secret
stringData:
  password: plain
  config: "line\nrabbit_password = guest\n"
  user: admin
`)

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	stringData := mappingValue(resource, "stringData")
	assert.Equal(t, MaskString, mappingValue(stringData, "password").Value)
	assert.Equal(t, "line\nrabbit_password = **********\n", mappingValue(stringData, "config").Value)
	assert.Equal(t, "admin", mappingValue(stringData, "user").Value)
	assert.Equal(t, 2, res.Redacted)
}

func TestSecretStrategy_DumpConfig(t *testing.T) {
	files := newMemoryFiles()
	resource := loadFixture(t, "secrets/secret2.yaml")

	res := newTestSecretStrategy(SecretOptions{
		DumpConfig: true,
		SourcePath: "/dump/nova.yaml",
		Files:      files,
	}).Mask(resource)

	require.Contains(t, files.files, "/dump/nova.yaml-01-nova.conf")
	assert.NotContains(t, files.files, "/dump/nova.yaml-policy.yaml")
	assert.Equal(t, decodedData(t, resource)["01-nova.conf"], files.files["/dump/nova.yaml-01-nova.conf"])
	assert.Empty(t, res.FieldErrors)
}

func TestSecretStrategy_DumpConfigWriteError(t *testing.T) {
	files := newMemoryFiles()
	files.err = os.ErrPermission
	resource := loadFixture(t, "secrets/secret2.yaml")

	res := newTestSecretStrategy(SecretOptions{
		DumpConfig: true,
		SourcePath: "/dump/nova.yaml",
		Files:      files,
	}).Mask(resource)

	require.Len(t, res.FieldErrors, 1)
	var writeErr *WriteError
	require.True(t, errors.As(res.FieldErrors[0], &writeErr))
	assert.Equal(t, "/dump/nova.yaml-01-nova.conf", writeErr.Path)
	assert.NotContains(t, decodedData(t, resource)["01-nova.conf"], "keystonePass99")
}

func TestSecretStrategy_Annotation(t *testing.T) {
	resource := loadFixture(t, "secrets/secret3.yaml")

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	data := decodedData(t, resource)
	assert.Equal(t, MaskString, data["default_user"])
	assert.Equal(t, MaskString, data["default_pass"])
	assert.Equal(t, "rabbitmq.openstack.svc", data["host"])

	annotation := lastAppliedNode(resource)
	require.NotNil(t, annotation)

	var applied struct {
		Kind string            `json:"kind"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(annotation.Value), &applied))
	assert.Equal(t, "Secret", applied.Kind)

	password, err := base64.StdEncoding.DecodeString(applied.Data["password"])
	require.NoError(t, err)
	assert.Equal(t, MaskString, string(password))
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("rabbitmq")), applied.Data["host"])
	assert.NotContains(t, annotation.Value, "\n")
	assert.Equal(t, 3, res.Redacted)
}

func TestSecretStrategy_MalformedAnnotation(t *testing.T) {
	resource := parseNode(t, `
kind: Secret
metadata:
  annotations:
    kubectl.kubernetes.io/last-applied-configuration: '{"data": {"password": "Zm9v"'
    other: keep
data:
  host: aG9zdA==
`)

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	annotations := mappingValue(mappingValue(resource, "metadata"), "annotations")
	assert.Equal(t, MaskString, mappingValue(annotations, LastAppliedConfigAnnotation).Value)
	assert.Equal(t, "keep", mappingValue(annotations, "other").Value)

	require.Len(t, res.FieldErrors, 1)
	var parseErr *AnnotationParseError
	require.True(t, errors.As(res.FieldErrors[0], &parseErr))
	assert.ErrorIs(t, parseErr, ErrInvalidJSON)
}

func TestSecretStrategy_AnnotationUnchanged(t *testing.T) {
	raw := `{"kind":"Secret", "data": {"host": "aG9zdA=="}}`
	resource := parseNode(t, "kind: Secret\nmetadata:\n  annotations:\n    kubectl.kubernetes.io/last-applied-configuration: '"+raw+"'\n")

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	assert.Equal(t, raw, lastAppliedNode(resource).Value)
	assert.Zero(t, res.Redacted)
}

func TestSecretStrategy_AnnotationNotObject(t *testing.T) {
	resource := parseNode(t, "kind: Secret\nmetadata:\n  annotations:\n    kubectl.kubernetes.io/last-applied-configuration: '[1, 2]'\n")

	res := newTestSecretStrategy(SecretOptions{}).Mask(resource)

	assert.Equal(t, MaskString, lastAppliedNode(resource).Value)
	require.Len(t, res.FieldErrors, 1)
	assert.ErrorIs(t, res.FieldErrors[0], ErrNotMapping)
}
