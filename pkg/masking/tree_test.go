package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parseNode(t *testing.T, src string) *yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return unwrapDocument(&doc)
}

func TestWalk_Keys(t *testing.T) {
	root := parseNode(t, `
a: 1
b:
  c: two
  d:
    - three
    - e: four
`)

	var visited []string
	Walk(root, func(key string, node *yaml.Node) bool {
		if node.Kind == yaml.ScalarNode {
			visited = append(visited, key+"="+node.Value)
		}
		return true
	})

	assert.Equal(t, []string{"a=1", "c=two", "=three", "e=four"}, visited)
}

func TestWalk_SkipChildren(t *testing.T) {
	root := parseNode(t, `
keep: yes
skip:
  hidden: value
`)

	var visited []string
	Walk(root, func(key string, node *yaml.Node) bool {
		visited = append(visited, key)
		return key != "skip"
	})

	assert.NotContains(t, visited, "hidden")
	assert.Contains(t, visited, "skip")
}

func TestWalk_AliasVisitedUnderOwnKey(t *testing.T) {
	root := parseNode(t, `
base: &anchor
  password: x
copy: *anchor
token: *anchor
`)

	var keys []string
	count := 0
	Walk(root, func(key string, node *yaml.Node) bool {
		if node.Kind == yaml.MappingNode && node.Anchor == "anchor" {
			keys = append(keys, key)
		}
		if key == "password" {
			count++
		}
		return true
	})

	assert.Equal(t, []string{"base", "copy", "token"}, keys)
	assert.Equal(t, 3, count)
}

func TestWalk_RecursiveAlias(t *testing.T) {
	root := parseNode(t, "a: &loop\n  b: *loop\n")

	visits := 0
	require.NotPanics(t, func() {
		Walk(root, func(string, *yaml.Node) bool {
			visits++
			return true
		})
	})
	assert.Equal(t, 3, visits)
}

func TestWalk_Nil(t *testing.T) {
	assert.NotPanics(t, func() {
		Walk(nil, func(string, *yaml.Node) bool { return true })
	})
}

func TestTreeHelpers(t *testing.T) {
	root := parseNode(t, `
kind: Secret
count: 3
empty: null
text: "hello"
`)

	assert.Equal(t, "Secret", resourceKind(root))
	assert.True(t, isString(mappingValue(root, "text")))
	assert.False(t, isString(mappingValue(root, "count")))
	assert.True(t, isNull(mappingValue(root, "empty")))
	assert.True(t, isNull(mappingValue(root, "missing")))
	assert.Nil(t, mappingValue(nil, "kind"))
	assert.Empty(t, resourceKind(mappingValue(root, "text")))
}

func TestSetString(t *testing.T) {
	node := parseNode(t, "value: |\n  a\n  b\n")
	value := mappingValue(node, "value")
	require.Equal(t, yaml.LiteralStyle, value.Style)

	setString(value, "single")
	assert.Equal(t, "single", value.Value)
	assert.Equal(t, "!!str", value.Tag)
	assert.Zero(t, value.Style&yaml.LiteralStyle)

	mapping := mappingValue(parseNode(t, "m:\n  k: v\n"), "m")
	setString(mapping, MaskString)
	assert.Equal(t, yaml.ScalarNode, mapping.Kind)
	assert.Nil(t, mapping.Content)
}
