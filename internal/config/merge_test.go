package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLayers_ArraysConcatenate(t *testing.T) {
	tests := []struct {
		name     string
		base     []any
		override any
		want     []any
	}{
		{name: "both arrays", base: []any{"a", "b"}, override: []any{"c"}, want: []any{"a", "b", "c"}},
		{name: "duplicates kept", base: []any{"a", "b"}, override: []any{"b", "a"}, want: []any{"a", "b", "b", "a"}},
		{name: "typed slice", base: []any{"x"}, override: []string{"y", "z"}, want: []any{"x", "y", "z"}},
		{name: "empty override", base: []any{"x"}, override: []any{}, want: []any{"x"}},
		{name: "scalar appended", base: []any{"x"}, override: "y", want: []any{"x", "y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := MergeLayers(
				map[string]any{"list": tt.base},
				map[string]any{"list": tt.override},
			)
			assert.Equal(t, tt.want, merged["list"])
		})
	}
}

func TestMergeLayers_ThreeLayersInOrder(t *testing.T) {
	defaults := map[string]any{"paths": []any{"d"}, "sass": "default.scss", "source": "src"}
	user := map[string]any{"paths": []any{"u"}, "sass": "user.scss"}
	opts := map[string]any{"paths": []any{"o"}, "sass": "opt.scss"}

	merged := MergeLayers(defaults, user, opts)

	assert.Equal(t, []any{"d", "u", "o"}, merged["paths"])
	assert.Equal(t, "opt.scss", merged["sass"])
	assert.Equal(t, "src", merged["source"])
}

func TestMergeLayers_NestedMapsMerge(t *testing.T) {
	defaults := map[string]any{"notify": map[string]any{"terminal": true, "nats": map[string]any{"subject": "a"}}}
	user := map[string]any{"notify": map[string]any{"nats": map[string]any{"url": "nats://x"}}}

	merged := MergeLayers(defaults, user)

	notify := merged["notify"].(map[string]any)
	assert.Equal(t, true, notify["terminal"])
	assert.Equal(t, map[string]any{"subject": "a", "url": "nats://x"}, notify["nats"])
}

func TestMergeLayers_SkipsMissingSources(t *testing.T) {
	defaults := map[string]any{"sass": "a.scss", "list": []any{"a"}}

	merged := MergeLayers(defaults, nil, map[string]any{"sass": nil})

	assert.Equal(t, defaults, merged)
}

func TestMergeLayers_IsPure(t *testing.T) {
	defaults := map[string]any{"list": []any{"a"}, "nested": map[string]any{"k": "v"}}
	user := map[string]any{"list": []any{"b"}, "nested": map[string]any{"k": "w"}}

	first := MergeLayers(defaults, user)
	second := MergeLayers(defaults, user)

	assert.Equal(t, first, second)
	assert.Equal(t, []any{"a"}, defaults["list"])
	assert.Equal(t, map[string]any{"k": "v"}, defaults["nested"])

	first["list"].([]any)[0] = "mutated"
	assert.Equal(t, []any{"a"}, defaults["list"])
}

func TestMergeLayers_ScalarReplacesMapWhenTypesDiffer(t *testing.T) {
	merged := MergeLayers(map[string]any{"k": map[string]any{"a": 1}}, map[string]any{"k": "flat"})
	require.Equal(t, "flat", merged["k"])
}
