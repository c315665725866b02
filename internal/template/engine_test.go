package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	e := New()
	tests := []struct {
		name    string
		tmpl    string
		vars    map[string]any
		want    string
		wantErr bool
	}{
		{"plain", "no placeholders", nil, "no placeholders", false},
		{"spaced", "route {{ route }} down", map[string]any{"route": "chat"}, "route chat down", false},
		{"dotted and tight", "{{.a}}/{{ .b }}", map[string]any{"a": 1, "b": true}, "1/true", false},
		{"string slice", "waiting for {{ services }}", map[string]any{"services": []string{"a", "b"}}, "waiting for a, b", false},
		{"missing", "{{ a }} {{ b }}", map[string]any{"a": "x"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Render(tt.tmpl, tt.vars)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplace_Nested(t *testing.T) {
	e := New()
	payload := map[string]any{
		"content": "{{ route }} is unavailable",
		"items":   []any{"{{ route }}", 42},
		"count":   3,
	}

	got, err := e.Replace(payload, map[string]any{"route": "tasks"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"content": "tasks is unavailable",
		"items":   []any{"tasks", 42},
		"count":   3,
	}, got)
	assert.Equal(t, "{{ route }} is unavailable", payload["content"], "input is not modified")

	_, err = e.Replace(payload, nil)
	assert.Error(t, err)
}

func TestVariablesAndValidate(t *testing.T) {
	e := New()
	value := map[string]any{"a": "{{ x }} {{ y }}", "b": []any{"{{ x }}"}}

	assert.Equal(t, []string{"x", "y"}, e.Variables(value))
	assert.NoError(t, e.Validate(value, map[string]any{"x": 1, "y": 2}))
	assert.EqualError(t, e.Validate(value, map[string]any{"x": 1}), "missing required variables: y")
}

func TestMerge(t *testing.T) {
	got := Merge(map[string]any{"a": 1, "b": 1}, nil, map[string]any{"b": 2})
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, got)
}
