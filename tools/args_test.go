package tools

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/notebookmcp/jupyter"
)

func TestStringArg(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		rule    stringRule
		want    string
		present bool
		wantErr string
	}{
		{"missing optional", map[string]any{}, stringRule{}, "", false, ""},
		{"null optional", map[string]any{"v": nil}, stringRule{}, "", false, ""},
		{"missing required", map[string]any{}, stringRule{required: true}, "", false, "v is required"},
		{"empty required", map[string]any{"v": ""}, stringRule{required: true, allowEmpty: true}, "", false, "v is required"},
		{"blank", map[string]any{"v": "  "}, stringRule{}, "", false, "v is empty"},
		{"blank allowed", map[string]any{"v": "  "}, stringRule{allowEmpty: true}, "  ", true, ""},
		{"wrong type", map[string]any{"v": 3.0}, stringRule{}, "", false, "v must be a string"},
		{"too long", map[string]any{"v": "abcd"}, stringRule{maxLen: 3}, "", false, "max 3 characters"},
		{"runes not bytes", map[string]any{"v": "ééé"}, stringRule{maxLen: 3}, "ééé", true, ""},
		{"nul", map[string]any{"v": "a\x00"}, stringRule{}, "", false, "invalid characters"},
		{"ok", map[string]any{"v": "x"}, stringRule{required: true}, "x", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, present, err := stringArg(tt.args, "v", tt.rule)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, jupyter.ErrValidation))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.present, present)
		})
	}
}

func TestIntArg(t *testing.T) {
	v, ok, err := intArg(map[string]any{"n": float64(7)}, "n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	v, ok, err = intArg(map[string]any{"n": 3}, "n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok, err = intArg(map[string]any{}, "n")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, bad := range []any{1.25, "4", true, float64(1 << 40)} {
		_, _, err := intArg(map[string]any{"n": bad}, "n")
		assert.ErrorIs(t, err, jupyter.ErrValidation, "%v", bad)
	}
}

func TestBoolArg(t *testing.T) {
	b, err := boolArg(map[string]any{}, "b", true)
	require.NoError(t, err)
	assert.True(t, b)

	b, err = boolArg(map[string]any{"b": false}, "b", true)
	require.NoError(t, err)
	assert.False(t, b)

	_, err = boolArg(map[string]any{"b": "yes"}, "b", true)
	assert.ErrorIs(t, err, jupyter.ErrValidation)
}

func TestValidateNotebookPath(t *testing.T) {
	for _, ok := range []string{"a.ipynb", "dir/sub/a.ipynb", "café.ipynb"} {
		assert.NoError(t, validateNotebookPath(ok), ok)
	}
	for _, bad := range []string{
		"", " ", "../a.ipynb", "a/../b.ipynb", "/abs.ipynb", "a.py", "a\x00.ipynb",
		strings.Repeat("a", maxNotebookPath) + ".ipynb",
	} {
		assert.ErrorIs(t, validateNotebookPath(bad), jupyter.ErrValidation, bad)
	}
}

func TestNormalizeListPath(t *testing.T) {
	for in, want := range map[string]string{"": "/", "/": "/", "///": "/", "/data": "data", "data/raw": "data/raw"} {
		got, err := normalizeListPath(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := normalizeListPath("a/../../etc")
	assert.ErrorIs(t, err, jupyter.ErrValidation)
}

func TestNotebookFullPath(t *testing.T) {
	assert.Equal(t, "a.ipynb", notebookFullPath("", "a"))
	assert.Equal(t, "a.ipynb", notebookFullPath("/", "a.ipynb"))
	assert.Equal(t, "x/y/a.ipynb", notebookFullPath("/x/y/", "a"))
}

func TestPathsAreNFC(t *testing.T) {
	got, err := normalizeListPath("/cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", got)
	assert.Equal(t, "caf\u00e9/a.ipynb", notebookFullPath("cafe\u0301", "a"))
}
