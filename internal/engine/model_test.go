package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocumentSlug(t *testing.T) {
	require.Equal(t, "intro", Document{Path: "intro.md"}.Slug())
	require.Equal(t, "guides--setup", Document{Path: "guides/setup.md"}.Slug())
	require.Equal(t, "my-notes", Document{Path: "my notes.md"}.Slug())
}

func TestTargetFormatClone(t *testing.T) {
	f := TargetFormat{Name: "html", Options: map[string]any{
		"toc":    true,
		"nested": map[string]any{"a": 1},
		"list":   []any{"x"},
	}}
	c := f.Clone()
	c.Options["toc"] = false
	c.Options["nested"].(map[string]any)["a"] = 2
	c.Options["list"].([]any)[0] = "y"

	require.Equal(t, true, f.Options["toc"])
	require.Equal(t, 1, f.Options["nested"].(map[string]any)["a"])
	require.Equal(t, "x", f.Options["list"].([]any)[0])
}

func TestTargetFormatOptions(t *testing.T) {
	f := TargetFormat{Name: "html", Options: map[string]any{"title": "Book", "toc": true, "bad": 7}}
	require.Equal(t, "Book", f.StringOption("title", "fallback"))
	require.Equal(t, "fallback", f.StringOption("missing", "fallback"))
	require.Equal(t, "fallback", f.StringOption("bad", "fallback"))
	require.True(t, f.BoolOption("toc", false))
	require.False(t, f.BoolOption("missing", false))
}

func TestTargetFormatExtension(t *testing.T) {
	require.Equal(t, ".html", TargetFormat{Name: "html"}.Extension())
	require.Equal(t, ".html", TargetFormat{Name: "single-html"}.Extension())
	require.Equal(t, ".epub", TargetFormat{Name: "epub"}.Extension())
	require.Equal(t, ".htm", TargetFormat{Name: "html", Options: map[string]any{"output-ext": "htm"}}.Extension())
	require.Equal(t, ".htm", TargetFormat{Name: "html", Options: map[string]any{"output-ext": ".htm"}}.Extension())
}

func TestExecutionResultClone(t *testing.T) {
	r := &ExecutionResult{
		Document:  Document{Path: "intro.md"},
		Format:    TargetFormat{Name: "html", Options: map[string]any{"toc": true}},
		Markdown:  MappedText{Text: "body"},
		Resources: []string{"img/fig.png"},
		Preserved: map[string]string{"tok": "block"},
	}
	c := r.Clone()
	c.Resources[0] = "changed"
	c.Preserved["tok"] = "changed"
	c.Format.Options["toc"] = false

	require.Equal(t, "img/fig.png", r.Resources[0])
	require.Equal(t, "block", r.Preserved["tok"])
	require.Equal(t, true, r.Format.Options["toc"])

	var nilResult *ExecutionResult
	require.Nil(t, nilResult.Clone())
}
