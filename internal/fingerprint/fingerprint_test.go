package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
)

func TestFromContentDeterministic(t *testing.T) {
	format := engine.TargetFormat{Name: "html", Options: map[string]any{"toc": true, "css": "style.css"}}

	a, err := FromContent([]byte("# Hello"), format)
	require.NoError(t, err)
	b, err := FromContent([]byte("# Hello"), format)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, string(a), 64)
}

func TestFromContentSensitivity(t *testing.T) {
	base := engine.TargetFormat{Name: "html", Options: map[string]any{"toc": true}}
	fp, err := FromContent([]byte("# Hello"), base)
	require.NoError(t, err)

	t.Run("content change", func(t *testing.T) {
		other, err := FromContent([]byte("# Hello!"), base)
		require.NoError(t, err)
		require.NotEqual(t, fp, other)
	})

	t.Run("format name change", func(t *testing.T) {
		other, err := FromContent([]byte("# Hello"), engine.TargetFormat{Name: "single-html", Options: map[string]any{"toc": true}})
		require.NoError(t, err)
		require.NotEqual(t, fp, other)
	})

	t.Run("option change", func(t *testing.T) {
		other, err := FromContent([]byte("# Hello"), engine.TargetFormat{Name: "html", Options: map[string]any{"toc": false}})
		require.NoError(t, err)
		require.NotEqual(t, fp, other)
	})
}

func TestPresentationOptionsExcluded(t *testing.T) {
	plain := engine.TargetFormat{Name: "html", Options: map[string]any{"toc": true}}
	noisy := engine.TargetFormat{Name: "html", Options: map[string]any{
		"toc":                true,
		"keep-intermediates": true,
		"log-level":          "debug",
		"verbose":            true,
		"quiet":              false,
	}}

	a, err := FromContent([]byte("body"), plain)
	require.NoError(t, err)
	b, err := FromContent([]byte("body"), noisy)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestCompute(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "intro.md"), []byte("# Intro"), 0o600))

	doc := engine.Document{Path: "intro.md"}
	format := engine.TargetFormat{Name: "html"}

	fromFile, err := Compute(root, doc, format)
	require.NoError(t, err)
	fromBytes, err := FromContent([]byte("# Intro"), format)
	require.NoError(t, err)
	require.Equal(t, fromBytes, fromFile)

	_, err = Compute(root, engine.Document{Path: "missing.md"}, format)
	require.Error(t, err)
}
