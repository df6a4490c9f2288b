package book

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/freeze"
)

func doc(path string) engine.Document { return engine.Document{Path: path} }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte(content), 0o600))
	return root
}

func TestLoad(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		root := writeConfig(t, `
title: "Systems Field Guide"
author: "Ops Team"
index: index.md
freeze: always
formats:
  html:
    toc: true
  single-html: {}
items:
  - chapter: intro.md
  - part: "Appendices"
  - appendix: apx-a.md
`)
		cfg, err := Load(root)
		require.NoError(t, err)
		require.Equal(t, "Systems Field Guide", cfg.Title)
		require.Equal(t, freeze.PolicyAlways, cfg.Policy())
		require.Len(t, cfg.Items, 3)
		require.Equal(t, KindChapter, cfg.Items[0].Kind)
		require.Equal(t, "intro.md", cfg.Items[0].Document.Path)
		require.Equal(t, KindPart, cfg.Items[1].Kind)
		require.Equal(t, "Appendices", cfg.Items[1].Text)
		require.Equal(t, KindAppendix, cfg.Items[2].Kind)
	})

	t.Run("defaults applied", func(t *testing.T) {
		root := writeConfig(t, `
items:
  - chapter: only.md
`)
		cfg, err := Load(root)
		require.NoError(t, err)
		require.Equal(t, "_book", cfg.OutputDir)
		require.Equal(t, freeze.PolicyAuto, cfg.Policy())
		require.Contains(t, cfg.Formats, "html")
	})

	t.Run("no items rejected", func(t *testing.T) {
		root := writeConfig(t, `title: Empty`)
		_, err := Load(root)
		require.Error(t, err)
		require.Contains(t, err.Error(), "items")
	})

	t.Run("unknown item kind rejected", func(t *testing.T) {
		root := writeConfig(t, `
items:
  - interlude: x.md
`)
		_, err := Load(root)
		require.Error(t, err)
	})

	t.Run("invalid freeze policy rejected", func(t *testing.T) {
		root := writeConfig(t, `
freeze: sometimes
items:
  - chapter: a.md
`)
		_, err := Load(root)
		require.Error(t, err)
	})

	t.Run("absolute chapter path rejected", func(t *testing.T) {
		root := writeConfig(t, `
items:
  - chapter: /etc/passwd
`)
		_, err := Load(root)
		require.Error(t, err)
	})

	t.Run("part without text rejected", func(t *testing.T) {
		root := writeConfig(t, `
items:
  - part: "  "
`)
		_, err := Load(root)
		require.Error(t, err)
	})
}

func TestDocuments(t *testing.T) {
	cfg := &Config{
		Index: "index.md",
		Items: []Item{
			{Kind: KindChapter, Document: doc("intro.md")},
			{Kind: KindPart, Text: "Appendices"},
			{Kind: KindAppendix, Document: doc("apx-a.md")},
		},
	}
	docs := cfg.Documents()
	require.Len(t, docs, 3)
	require.Equal(t, "index.md", docs[0].Path)
	require.Equal(t, "intro.md", docs[1].Path)
	require.Equal(t, "apx-a.md", docs[2].Path)
}

func TestDocumentsIndexListedOnce(t *testing.T) {
	cfg := &Config{
		Index: "index.md",
		Items: []Item{
			{Kind: KindChapter, Document: doc("index.md")},
			{Kind: KindChapter, Document: doc("intro.md")},
		},
	}
	require.Len(t, cfg.Documents(), 2)
}

func TestTargetFormats(t *testing.T) {
	cfg := &Config{Formats: map[string]map[string]any{
		"single-html": {"css": "style.css"},
		"html":        {"toc": true},
	}}
	formats := cfg.TargetFormats()
	require.Len(t, formats, 2)
	// sorted by name for determinism
	require.Equal(t, "html", formats[0].Name)
	require.Equal(t, "single-html", formats[1].Name)

	// returned options are independent copies
	formats[0].Options["toc"] = false
	require.Equal(t, true, cfg.Formats["html"]["toc"])
}

func TestOutputBaseName(t *testing.T) {
	cfg := &Config{Title: "Systems Field Guide"}
	require.Equal(t, "systems-field-guide", cfg.OutputBaseName("/tmp/whatever"))

	cfg = &Config{}
	require.Equal(t, "my-book", cfg.OutputBaseName("/projects/My Book"))
}
