package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o750))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o600))
}

func TestExecuteStripsFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "intro.md", "---\ntitle: Intro\n---\n# Hello\n\nBody.\n")

	eng := NewMarkdownEngine(false)
	res, err := eng.Execute(context.Background(), root, Document{Path: "intro.md"}, TargetFormat{Name: "html"})
	require.NoError(t, err)

	require.Equal(t, "# Hello\n\nBody.\n", res.Markdown.Text)
	require.Equal(t, "intro.md", res.Markdown.Source)
	require.Equal(t, 3, res.Markdown.LineOffset)
	require.DirExists(t, res.IntermediateDir)

	body, err := os.ReadFile(filepath.Join(res.IntermediateDir, "body.md"))
	require.NoError(t, err)
	require.Equal(t, res.Markdown.Text, string(body))
}

func TestExecutePreserveBlocks(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "raw.md", "before\n```{=preserve}\n<div class=\"raw\">kept</div>\n```\nafter\n")

	eng := NewMarkdownEngine(false)
	res, err := eng.Execute(context.Background(), root, Document{Path: "raw.md"}, TargetFormat{Name: "html"})
	require.NoError(t, err)

	require.Len(t, res.Preserved, 1)
	require.NotContains(t, res.Markdown.Text, "<div class=\"raw\">")
	for token, block := range res.Preserved {
		require.True(t, strings.HasPrefix(token, "preserve-"))
		require.Contains(t, res.Markdown.Text, token)
		require.Equal(t, "<div class=\"raw\">kept</div>", block)
	}
}

func TestExecuteUnterminatedPreserveFenceKeptLiteral(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "raw.md", "```{=preserve}\nnever closed\n")

	eng := NewMarkdownEngine(false)
	res, err := eng.Execute(context.Background(), root, Document{Path: "raw.md"}, TargetFormat{Name: "html"})
	require.NoError(t, err)
	require.Empty(t, res.Preserved)
	require.Contains(t, res.Markdown.Text, "```{=preserve}")
}

func TestExecuteCollectsResources(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "guides/intro.md", "![fig](img/fig.png)\n![dup](img/fig.png)\n![missing](img/none.png)\n![abs](/etc/x.png)\n![url](https://example.com/x.png)\n")
	writeDoc(t, root, "guides/img/fig.png", "png-bytes")

	eng := NewMarkdownEngine(false)
	res, err := eng.Execute(context.Background(), root, Document{Path: "guides/intro.md"}, TargetFormat{Name: "html"})
	require.NoError(t, err)
	require.Equal(t, []string{"guides/img/fig.png"}, res.Resources)
}

func TestExecuteCollectsFiltersAndDependencies(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "intro.md", `---
filters:
  - smartquotes
styles:
  - assets/book.css
scripts:
  - assets/book.js
---
body
`)

	eng := NewMarkdownEngine(false)
	format := TargetFormat{Name: "html", Options: map[string]any{"filters": []any{"toc"}}}
	res, err := eng.Execute(context.Background(), root, Document{Path: "intro.md"}, format)
	require.NoError(t, err)

	require.Equal(t, []string{"smartquotes", "toc"}, res.Filters)
	require.Equal(t, []Dependency{
		{Name: "book.css", Kind: DependencyStylesheet, Href: "assets/book.css"},
		{Name: "book.js", Kind: DependencyScript, Href: "assets/book.js"},
	}, res.Dependencies)
}

func TestExecuteMissingDocument(t *testing.T) {
	eng := NewMarkdownEngine(false)
	_, err := eng.Execute(context.Background(), t.TempDir(), Document{Path: "missing.md"}, TargetFormat{Name: "html"})
	require.Error(t, err)
}

func TestExecuteCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := NewMarkdownEngine(false)
	_, err := eng.Execute(ctx, t.TempDir(), Document{Path: "intro.md"}, TargetFormat{Name: "html"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecuteKeepIntermediates(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "intro.md", "# Hello\n")

	res, err := NewMarkdownEngine(true).Execute(context.Background(), root, Document{Path: "intro.md"}, TargetFormat{Name: "html"})
	require.NoError(t, err)
	require.True(t, res.KeepIntermediates)
}
