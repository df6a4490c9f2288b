package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/markdown"
)

func testResult(path, body string) *engine.ExecutionResult {
	return &engine.ExecutionResult{
		Document: engine.Document{Path: path},
		Format:   engine.TargetFormat{Name: "html"},
		Markdown: engine.MappedText{Text: body, Source: path},
	}
}

func TestRenderOneMirrorsSourceTree(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_book")
	r := NewHTMLRenderer(out)

	rf, err := r.RenderOne(context.Background(), root, testResult("guides/setup.md", "# Setup\n\nSteps.\n"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(out, "guides", "setup.html"), rf.Path)
	require.Equal(t, "html", rf.Format)

	page, err := os.ReadFile(rf.Path)
	require.NoError(t, err)
	require.Contains(t, string(page), "<h1>Setup</h1>")
	require.Contains(t, string(page), "Steps.")
}

func TestRenderPageTitle(t *testing.T) {
	res := testResult("intro.md", "# Intro\n")
	res.Format.Options = map[string]any{"title": "My <Book>"}

	page, err := renderPage(res)
	require.NoError(t, err)
	require.Contains(t, string(page), "<title>My &lt;Book&gt;</title>")

	// falls back to the document path without an explicit title
	page, err = renderPage(testResult("intro.md", "# Intro\n"))
	require.NoError(t, err)
	require.Contains(t, string(page), "<title>intro.md</title>")
}

func TestRenderPageStripsMarkers(t *testing.T) {
	body := markdown.EncodeMarker(markdown.Marker{Kind: "chapter", Number: 1}) + "\n\n# Intro\n"
	page, err := renderPage(testResult("intro.md", body))
	require.NoError(t, err)
	require.NotContains(t, string(page), "bookbinder:")
	require.Contains(t, string(page), "<h1>Intro</h1>")
}

func TestRenderPageRestoresPreservedBlocks(t *testing.T) {
	res := testResult("raw.md", "before\n\npreserve-123\n\nafter\n")
	res.Preserved = map[string]string{"preserve-123": "<div class=\"raw\">kept</div>"}

	page, err := renderPage(res)
	require.NoError(t, err)
	require.Contains(t, string(page), "<div class=\"raw\">kept</div>")
	require.NotContains(t, string(page), "preserve-123")
}

func TestRenderPageInjectsDependenciesOnce(t *testing.T) {
	res := testResult("intro.md", "# Intro\n")
	res.Dependencies = []engine.Dependency{
		{Name: "book.css", Kind: engine.DependencyStylesheet, Href: "assets/book.css"},
		{Name: "chart.js", Kind: engine.DependencyScript, Href: "assets/chart.js"},
		{Name: "book.css", Kind: engine.DependencyStylesheet, Href: "assets/book.css"},
	}

	page, err := renderPage(res)
	require.NoError(t, err)
	html := string(page)
	require.Equal(t, 1, strings.Count(html, `href="assets/book.css"`))
	require.Equal(t, 1, strings.Count(html, `src="assets/chart.js"`))
	require.Less(t, strings.Index(html, "book.css"), strings.Index(html, "chart.js"))
}

func TestRenderMergedUsesOutputName(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_book")
	r := NewSingleHTMLRenderer(out)

	res := testResult("_book.yaml", "# Field Guide\n")
	res.OutputName = "field-guide.html"

	rf, err := r.RenderMerged(context.Background(), root, res)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(out, "field-guide.html"), rf.Path)
	require.FileExists(t, rf.Path)

	res.OutputName = ""
	rf, err = r.RenderMerged(context.Background(), root, res)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(out, "book.html"), rf.Path)
}

func TestRenderCopiesResources(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "img"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "img", "fig.png"), []byte("png"), 0o600))

	out := filepath.Join(root, "_book")
	res := testResult("intro.md", "![fig](img/fig.png)\n")
	res.Resources = []string{"img/fig.png"}

	_, err := NewHTMLRenderer(out).RenderOne(context.Background(), root, res)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(out, "img", "fig.png"))
}

func TestForRegistry(t *testing.T) {
	r, err := For(engine.TargetFormat{Name: "html"}, "/tmp/out")
	require.NoError(t, err)
	_, ok := r.(PerDocumentRenderer)
	require.True(t, ok)

	r, err = For(engine.TargetFormat{Name: "single-html"}, "/tmp/out")
	require.NoError(t, err)
	_, ok = r.(MergedRenderer)
	require.True(t, ok)

	_, err = For(engine.TargetFormat{Name: "pdf"}, "/tmp/out")
	require.Error(t, err)
}

func TestRenderOneCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTMLRenderer(t.TempDir()).RenderOne(ctx, t.TempDir(), testResult("a.md", "# A"))
	require.ErrorIs(t, err, context.Canceled)
}
