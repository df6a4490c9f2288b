package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/markdown"
)

// HTMLRenderer is the built-in per-document renderer: each chapter becomes
// its own HTML page under the output directory, mirroring the source tree.
type HTMLRenderer struct {
	outputDir string
}

// NewHTMLRenderer constructs the per-document HTML renderer.
func NewHTMLRenderer(outputDir string) *HTMLRenderer {
	return &HTMLRenderer{outputDir: outputDir}
}

func (r *HTMLRenderer) FormatName() string { return "html" }

// RenderOne converts one result to an HTML page.
func (r *HTMLRenderer) RenderOne(ctx context.Context, root string, res *engine.ExecutionResult) (RenderedFile, error) {
	if err := ctx.Err(); err != nil {
		return RenderedFile{}, err
	}

	rel := strings.TrimSuffix(res.Document.Path, filepath.Ext(res.Document.Path)) + ".html"
	outPath := filepath.Join(r.outputDir, filepath.FromSlash(rel))

	page, err := renderPage(res)
	if err != nil {
		return RenderedFile{}, err
	}
	if err := writeArtifact(outPath, page); err != nil {
		return RenderedFile{}, err
	}
	if err := copyResources(root, r.outputDir, res.Resources); err != nil {
		return RenderedFile{}, err
	}
	return RenderedFile{Path: outPath, Format: r.FormatName()}, nil
}

// SingleHTMLRenderer is the built-in merged renderer: the whole book
// becomes one HTML file.
type SingleHTMLRenderer struct {
	outputDir string
}

// NewSingleHTMLRenderer constructs the merged HTML renderer.
func NewSingleHTMLRenderer(outputDir string) *SingleHTMLRenderer {
	return &SingleHTMLRenderer{outputDir: outputDir}
}

func (r *SingleHTMLRenderer) FormatName() string { return "single-html" }

// RenderMerged converts the synthetic merged result to a single HTML file.
func (r *SingleHTMLRenderer) RenderMerged(ctx context.Context, root string, res *engine.ExecutionResult) (RenderedFile, error) {
	if err := ctx.Err(); err != nil {
		return RenderedFile{}, err
	}

	name := res.OutputName
	if name == "" {
		name = "book.html"
	}
	outPath := filepath.Join(r.outputDir, name)

	page, err := renderPage(res)
	if err != nil {
		return RenderedFile{}, err
	}
	if err := writeArtifact(outPath, page); err != nil {
		return RenderedFile{}, err
	}
	if err := copyResources(root, r.outputDir, res.Resources); err != nil {
		return RenderedFile{}, err
	}
	return RenderedFile{Path: outPath, Format: r.FormatName()}, nil
}

// renderPage converts result markdown to a standalone HTML page with the
// result's dependencies injected (idempotent by name) and preserved blocks
// reinstated verbatim.
func renderPage(res *engine.ExecutionResult) ([]byte, error) {
	source := markdown.StripMarkers(res.Markdown.Text)

	var body bytes.Buffer
	if err := goldmark.Convert([]byte(source), &body); err != nil {
		return nil, fmt.Errorf("convert markdown for %s: %w", res.Document.Path, err)
	}

	htmlBody := body.String()
	for token, block := range res.Preserved {
		htmlBody = strings.ReplaceAll(htmlBody, token, block)
	}

	title := res.Format.StringOption("title", res.Document.Path)

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title))
	for _, dep := range dedupeDependencies(res.Dependencies) {
		switch dep.Kind {
		case engine.DependencyStylesheet:
			fmt.Fprintf(&page, "<link rel=%q href=%q>\n", "stylesheet", dep.Href)
		case engine.DependencyScript:
			fmt.Fprintf(&page, "<script src=%q></script>\n", dep.Href)
		}
	}
	page.WriteString("</head>\n<body>\n")
	page.WriteString(htmlBody)
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// dedupeDependencies keeps the first occurrence per name, preserving order.
// Earlier chapters' dependencies load first.
func dedupeDependencies(deps []engine.Dependency) []engine.Dependency {
	seen := map[string]struct{}{}
	out := make([]engine.Dependency, 0, len(deps))
	for _, d := range deps {
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		out = append(out, d)
	}
	return out
}

func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

func copyResources(root, outputDir string, resources []string) error {
	for _, rel := range resources {
		src := filepath.Join(root, filepath.FromSlash(rel))
		dst := filepath.Join(outputDir, filepath.FromSlash(rel))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("copy resource %s: %w", rel, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
