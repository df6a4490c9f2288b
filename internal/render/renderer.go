// Package render defines the external renderer boundary. A format's
// renderer carries exactly one capability — per-document or merged — and
// the orchestrator dispatches on which one it finds, never on duck-typed
// method probing beyond these two interfaces.
package render

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
)

// RenderedFile is the terminal artifact of a render: final path plus the
// format it was produced for.
type RenderedFile struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// Renderer is the common surface of both capabilities.
type Renderer interface {
	FormatName() string
}

// PerDocumentRenderer renders one finalized ExecutionResult into one
// output artifact. Formats with this capability emit one file per chapter.
type PerDocumentRenderer interface {
	Renderer
	RenderOne(ctx context.Context, root string, res *engine.ExecutionResult) (RenderedFile, error)
}

// MergedRenderer renders a single synthetic ExecutionResult (the merged
// book) into one output artifact. Used by formats that cannot be split.
type MergedRenderer interface {
	Renderer
	RenderMerged(ctx context.Context, root string, res *engine.ExecutionResult) (RenderedFile, error)
}

// For returns the built-in renderer for a format.
func For(format engine.TargetFormat, outputDir string) (Renderer, error) {
	switch format.Name {
	case "html":
		return NewHTMLRenderer(outputDir), nil
	case "single-html":
		return NewSingleHTMLRenderer(outputDir), nil
	default:
		return nil, fmt.Errorf("no renderer registered for format %q", format.Name)
	}
}
