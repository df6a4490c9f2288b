package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bookbinder/internal/logfields"
	"git.home.luguber.info/inful/bookbinder/internal/markdown"
)

// preserveFenceOpen marks a fenced block whose content must survive verbatim
// through all downstream processing. The block body is swapped for a
// generated token and carried in ExecutionResult.Preserved.
const preserveFenceOpen = "```{=preserve}"

// MarkdownEngine is the built-in passthrough execution adapter: it does not
// execute embedded code, it normalizes plain markdown sources into
// ExecutionResults (frontmatter stripped, resources listed, preserve blocks
// tokenized). Language kernels plug in behind the same Adapter interface.
type MarkdownEngine struct {
	// Keep forces retention of intermediate working directories.
	Keep   bool
	logger *slog.Logger
}

// NewMarkdownEngine constructs the passthrough engine.
func NewMarkdownEngine(keepIntermediates bool) *MarkdownEngine {
	return &MarkdownEngine{Keep: keepIntermediates, logger: slog.Default()}
}

// Execute reads the source document and produces its ExecutionResult.
// Unreadable input is surfaced as an I/O error, never swallowed.
func (e *MarkdownEngine) Execute(ctx context.Context, root string, doc Document, format TargetFormat) (*ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(doc.AbsPath(root))
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", doc.Path, err)
	}

	fm, body, had, err := splitFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", doc.Path, err)
	}
	fields, err := parseFrontmatter(fm)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter of %s: %w", doc.Path, err)
	}

	bodyText, preserved := extractPreserveBlocks(string(body))

	result := &ExecutionResult{
		Document: doc,
		Format:   format.Clone(),
		Markdown: MappedText{
			Text:       bodyText,
			Source:     doc.Path,
			LineOffset: frontmatterLineCount(fm, had),
		},
		Resources:         e.collectResources(root, doc, []byte(bodyText)),
		Filters:           collectFilters(fields, format),
		Dependencies:      collectDependencies(fields),
		Preserved:         preserved,
		KeepIntermediates: e.Keep,
	}

	workDir := filepath.Join(root, ".bookbinder", "work", doc.Slug(), format.Name)
	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "body.md"), []byte(bodyText), 0o600); err != nil {
		return nil, fmt.Errorf("write intermediate body: %w", err)
	}
	result.IntermediateDir = workDir

	e.logger.Debug("Executed document",
		logfields.Document(doc.Path),
		logfields.Format(format.Name),
		slog.Int("resources", len(result.Resources)))
	return result, nil
}

// extractPreserveBlocks swaps ```{=preserve} fenced bodies for generated
// tokens. Tokens are unique per execution.
func extractPreserveBlocks(body string) (string, map[string]string) {
	lines := strings.Split(body, "\n")
	preserved := map[string]string{}
	var out []string
	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != preserveFenceOpen {
			out = append(out, lines[i])
			continue
		}
		var block []string
		closed := false
		j := i + 1
		for ; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "```" {
				closed = true
				break
			}
			block = append(block, lines[j])
		}
		if !closed {
			// Unterminated fence: keep literal text.
			out = append(out, lines[i])
			continue
		}
		token := "preserve-" + uuid.NewString()
		preserved[token] = strings.Join(block, "\n")
		out = append(out, token)
		i = j
	}
	if len(preserved) == 0 {
		return body, nil
	}
	return strings.Join(out, "\n"), preserved
}

// collectResources resolves relative image references against the document's
// directory and returns project-relative slash paths for files that exist.
func (e *MarkdownEngine) collectResources(root string, doc Document, body []byte) []string {
	var resources []string
	seen := map[string]struct{}{}
	docDir := path.Dir(doc.Path)
	for _, dest := range markdown.ExtractImageDests(body) {
		if strings.Contains(dest, "://") || strings.HasPrefix(dest, "/") {
			continue
		}
		rel := path.Clean(path.Join(docDir, dest))
		if strings.HasPrefix(rel, "..") {
			continue
		}
		if _, ok := seen[rel]; ok {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			e.logger.Warn("Referenced resource not found", logfields.Document(doc.Path), logfields.Path(rel))
			continue
		}
		seen[rel] = struct{}{}
		resources = append(resources, rel)
	}
	return resources
}

func collectFilters(fields map[string]any, format TargetFormat) []string {
	var filters []string
	filters = append(filters, stringList(fields["filters"])...)
	if opts := format.Options; opts != nil {
		filters = append(filters, stringList(opts["filters"])...)
	}
	return filters
}

func collectDependencies(fields map[string]any) []Dependency {
	var deps []Dependency
	for _, href := range stringList(fields["styles"]) {
		deps = append(deps, Dependency{Name: path.Base(href), Kind: DependencyStylesheet, Href: href})
	}
	for _, href := range stringList(fields["scripts"]) {
		deps = append(deps, Dependency{Name: path.Base(href), Kind: DependencyScript, Href: href})
	}
	return deps
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	case string:
		return []string{t}
	default:
		return nil
	}
}
