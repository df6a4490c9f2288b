package orchestrator

import (
	"log/slog"
	"path"
	"strings"

	"git.home.luguber.info/inful/bookbinder/internal/book"
	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/errors"
	"git.home.luguber.info/inful/bookbinder/internal/logfields"
	"git.home.luguber.info/inful/bookbinder/internal/markdown"
	"git.home.luguber.info/inful/bookbinder/internal/util/sets"
)

// Merge combines all per-document execution results for a single-file
// format into one synthetic ExecutionResult.
//
// Book item order is the single source of truth for output order; arrival
// order plays no part. A book item whose result is missing is a build
// invariant violation and fails the merge.
func Merge(cfg *book.Config, root string, format engine.TargetFormat, results map[string]*engine.ExecutionResult, logger *slog.Logger) (*engine.ExecutionResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var parts []string
	var resources []string
	resourceSeen := sets.New[string]()
	filterSeen := sets.New[string]()
	var filters []string
	var deps []engine.Dependency
	preserved := map[string]string{}
	consumed := sets.New[string]()

	for _, ni := range cfg.NumberedItems() {
		if !ni.HasDocument() {
			// Structural item: synthesize a minimal fragment wrapped in a
			// distinguishing marker so post-processing can drop or style it.
			marker := markdown.Marker{Kind: string(ni.Kind), Title: ni.Text}
			fragment := markdown.EncodeMarker(marker) + "\n\n# " + ni.Text
			parts = append(parts, markdown.WrapStructural(fragment))
			continue
		}

		res := results[ni.Document.Path]
		if res == nil {
			return nil, errors.MergeInvariantError(ni.Document.Path, format.Name)
		}
		consumed.Add(ni.Document.Path)

		title, _ := markdown.FirstHeading([]byte(res.Markdown.Text))
		marker := markdown.Marker{
			Kind:         markerKind(ni),
			Number:       ni.Number,
			Title:        title,
			ResourceBase: resourceBase(ni.Document.Path),
		}
		parts = append(parts, markdown.EncodeMarker(marker)+"\n\n"+strings.TrimRight(res.Markdown.Text, "\n")+"\n")

		for _, rel := range res.Resources {
			norm := path.Clean(rel)
			if resourceSeen.Has(norm) {
				continue
			}
			resourceSeen.Add(norm)
			resources = append(resources, norm)
		}

		for _, f := range res.Filters {
			if filterSeen.Has(f) {
				continue
			}
			filterSeen.Add(f)
			filters = append(filters, f)
		}

		// Order matters for script-load order: earlier chapters first.
		// Duplicates are tolerated; injection is idempotent by name.
		deps = append(deps, res.Dependencies...)

		for token, block := range res.Preserved {
			if prev, exists := preserved[token]; exists && prev != block {
				logger.Warn("Preserved block token collision, keeping last writer",
					logfields.Document(ni.Document.Path),
					slog.String("token", token))
			}
			preserved[token] = block
		}
	}

	for docPath := range results {
		if !consumed.Has(docPath) {
			logger.Warn("Execution result has no book item, dropping from merge",
				logfields.Document(docPath), logfields.Format(format.Name))
		}
	}

	mergedFormat := format.Clone()
	if mergedFormat.Options == nil {
		mergedFormat.Options = map[string]any{}
	}
	// Merged document metadata comes from book-level configuration only.
	if cfg.Title != "" {
		mergedFormat.Options["title"] = cfg.Title
	}
	if cfg.Subtitle != "" {
		mergedFormat.Options["subtitle"] = cfg.Subtitle
	}
	if cfg.Author != "" {
		mergedFormat.Options["author"] = cfg.Author
	}
	if cfg.Date != "" {
		mergedFormat.Options["date"] = cfg.Date
	}

	merged := &engine.ExecutionResult{
		Document: engine.Document{Path: book.ConfigFileName},
		Format:   mergedFormat,
		Markdown: engine.MappedText{
			Text:   strings.Join(parts, "\n"),
			Source: book.ConfigFileName,
		},
		Resources:    resources,
		Filters:      filters,
		Dependencies: deps,
		Preserved:    preserved,
		OutputName:   cfg.OutputBaseName(root) + format.Extension(),
	}
	return merged, nil
}
