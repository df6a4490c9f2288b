// Package engine defines the execution model for book documents: the
// Document/TargetFormat identity pair, the ExecutionResult produced by an
// execution adapter, and the Adapter interface itself.
package engine

import (
	"path/filepath"
	"strings"
)

// Document identifies a source document by its stable project-relative path
// (slash-separated), independent of any target format.
type Document struct {
	Path string `json:"path"`
}

// AbsPath returns the absolute filesystem path for the document under root.
func (d Document) AbsPath(root string) string {
	return filepath.Join(root, filepath.FromSlash(d.Path))
}

// Slug returns a single-level directory-safe identifier for the document.
// Used for freeze cache slots and intermediate working directories.
func (d Document) Slug() string {
	s := strings.TrimSuffix(d.Path, filepath.Ext(d.Path))
	s = strings.ReplaceAll(s, "/", "--")
	s = strings.ReplaceAll(s, "\\", "--")
	s = strings.ReplaceAll(s, " ", "-")
	return s
}

// TargetFormat is a named output format plus its resolved rendering options.
//
// TargetFormat values follow value semantics: producing a book-level variant
// must go through Clone, never by mutating a chapter's copy.
type TargetFormat struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options,omitempty"`
}

// Clone returns an independent copy with a deep-copied options map.
func (f TargetFormat) Clone() TargetFormat {
	out := TargetFormat{Name: f.Name}
	if f.Options != nil {
		out.Options = cloneOptions(f.Options)
	}
	return out
}

func cloneOptions(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneOptions(nested)
			continue
		}
		if list, ok := v.([]any); ok {
			cp := make([]any, len(list))
			copy(cp, list)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// StringOption returns the named option as a string, or fallback.
func (f TargetFormat) StringOption(key, fallback string) string {
	if v, ok := f.Options[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// BoolOption returns the named option as a bool, or fallback.
func (f TargetFormat) BoolOption(key string, fallback bool) bool {
	if v, ok := f.Options[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// Extension returns the conventional file extension for the format,
// overridable via the "output-ext" option.
func (f TargetFormat) Extension() string {
	if ext := f.StringOption("output-ext", ""); ext != "" {
		if !strings.HasPrefix(ext, ".") {
			return "." + ext
		}
		return ext
	}
	switch f.Name {
	case "html", "single-html":
		return ".html"
	default:
		return "." + f.Name
	}
}

// MappedText is span-addressable rendered markdown. LineOffset translates
// body line numbers back to lines of the originating source file, so error
// reports downstream can point at the author's file.
type MappedText struct {
	Text       string `json:"text"`
	Source     string `json:"source"`
	LineOffset int    `json:"line_offset"`
}

// SourceLine maps a 1-based body line number to the source file line.
func (m MappedText) SourceLine(bodyLine int) int {
	return m.LineOffset + bodyLine
}

// DependencyKind distinguishes injected script and style declarations.
type DependencyKind string

const (
	DependencyScript     DependencyKind = "script"
	DependencyStylesheet DependencyKind = "stylesheet"
)

// Dependency is a script/style declaration a rendered document requires.
// Injection downstream is idempotent by Name, so duplicates are tolerated.
type Dependency struct {
	Name string         `json:"name"`
	Kind DependencyKind `json:"kind"`
	Href string         `json:"href"`
}

// ExecutionResult is the product of executing a Document for a TargetFormat.
//
// A result is owned exclusively by the build that produced it until it is
// merged or handed off to a renderer.
type ExecutionResult struct {
	Document Document     `json:"document"`
	Format   TargetFormat `json:"format"`
	Markdown MappedText   `json:"markdown"`

	// Resources lists supporting files, ordered, project-relative.
	Resources []string `json:"resources,omitempty"`

	// Filters names required post-processing filters.
	Filters []string `json:"filters,omitempty"`

	// Dependencies are ordered; earlier documents' dependencies load first.
	Dependencies []Dependency `json:"dependencies,omitempty"`

	// Preserved maps generated tokens to opaque blocks that must survive
	// verbatim through downstream processing.
	Preserved map[string]string `json:"preserved,omitempty"`

	// OutputName is set for merged results (spec'd output filename);
	// empty for per-document results.
	OutputName string `json:"output_name,omitempty"`

	// IntermediateDir is the on-disk working directory for this execution,
	// reclaimed by the cleanup coordinator. KeepIntermediates forces
	// retention (per-engine debugging aid).
	IntermediateDir   string `json:"intermediate_dir,omitempty"`
	KeepIntermediates bool   `json:"keep_intermediates,omitempty"`
}

// Clone returns a deep copy so cache-owned results never alias a build's copy.
func (r *ExecutionResult) Clone() *ExecutionResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Format = r.Format.Clone()
	out.Resources = append([]string(nil), r.Resources...)
	out.Filters = append([]string(nil), r.Filters...)
	out.Dependencies = append([]Dependency(nil), r.Dependencies...)
	if r.Preserved != nil {
		out.Preserved = make(map[string]string, len(r.Preserved))
		for k, v := range r.Preserved {
			out.Preserved[k] = v
		}
	}
	return &out
}
