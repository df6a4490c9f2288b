// Package book defines the ordered table of contents for a book project
// and its configuration file. Item order is authoritative for merge output
// regardless of execution completion order.
package book

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
)

// ItemKind distinguishes document references from structural markers.
type ItemKind string

const (
	KindChapter  ItemKind = "chapter"
	KindPart     ItemKind = "part"
	KindAppendix ItemKind = "appendix"
)

// Item is one ordered entry in the table of contents: either a document
// reference (chapter, appendix) or a structural marker (part) with display
// text and no backing document.
type Item struct {
	Kind     ItemKind
	Document engine.Document // zero for structural parts
	Text     string          // display text for structural items
}

// HasDocument reports whether the item references a backing document.
func (i Item) HasDocument() bool {
	return i.Document.Path != ""
}

// UnmarshalYAML decodes the configuration list form:
//
//	items:
//	  - chapter: intro.md
//	  - part: "Advanced Topics"
//	  - appendix: apx-a.md
func (i *Item) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("book item must be a single-key mapping: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("book item must have exactly one of chapter, part, appendix (got %d keys)", len(raw))
	}
	for key, val := range raw {
		switch ItemKind(key) {
		case KindChapter:
			*i = Item{Kind: KindChapter, Document: engine.Document{Path: val}}
		case KindAppendix:
			*i = Item{Kind: KindAppendix, Document: engine.Document{Path: val}}
		case KindPart:
			*i = Item{Kind: KindPart, Text: val}
		default:
			return fmt.Errorf("unknown book item kind %q", key)
		}
	}
	return nil
}

// MarshalYAML emits the same single-key mapping form.
func (i Item) MarshalYAML() (any, error) {
	switch i.Kind {
	case KindPart:
		return map[string]string{string(KindPart): i.Text}, nil
	default:
		return map[string]string{string(i.Kind): i.Document.Path}, nil
	}
}
