package book

import "git.home.luguber.info/inful/bookbinder/internal/engine"

// NumberedItem pairs a book item with its assigned chapter number.
// Number is 0 for structural items and for the designated index document.
type NumberedItem struct {
	Item
	Number int
	// IsIndex marks the book's landing page.
	IsIndex bool
}

// NumberedItems assigns chapter numbers in item order: the index document
// and structural part markers receive none, chapters count 1..N, and
// appendix items restart at 1 within the appendix group. Structural markers
// are skipped for numbering but retained in merge order.
func (c *Config) NumberedItems() []NumberedItem {
	items := c.Items

	// The index document participates in merge order even when only named
	// via the index field.
	var out []NumberedItem
	if c.Index != "" && !containsDocument(items, c.Index) {
		out = append(out, NumberedItem{
			Item:    Item{Kind: KindChapter, Document: engine.Document{Path: c.Index}},
			IsIndex: true,
		})
	}

	chapterNo := 0
	appendixNo := 0
	for _, item := range items {
		ni := NumberedItem{Item: item}
		switch {
		case item.Kind == KindPart:
			// structural, unnumbered
		case item.HasDocument() && item.Document.Path == c.Index:
			ni.IsIndex = true
		case item.Kind == KindAppendix:
			appendixNo++
			ni.Number = appendixNo
		case item.Kind == KindChapter:
			chapterNo++
			ni.Number = chapterNo
		}
		out = append(out, ni)
	}
	return out
}

// NumberFor returns the assigned number for a document path (0 when the
// document is the index or not part of the book).
func (c *Config) NumberFor(docPath string) (number int, kind ItemKind, isIndex bool) {
	for _, ni := range c.NumberedItems() {
		if ni.HasDocument() && ni.Document.Path == docPath {
			return ni.Number, ni.Kind, ni.IsIndex
		}
	}
	return 0, "", false
}

func containsDocument(items []Item, path string) bool {
	for _, item := range items {
		if item.HasDocument() && item.Document.Path == path {
			return true
		}
	}
	return false
}
