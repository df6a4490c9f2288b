// Package markdown provides the small markdown analysis surface the build
// pipeline needs: first-heading extraction for chapter titles and
// image/resource reference extraction.
package markdown

import (
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// FirstHeading returns the text of the first heading in the body, if any.
func FirstHeading(body []byte) (string, bool) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	var title string
	found := false
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering || found {
			return gmast.WalkContinue, nil
		}
		if h, ok := n.(*gmast.Heading); ok {
			title = string(headingText(h, body))
			found = true
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	return title, found
}

func headingText(h *gmast.Heading, source []byte) []byte {
	var out []byte
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gmast.Text); ok {
			out = append(out, t.Segment.Value(source)...)
			continue
		}
		// Inline containers (emphasis, code spans) contribute their text.
		_ = gmast.Walk(c, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
			if !entering {
				return gmast.WalkContinue, nil
			}
			if t, ok := n.(*gmast.Text); ok {
				out = append(out, t.Segment.Value(source)...)
			}
			return gmast.WalkContinue, nil
		})
	}
	return out
}

// ExtractImageDests parses the body and returns image destinations in
// document order. Used by the passthrough engine to build resource lists.
func ExtractImageDests(body []byte) []string {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	var dests []string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if img, ok := n.(*gmast.Image); ok {
			dests = append(dests, string(img.Destination))
		}
		return gmast.WalkContinue, nil
	})
	return dests
}
