package markdown

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Marker is the machine-recoverable metadata prepended to each book item's
// markdown during a merge. It is encoded into an HTML comment so it passes
// through any downstream renderer verbatim.
type Marker struct {
	Kind         string `json:"kind"` // chapter | part | appendix | index
	Number       int    `json:"number,omitempty"`
	Title        string `json:"title,omitempty"`
	ResourceBase string `json:"resource_base,omitempty"`
}

const (
	markerPrefix = "<!-- bookbinder:meta "
	markerSuffix = " -->"

	// StructuralOpen and StructuralClose wrap synthesized part/appendix
	// fragments so format-specific post-processing can drop or style them.
	StructuralOpen  = "<!-- bookbinder:part -->"
	StructuralClose = "<!-- /bookbinder:part -->"
)

// EncodeMarker renders the marker as a single-line HTML comment.
func EncodeMarker(m Marker) string {
	payload, _ := json.Marshal(m)
	return markerPrefix + base64.StdEncoding.EncodeToString(payload) + markerSuffix
}

// DecodeMarker parses a line produced by EncodeMarker.
func DecodeMarker(line string) (Marker, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, markerPrefix) || !strings.HasSuffix(line, markerSuffix) {
		return Marker{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(line, markerPrefix), markerSuffix)
	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return Marker{}, false
	}
	var m Marker
	if err := json.Unmarshal(payload, &m); err != nil {
		return Marker{}, false
	}
	return m, true
}

// WrapStructural wraps a synthesized structural fragment in distinguishing
// open/close comments.
func WrapStructural(fragment string) string {
	return fmt.Sprintf("%s\n%s\n%s\n", StructuralOpen, strings.TrimRight(fragment, "\n"), StructuralClose)
}

// StripMarkers removes bookbinder marker comments from rendered markdown.
// Renderers that do not interpret markers call this before conversion.
func StripMarkers(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == StructuralOpen || trimmed == StructuralClose {
			continue
		}
		if _, ok := DecodeMarker(trimmed); ok {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
