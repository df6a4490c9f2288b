package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkerRoundtrip(t *testing.T) {
	m := Marker{Kind: "chapter", Number: 3, Title: "Advanced Topics", ResourceBase: "guides"}
	line := EncodeMarker(m)
	require.True(t, strings.HasPrefix(line, "<!-- bookbinder:meta "))
	require.True(t, strings.HasSuffix(line, " -->"))
	require.NotContains(t, line, "\n")

	got, ok := DecodeMarker(line)
	require.True(t, ok)
	require.Equal(t, m, got)
}

func TestDecodeMarkerRejectsGarbage(t *testing.T) {
	for _, line := range []string{
		"# heading",
		"<!-- ordinary comment -->",
		"<!-- bookbinder:meta not!base64 -->",
		"<!-- bookbinder:meta " + "aGVsbG8=" + " -->", // valid base64, not JSON
	} {
		_, ok := DecodeMarker(line)
		require.False(t, ok, "line %q must not decode", line)
	}
}

func TestStripMarkers(t *testing.T) {
	text := strings.Join([]string{
		EncodeMarker(Marker{Kind: "index"}),
		"# Index",
		"",
		StructuralOpen,
		EncodeMarker(Marker{Kind: "part", Title: "Appendices"}),
		"# Appendices",
		StructuralClose,
		"body",
	}, "\n")

	stripped := StripMarkers(text)
	require.NotContains(t, stripped, "bookbinder:")
	require.Contains(t, stripped, "# Index")
	require.Contains(t, stripped, "# Appendices")
	require.Contains(t, stripped, "body")
}

func TestWrapStructural(t *testing.T) {
	wrapped := WrapStructural("# Part One\n")
	require.Equal(t, StructuralOpen+"\n# Part One\n"+StructuralClose+"\n", wrapped)
}
