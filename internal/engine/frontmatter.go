package engine

import (
	"bytes"
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates an opened frontmatter block that
// never closes.
var ErrMissingClosingDelimiter = errors.New("frontmatter: missing closing delimiter")

// splitFrontmatter separates YAML frontmatter (`---` delimited) from the
// markdown body. If the document does not start with a delimiter, had is
// false and body is the full input.
func splitFrontmatter(content []byte) (fm []byte, body []byte, had bool, err error) {
	open := []byte("---\n")
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}
	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}
	closeSeq := []byte("\n---\n")
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	return rest[:idx+1], rest[idx+len(closeSeq):], true, nil
}

// parseFrontmatter parses raw YAML frontmatter (without delimiters) into a map.
func parseFrontmatter(fm []byte) (map[string]any, error) {
	if len(fm) == 0 {
		return map[string]any{}, nil
	}
	var fields map[string]any
	if err := yaml.Unmarshal(fm, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// frontmatterLineCount returns the number of file lines consumed by the
// frontmatter block including both delimiter lines. The relationship is
// fileLine = lineCount + bodyLine.
func frontmatterLineCount(fm []byte, had bool) int {
	if !had {
		return 0
	}
	return 2 + strings.Count(string(fm), "\n")
}
