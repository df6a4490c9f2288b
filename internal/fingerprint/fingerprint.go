// Package fingerprint computes a stable identity for "this document,
// rendered with this format and these options". Two renders with identical
// fingerprints must be semantically substitutable.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/util/sets"
)

// Fingerprint is a hex-encoded sha256 digest.
type Fingerprint string

// presentationOnlyOptions never affect rendered output and are excluded
// from the digest so toggling them cannot invalidate cached executions.
var presentationOnlyOptions = sets.New(
	"keep-intermediates",
	"log-level",
	"quiet",
	"verbose",
)

// Compute derives the fingerprint for a (document, format) pair from the
// document's source bytes and the format's identity-relevant options.
//
// Pure and deterministic: identical content and identity-relevant options
// always yield the identical fingerprint. The only failure mode is
// unreadable input, surfaced as an I/O error.
func Compute(root string, doc engine.Document, format engine.TargetFormat) (Fingerprint, error) {
	content, err := os.ReadFile(doc.AbsPath(root))
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", doc.Path, err)
	}
	return FromContent(content, format)
}

// FromContent computes the fingerprint from in-memory source bytes.
// Split out so adapters that already hold the content avoid a second read.
func FromContent(content []byte, format engine.TargetFormat) (Fingerprint, error) {
	optJSON, err := canonicalOptions(format)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(format.Name))
	h.Write([]byte{0})
	h.Write(optJSON)
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

// canonicalOptions serializes identity-relevant options deterministically.
// encoding/json sorts map keys, which gives a canonical byte form.
func canonicalOptions(format engine.TargetFormat) ([]byte, error) {
	filtered := make(map[string]any, len(format.Options))
	for k, v := range format.Options {
		if presentationOnlyOptions.Has(k) {
			continue
		}
		filtered[k] = v
	}
	data, err := json.Marshal(filtered)
	if err != nil {
		return nil, fmt.Errorf("marshal format options: %w", err)
	}
	return data, nil
}
