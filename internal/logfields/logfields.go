package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyDocument    = "document"
	KeyFormat      = "format"
	KeyFingerprint = "fingerprint"
	KeyPolicy      = "freeze_policy"
	KeyPath        = "path"
	KeyCount       = "count"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Document(path string) slog.Attr  { return slog.String(KeyDocument, path) }
func Format(name string) slog.Attr    { return slog.String(KeyFormat, name) }
func Fingerprint(fp string) slog.Attr { return slog.String(KeyFingerprint, fp) }
func Policy(p string) slog.Attr       { return slog.String(KeyPolicy, p) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000.0)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
