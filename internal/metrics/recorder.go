// Package metrics defines observability hooks for builds. Implementations
// may forward to Prometheus; the Noop recorder allows optional injection.
package metrics

import "time"

// CacheOutcome enumerates freeze lookup outcomes for counters.
type CacheOutcome string

const (
	CacheHit    CacheOutcome = "hit"
	CacheMiss   CacheOutcome = "miss"
	CacheBypass CacheOutcome = "bypass" // policy never
)

// Recorder defines observability hooks for build metrics. All methods must
// be safe on the NoopRecorder so injection stays optional.
type Recorder interface {
	IncCacheLookup(format string, outcome CacheOutcome)
	IncExecution(format string, success bool)
	ObserveRenderDuration(format string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // outcome: success|failed|canceled
	SetMergedChapters(format string, n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncCacheLookup(string, CacheOutcome)            {}
func (NoopRecorder) IncExecution(string, bool)                      {}
func (NoopRecorder) ObserveRenderDuration(string, time.Duration)    {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)             {}
func (NoopRecorder) IncBuildOutcome(string)                         {}
func (NoopRecorder) SetMergedChapters(string, int)                  {}
