// Package cleanup reclaims intermediate artifacts after a build finishes.
// Failure isolation is per-build: unwinding a failed build never touches
// freeze entries or intermediates belonging to other (document, format)
// pairs.
package cleanup

import (
	"log/slog"
	"os"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/logfields"
)

// Coordinator removes intermediate working directories. Removal errors are
// logged, never escalated: stale intermediates are an annoyance, not a
// build failure.
type Coordinator struct {
	logger *slog.Logger
}

// NewCoordinator constructs a cleanup coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{logger: slog.Default()}
}

// WithLogger sets a custom logger.
func (c *Coordinator) WithLogger(logger *slog.Logger) *Coordinator {
	c.logger = logger
	return c
}

// AfterSuccess removes each result's intermediate directory once the final
// artifact exists. A result's keep flag (per-engine, set for debugging)
// forces retention.
func (c *Coordinator) AfterSuccess(results []*engine.ExecutionResult) {
	c.reclaim(results, "success")
}

// AfterFailure unwinds partial state for every accumulated result of the
// failed build. Freeze entries already written stay untouched: a completed
// store is valid input for the next build even when this one failed later.
func (c *Coordinator) AfterFailure(results []*engine.ExecutionResult) {
	c.reclaim(results, "failure")
}

func (c *Coordinator) reclaim(results []*engine.ExecutionResult, phase string) {
	removed := 0
	for _, res := range results {
		if res == nil || res.IntermediateDir == "" {
			continue
		}
		if res.KeepIntermediates {
			c.logger.Debug("Keeping intermediate directory",
				logfields.Document(res.Document.Path),
				logfields.Path(res.IntermediateDir))
			continue
		}
		if err := os.RemoveAll(res.IntermediateDir); err != nil {
			c.logger.Warn("Failed to remove intermediate directory",
				logfields.Document(res.Document.Path),
				logfields.Path(res.IntermediateDir),
				logfields.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		c.logger.Debug("Reclaimed intermediate directories",
			slog.String("phase", phase), logfields.Count(removed))
	}
}
