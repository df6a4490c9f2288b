package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bookbinder/internal/book"
	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/freeze"
	"git.home.luguber.info/inful/bookbinder/internal/metrics"
	"git.home.luguber.info/inful/bookbinder/internal/orchestrator"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Project string           `short:"p" help:"Book project directory" default:"."`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Render  RenderCmd  `cmd:"" help:"Render the book to its configured formats"`
	Preview PreviewCmd `cmd:"" help:"Serve the rendered book locally with rebuild on change"`
	Clean   CleanCmd   `cmd:"" help:"Remove rendered output (and optionally the freeze cache)"`
	Cache   CacheCmd   `cmd:"" help:"Inspect or invalidate the freeze cache"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := parseLogLevel(c.Verbose)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel honors the verbose flag and BOOKBINDER_LOG_LEVEL.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(os.Getenv("BOOKBINDER_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newBuild assembles one build invocation from a loaded project.
func newBuild(root string, cfg *book.Config, policyOverride string, jobs int, rec metrics.Recorder) (*orchestrator.Build, error) {
	policy := cfg.Policy()
	if policyOverride != "" {
		p, err := freeze.ParsePolicy(policyOverride)
		if err != nil {
			return nil, err
		}
		policy = p
	}
	return orchestrator.New(orchestrator.Options{
		Root:    root,
		Book:    cfg,
		Adapter: engine.NewMarkdownEngine(cfg.KeepIntermediates),
		Cache:   freeze.NewCache(root),
		Policy:  policy,
		Metrics: rec,
		Jobs:    jobs,
	})
}
