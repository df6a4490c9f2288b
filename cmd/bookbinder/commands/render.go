package commands

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/bookbinder/internal/book"
	"git.home.luguber.info/inful/bookbinder/internal/metrics"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	Format string `short:"f" help:"Render only the named format"`
	Freeze string `help:"Override the configured freeze policy (never|always|auto)"`
	Jobs   int    `short:"j" help:"Maximum parallel executions (default: CPU count)"`
}

func (r *RenderCmd) Run(_ *Global, root *CLI) error {
	cfg, err := book.Load(root.Project)
	if err != nil {
		return fmt.Errorf("load book: %w", err)
	}
	if r.Format != "" {
		opts, ok := cfg.Formats[r.Format]
		if !ok {
			return fmt.Errorf("format %q is not configured in %s", r.Format, book.ConfigFileName)
		}
		cfg.Formats = map[string]map[string]any{r.Format: opts}
	}

	build, err := newBuild(root.Project, cfg, r.Freeze, r.Jobs, metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	outcome, err := build.Run(context.Background())
	for _, rf := range outcome.Rendered {
		fmt.Printf("rendered %s (%s)\n", rf.Path, rf.Format)
	}
	if err != nil {
		return err
	}
	slog.Info("Render complete", slog.Int("artifacts", len(outcome.Rendered)))
	return nil
}
