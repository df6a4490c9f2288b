package commands

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/bookbinder/internal/book"
	"git.home.luguber.info/inful/bookbinder/internal/metrics"
	"git.home.luguber.info/inful/bookbinder/internal/preview"
)

// PreviewCmd implements the 'preview' command.
type PreviewCmd struct {
	Addr string `help:"Listen address" default:":4848"`
	Jobs int    `short:"j" help:"Maximum parallel executions (default: CPU count)"`
}

func (p *PreviewCmd) Run(_ *Global, root *CLI) error {
	cfg, err := book.Load(root.Project)
	if err != nil {
		return fmt.Errorf("load book: %w", err)
	}

	recorder := metrics.NewPrometheusRecorder(prom.NewRegistry())

	rebuild := func(ctx context.Context) error {
		// Reload so table-of-contents edits take effect mid-session.
		cfg, err := book.Load(root.Project)
		if err != nil {
			return err
		}
		build, err := newBuild(root.Project, cfg, "", p.Jobs, recorder)
		if err != nil {
			return err
		}
		_, err = build.Run(ctx)
		return err
	}

	srv := preview.NewServer(root.Project, filepath.Join(root.Project, cfg.OutputDir), p.Addr, rebuild)
	srv.MetricsHandler = recorder.Handler()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return srv.Run(ctx)
}
