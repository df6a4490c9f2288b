package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/bookbinder/internal/book"
	"git.home.luguber.info/inful/bookbinder/internal/freeze"
	"git.home.luguber.info/inful/bookbinder/internal/logfields"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Freeze bool `help:"Also remove the freeze cache"`
}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := book.Load(root.Project)
	if err != nil {
		return fmt.Errorf("load book: %w", err)
	}

	outputDir := filepath.Join(root.Project, cfg.OutputDir)
	if err := os.RemoveAll(outputDir); err != nil {
		return fmt.Errorf("remove output directory: %w", err)
	}
	slog.Info("Removed rendered output", logfields.Path(outputDir))

	workDir := filepath.Join(root.Project, ".bookbinder", "work")
	if err := os.RemoveAll(workDir); err != nil {
		return fmt.Errorf("remove working directory: %w", err)
	}

	if c.Freeze {
		if err := freeze.NewCache(root.Project).Clear(); err != nil {
			return fmt.Errorf("clear freeze cache: %w", err)
		}
		slog.Info("Cleared freeze cache")
	}
	return nil
}
