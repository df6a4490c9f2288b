package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/freeze"
	"git.home.luguber.info/inful/bookbinder/internal/logfields"
)

// CacheCmd groups freeze cache maintenance subcommands.
type CacheCmd struct {
	Status     CacheStatusCmd     `cmd:"" help:"List cached execution results"`
	Invalidate CacheInvalidateCmd `cmd:"" help:"Remove cached results for a document"`
}

// CacheStatusCmd lists all complete freeze entries.
type CacheStatusCmd struct{}

func (s *CacheStatusCmd) Run(_ *Global, root *CLI) error {
	infos, err := freeze.NewCache(root.Project).Status()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("freeze cache is empty")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s  %-12s  %s  (%d resources, %s)\n",
			info.Fingerprint[:12], info.Format, info.Document,
			info.Resources, info.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// CacheInvalidateCmd removes entries for one document.
type CacheInvalidateCmd struct {
	Document string `arg:"" help:"Project-relative document path"`
	Format   string `short:"f" help:"Only the named format (default: all formats)"`
}

func (i *CacheInvalidateCmd) Run(_ *Global, root *CLI) error {
	cache := freeze.NewCache(root.Project)
	doc := engine.Document{Path: i.Document}
	if err := cache.Invalidate(doc, i.Format); err != nil {
		return err
	}
	slog.Info("Invalidated freeze entries",
		logfields.Document(i.Document), logfields.Format(i.Format))
	return nil
}
