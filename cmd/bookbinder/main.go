package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/bookbinder/cmd/bookbinder/commands"
	"git.home.luguber.info/inful/bookbinder/internal/version"
)

func main() {
	// Optional .env for local development; missing file is fine.
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env")
	}

	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("bookbinder"),
		kong.Description("Render multi-document books with incremental execution caching"),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := ctx.Run(global, cli); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
