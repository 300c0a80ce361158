// Command portsync syncs a Robinhood portfolio snapshot out of a logged-in
// browser profile.
//
//	portsync serve            run the HTTP API
//	portsync sync [flags]     run one cycle and exit
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/use-agent/portsync/config"
)

func main() {
	cfg := config.Load()

	// Messages from the stdout bridge own stdout; logs go to stderr.
	initLogger(cfg.Log, os.Stderr)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&serveCmd{cfg: cfg}, "")
	commander.Register(&syncCmd{cfg: cfg}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}
