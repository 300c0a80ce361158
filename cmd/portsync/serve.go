package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/use-agent/portsync/api"
	"github.com/use-agent/portsync/bridge"
	"github.com/use-agent/portsync/config"
	"github.com/use-agent/portsync/portfolio"
	"github.com/use-agent/portsync/scraper"
	"github.com/use-agent/portsync/syncer"
)

type serveCmd struct {
	cfg  *config.Config
	host string
	port int
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the sync HTTP API" }
func (*serveCmd) Usage() string {
	return `portsync serve [-host <host>] [-port <port>]

  Starts the HTTP API. POST /api/v1/sync runs one sync cycle and delivers
  its message through the configured bridge.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.host, "host", c.cfg.Server.Host, "Address to listen on.")
	f.IntVar(&c.port, "port", c.cfg.Server.Port, "Port to listen on.")
}

func (c *serveCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := c.cfg
	cfg.Server.Host, cfg.Server.Port = c.host, c.port

	slog.Info("portsync starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"bridge", cfg.Bridge.Kind,
	)

	// ── 1. Initialise scraper (launches or attaches to the browser) ─
	sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		return subcommands.ExitFailure
	}
	defer sc.Close()

	// ── 2. Wire the sync service ────────────────────────────────────
	br, err := bridge.New(cfg.Bridge, os.Stdout)
	if err != nil {
		slog.Error("failed to initialise bridge", "error", err)
		return subcommands.ExitFailure
	}
	fetcher := portfolio.NewFetcher(cfg.Site.APIURL, cfg.Browser.DefaultProxy)
	defer fetcher.CloseIdleConnections()

	svc := syncer.NewService(syncer.FromScraper(sc), fetcher, br, cfg)

	// ── 3. Start HTTP server ────────────────────────────────────────
	router := api.NewRouter(svc, cfg, time.Now())
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// ── 4. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-errc:
		slog.Error("HTTP server error", "error", err)
		return subcommands.ExitFailure
	}

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// sc.Close() runs via defer and stops the browser it owns.
	slog.Info("portsync stopped")
	return subcommands.ExitSuccess
}
