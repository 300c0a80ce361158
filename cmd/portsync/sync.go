package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/use-agent/portsync/bridge"
	"github.com/use-agent/portsync/config"
	"github.com/use-agent/portsync/models"
	"github.com/use-agent/portsync/portfolio"
	"github.com/use-agent/portsync/scraper"
	"github.com/use-agent/portsync/syncer"
)

type syncCmd struct {
	cfg     *config.Config
	cdpURL  string
	start   string
	timeout time.Duration
	bridge  string
	summary bool
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "run one sync cycle and print its message" }
func (*syncCmd) Usage() string {
	return `portsync sync [-cdp <ws url>] [-start <url>] [-timeout <duration>] [-bridge stdout|webhook] [-summary]

  Opens the brokerage page, waits until it shows the account area or the
  login form, and delivers exactly one message. With the stdout bridge the
  message is printed to stdout as a single JSON line.

  Exit status is 0 when a snapshot was delivered without error, 1 otherwise.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cdpURL, "cdp", c.cfg.Browser.CDPURL, "Attach to a running Chrome at this DevTools URL instead of launching one.")
	f.StringVar(&c.start, "start", c.cfg.Site.StartURL, "Brokerage page to open.")
	f.DurationVar(&c.timeout, "timeout", c.cfg.Scraper.DefaultTimeout, "Upper bound for the whole cycle.")
	f.StringVar(&c.bridge, "bridge", c.cfg.Bridge.Kind, "Where to deliver the message (stdout, webhook).")
	f.BoolVar(&c.summary, "summary", false, "Print a formatted summary of the figures to stderr.")
}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := c.cfg
	cfg.Bridge.Kind = c.bridge

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The cycle attaches through the request, not the scraper, so the
	// managed browser is only launched when no CDP URL is given.
	browserCfg := cfg.Browser
	browserCfg.CDPURL = ""
	var browser syncer.Browser
	if c.cdpURL == "" {
		sc, err := scraper.NewScraper(browserCfg, cfg.Scraper)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		defer sc.Close()
		browser = syncer.FromScraper(sc)
	} else {
		browser = syncer.FromScraper(scraper.Detached(cfg.Scraper))
	}

	br, err := bridge.New(cfg.Bridge, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	fetcher := portfolio.NewFetcher(cfg.Site.APIURL, cfg.Browser.DefaultProxy)
	defer fetcher.CloseIdleConnections()

	svc := syncer.NewService(browser, fetcher, br, cfg)
	msg, err := svc.Sync(ctx, &models.SyncRequest{
		CDPURL:   c.cdpURL,
		StartURL: c.start,
		Timeout:  timeoutSeconds(c.timeout),
	})
	if err != nil {
		slog.Error("sync failed", "error", err)
	}
	if msg == nil {
		return subcommands.ExitFailure
	}

	if c.summary {
		printSummary(os.Stderr, msg)
	}
	if err != nil || msg.Failed() || msg.Event != models.EventScrapeSucceeded {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// timeoutSeconds rounds d up to whole seconds, at least one.
func timeoutSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}
