// Package syncer runs complete sync cycles: open the brokerage page, poll
// it, scrape and deliver one message.
package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/portsync/bridge"
	"github.com/use-agent/portsync/config"
	"github.com/use-agent/portsync/credential"
	"github.com/use-agent/portsync/models"
	"github.com/use-agent/portsync/pipeline"
	"github.com/use-agent/portsync/poller"
	"github.com/use-agent/portsync/scraper"
)

// Page is the brokerage tab a cycle runs in.
type Page interface {
	poller.Locator
	poller.Overlay
	credential.Store
	Close()
}

// Browser opens pages. cdpURL, when set, selects a user-provided browser.
type Browser interface {
	Open(ctx context.Context, cdpURL, startURL string) (Page, error)
	ActiveSessions() int
}

// Service runs sync cycles. It is safe for concurrent use; every cycle
// owns its page and poller.
type Service struct {
	browser Browser
	fetcher pipeline.PortfolioFetcher
	bridge  bridge.Bridge
	site    config.SiteConfig
	poll    config.PollerConfig
	limits  config.ScraperConfig
}

// NewService creates a Service.
func NewService(browser Browser, fetcher pipeline.PortfolioFetcher, br bridge.Bridge, cfg *config.Config) *Service {
	return &Service{
		browser: browser,
		fetcher: fetcher,
		bridge:  br,
		site:    cfg.Site,
		poll:    cfg.Poller,
		limits:  cfg.Scraper,
	}
}

// ActiveSessions reports the number of cycles holding a page.
func (s *Service) ActiveSessions() int {
	return s.browser.ActiveSessions()
}

// Sync runs one cycle and returns the delivered message. An error without
// a message means the cycle never reached the page (browser or navigation
// failure) or was cancelled; an error with a message is a delivery failure.
func (s *Service) Sync(ctx context.Context, req *models.SyncRequest) (*models.Message, error) {
	req.Defaults(s.site.StartURL, wholeSeconds(s.limits.DefaultTimeout))

	timeout := time.Duration(req.Timeout) * time.Second
	if s.limits.MaxTimeout > 0 && timeout > s.limits.MaxTimeout {
		timeout = s.limits.MaxTimeout
	}
	if timeout < time.Second {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := s.browser.Open(ctx, req.CDPURL, req.StartURL)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	reader := credential.NewReader(page, credential.Location{
		Database: s.site.Database,
		Store:    s.site.Store,
		Key:      s.site.RecordKey,
	})

	p := poller.New(page, pipeline.New(reader, s.fetcher), s.bridge, poller.Config{
		Interval: s.poll.Interval,
		MaxWait:  s.poll.MaxWait,
		Markers: poller.Markers{
			Account: s.site.AccountMarker,
			Login:   s.site.LoginMarker,
		},
	})
	p.SetOverlay(page)

	msg, err := p.Run(ctx)
	if msg != nil {
		slog.Info("sync cycle finished", "event", msg.Event, "state", p.State().String(), "failed", msg.Failed())
	}
	return msg, err
}

// wholeSeconds rounds d up to whole seconds, at least one.
func wholeSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

// FromScraper adapts the rod-backed scraper to Browser.
func FromScraper(sc *scraper.Scraper) Browser {
	return scraperBrowser{sc: sc}
}

type scraperBrowser struct {
	sc *scraper.Scraper
}

func (b scraperBrowser) Open(ctx context.Context, cdpURL, startURL string) (Page, error) {
	var (
		sess *scraper.Session
		err  error
	)
	if cdpURL != "" {
		sess, err = b.sc.OpenSessionCDP(ctx, cdpURL, startURL)
	} else {
		sess, err = b.sc.OpenSession(ctx, startURL)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (b scraperBrowser) ActiveSessions() int {
	return b.sc.ActiveSessions()
}
