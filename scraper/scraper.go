package scraper

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/portsync/config"
	"github.com/use-agent/portsync/models"
)

// Scraper manages the browser lifecycle. Each sync cycle opens its own
// Session (tab) on the shared browser. It is safe for concurrent use.
type Scraper struct {
	browser        *rod.Browser
	browserCfg     config.BrowserConfig
	scraperCfg     config.ScraperConfig
	activeSessions atomic.Int32

	// owned is true when the browser process was launched by us and
	// must be killed on Close.
	owned bool
	// disconnect closes the CDP connection of an attached browser.
	disconnect context.CancelFunc
}

// NewScraper attaches to browserCfg.CDPURL when set, and otherwise launches
// Chromium on the persistent profile in browserCfg.UserDataDir.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Scraper, error) {
	if browserCfg.CDPURL != "" {
		browser, cancel, err := attach(browserCfg.CDPURL)
		if err != nil {
			return nil, err
		}
		slog.Info("attached to running browser", "controlURL", browserCfg.CDPURL)
		return &Scraper{
			browser:    browser,
			browserCfg: browserCfg,
			scraperCfg: scraperCfg,
			disconnect: cancel,
		}, nil
	}

	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox).
		Leakless(true)

	if browserCfg.UserDataDir != "" {
		l = l.UserDataDir(browserCfg.UserDataDir)
	}
	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewSyncError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "userDataDir", browserCfg.UserDataDir)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewSyncError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &Scraper{
		browser:    browser,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		owned:      true,
	}, nil
}

// Detached returns a Scraper without a managed browser. Only
// OpenSessionCDP works on it.
func Detached(scraperCfg config.ScraperConfig) *Scraper {
	return &Scraper{scraperCfg: scraperCfg}
}

// attach connects to a running browser. Cancelling the returned func
// drops the connection without closing the browser.
func attach(controlURL string) (*rod.Browser, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())
	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, nil, models.NewSyncError(
			models.ErrCodeBrowserCrash,
			"failed to connect to CDP URL",
			err,
		)
	}
	return browser, cancel, nil
}

// ActiveSessions returns the number of open sessions.
func (s *Scraper) ActiveSessions() int {
	return int(s.activeSessions.Load())
}

// Close kills a launched browser or drops the connection to an attached
// one. Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	if s.browser == nil {
		return
	}
	if !s.owned {
		slog.Info("scraper shutting down: detaching from browser")
		if s.disconnect != nil {
			s.disconnect()
		}
		return
	}
	slog.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	slog.Info("scraper shutdown complete")
}
