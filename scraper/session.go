package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/portsync/models"
)

// Session is one brokerage tab. It is the page the sync core runs in: it
// reports the location, reads the embedded database and shows the status
// overlay.
type Session struct {
	page    *rod.Page
	router  *rod.HijackRouter
	release func()
	closed  bool
}

// OpenSession opens a tab on the managed browser and navigates to startURL.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Create page            – fresh tab, nothing shared with other cycles
//  2. Stealth injection      – mask navigator.webdriver etc. (before navigation!)
//  3. Hijack mount           – block images/fonts/media + trackers (before navigation!)
//  4. Navigate               – bounded by the navigation timeout
//
// The poller takes over after step 4: the SPA keeps routing on its own,
// so there is no wait for load or idle here.
func (s *Scraper) OpenSession(ctx context.Context, startURL string) (*Session, error) {
	if s.browser == nil {
		return nil, models.NewSyncError(models.ErrCodeBrowserCrash, "no managed browser, a CDP URL is required", nil)
	}
	return s.openOn(ctx, s.browser, startURL, nil)
}

// OpenSessionCDP opens the tab on a user-provided browser instead of the
// managed one, for example the user's everyday Chrome with its logged-in
// profile. The connection is dropped when the session closes; the browser
// itself keeps running.
func (s *Scraper) OpenSessionCDP(ctx context.Context, cdpURL, startURL string) (*Session, error) {
	browser, disconnect, err := attach(cdpURL)
	if err != nil {
		return nil, err
	}
	sess, err := s.openOn(ctx, browser, startURL, disconnect)
	if err != nil {
		disconnect()
		return nil, err
	}
	return sess, nil
}

func (s *Scraper) openOn(ctx context.Context, browser *rod.Browser, startURL string, onClose func()) (*Session, error) {
	if _, err := url.ParseRequestURI(startURL); err != nil {
		return nil, models.NewSyncError(models.ErrCodeInvalidInput, "invalid start URL", err)
	}

	// ── 1. Create page ────────────────────────────────────────────────
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewSyncError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}
	s.activeSessions.Add(1)

	sess := &Session{page: page}
	sess.release = func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to close page", "error", closeErr)
		}
		s.activeSessions.Add(-1)
		if onClose != nil {
			onClose()
		}
	}

	// ── 2. Stealth injection ──────────────────────────────────────────
	if s.scraperCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 3. Mount hijack router ────────────────────────────────────────
	sess.router = setupHijack(page, s.scraperCfg.BlockedResourceTypes, s.scraperCfg.BlockTrackers)

	// ── 4. Navigate ───────────────────────────────────────────────────
	navCtx := ctx
	if s.scraperCfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout)
		defer cancel()
	}
	if navErr := page.Context(navCtx).Navigate(startURL); navErr != nil {
		sess.Close()
		return nil, categorizeError(navErr, "navigation to start URL failed")
	}

	slog.Debug("session opened", "url", startURL)
	return sess, nil
}

// Pathname returns window.location.pathname.
func (s *Session) Pathname(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => window.location.pathname`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// ShowOverlay injects a fixed status banner into the page.
func (s *Session) ShowOverlay(ctx context.Context, title, detail string) error {
	_, err := s.page.Context(ctx).Eval(overlayJS, title, detail)
	return err
}

// Close stops request interception and closes the tab. It is idempotent.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.router != nil {
		_ = s.router.Stop()
	}
	s.release()
}

// overlayJS renders the status banner. Text is set through textContent so
// page markup cannot be injected.
const overlayJS = `(title, detail) => {
	const id = "portsync-overlay";
	let root = document.getElementById(id);
	if (!root) {
		root = document.createElement("div");
		root.id = id;
		root.style.cssText = [
			"position:fixed", "inset:0", "z-index:2147483647",
			"display:flex", "flex-direction:column", "align-items:center", "justify-content:center",
			"background:rgba(0,0,0,0.75)", "color:#fff", "font-family:sans-serif",
		].join(";");
		const h = document.createElement("div");
		h.style.cssText = "font-size:24px;font-weight:600;margin-bottom:8px";
		const p = document.createElement("div");
		p.style.cssText = "font-size:14px;opacity:0.8";
		root.append(h, p);
		(document.body || document.documentElement).appendChild(root);
	}
	root.children[0].textContent = title;
	root.children[1].textContent = detail;
}`

// categorizeError wraps raw errors into typed SyncErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.SyncError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewSyncError(models.ErrCodeNavigation, msg+": timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewSyncError(models.ErrCodeNavigation, "request canceled", err)
	default:
		return models.NewSyncError(models.ErrCodeNavigation, msg, err)
	}
}
