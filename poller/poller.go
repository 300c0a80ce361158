// Package poller waits for the brokerage page to settle on a determinate
// state and then drives exactly one outcome: a scrape, a login-needed
// message, or a timeout.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/portsync/bridge"
	"github.com/use-agent/portsync/models"
)

// Default overlay text.
const (
	OverlayTitle  = "Getting data from Robinhood..."
	OverlayDetail = "This window will automatically close when the sync is complete"
)

// Locator reports the current page path.
type Locator interface {
	Pathname(ctx context.Context) (string, error)
}

// Overlay shows a transient status indicator on the page.
type Overlay interface {
	ShowOverlay(ctx context.Context, title, detail string) error
}

// Scraper runs the scrape pipeline once and always returns a message.
type Scraper interface {
	Scrape(ctx context.Context) *models.Message
}

// Config controls the poll loop.
type Config struct {
	// Interval between two location checks.
	Interval time.Duration

	// MaxWait bounds the time spent in Polling; zero waits forever.
	MaxWait time.Duration

	Markers Markers
}

// Poller is a one-shot state machine. It is not safe for concurrent use;
// create one per page load.
type Poller struct {
	page    Locator
	scraper Scraper
	bridge  bridge.Bridge
	overlay Overlay
	cfg     Config

	state   State
	ticker  *time.Ticker
	message *models.Message
}

// New creates a Poller in the Polling state.
func New(page Locator, scraper Scraper, br bridge.Bridge, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	return &Poller{
		page:    page,
		scraper: scraper,
		bridge:  br,
		cfg:     cfg,
	}
}

// SetOverlay sets the collaborator shown before polling starts.
func (p *Poller) SetOverlay(o Overlay) {
	p.overlay = o
}

// State returns the current lifecycle state.
func (p *Poller) State() State { return p.state }

// Run shows the overlay, polls until a terminal state is reached and
// returns the message it delivered together with the delivery error.
// If ctx ends while polling, Run stops and returns ctx.Err().
func (p *Poller) Run(ctx context.Context) (*models.Message, error) {
	if p.state.Terminal() {
		return p.message, nil
	}

	if p.overlay != nil {
		if err := p.overlay.ShowOverlay(ctx, OverlayTitle, OverlayDetail); err != nil {
			slog.Warn("overlay injection failed, proceeding without overlay", "error", err)
		}
	}

	p.ticker = time.NewTicker(p.cfg.Interval)
	defer p.Stop()

	var deadline <-chan time.Time
	if p.cfg.MaxWait > 0 {
		timer := time.NewTimer(p.cfg.MaxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return p.message, p.timeout(ctx)
		case <-p.ticker.C:
			resolved, err := p.Tick(ctx)
			if resolved {
				return p.message, err
			}
		}
	}
}

// Stop cancels the poll ticker. It is safe to call more than once.
func (p *Poller) Stop() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
}

// Tick inspects the page once. It reports whether this tick resolved the
// poller; ticks after resolution do nothing. The returned error is the
// delivery error of the resolving tick.
//
// Once resolved, the scrape and the delivery run detached from ctx's
// cancellation: a started pipeline always finishes and its message is
// always handed to the bridge. The fetcher and the bridge bound
// themselves.
func (p *Poller) Tick(ctx context.Context) (bool, error) {
	if p.state.Terminal() {
		return false, nil
	}

	slog.Debug("waiting for page to load")
	path, err := p.page.Pathname(ctx)
	if err != nil {
		slog.Debug("page location unavailable", "error", err)
		return false, nil
	}

	switch Classify(path, p.cfg.Markers) {
	case LoggedIn:
		p.resolve(ResolvedLoggedIn)
		slog.Debug("page loaded, appears to be logged in", "path", path)
		run := context.WithoutCancel(ctx)
		return true, p.deliver(run, p.scraper.Scrape(run))
	case LoggedOut:
		p.resolve(ResolvedLoggedOut)
		slog.Debug("page loaded, appears to be logged out", "path", path)
		return true, p.deliver(context.WithoutCancel(ctx), models.LoginNeeded())
	default:
		return false, nil
	}
}

func (p *Poller) timeout(ctx context.Context) error {
	p.resolve(TimedOut)
	err := models.NewSyncError(models.ErrCodePollTimeout,
		fmt.Sprintf("page reached neither %q nor %q within %s",
			p.cfg.Markers.Account, p.cfg.Markers.Login, p.cfg.MaxWait),
		nil)
	slog.Warn("page state polling timed out", "maxWait", p.cfg.MaxWait)
	return p.deliver(context.WithoutCancel(ctx), models.PageTimeout(err))
}

// resolve stops the ticker before anything else runs, so no second
// pipeline can start.
func (p *Poller) resolve(s State) {
	p.Stop()
	p.state = s
}

func (p *Poller) deliver(ctx context.Context, msg *models.Message) error {
	p.message = msg
	if p.bridge == nil {
		return nil
	}
	if err := p.bridge.Send(ctx, msg); err != nil {
		slog.Error("message delivery failed", "event", msg.Event, "error", err)
		return err
	}
	return nil
}
