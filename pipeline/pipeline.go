// Package pipeline runs one scrape: credential extraction, the portfolio
// request and normalization.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/use-agent/portsync/models"
	"github.com/use-agent/portsync/normalize"
)

// TokenSource yields the bearer token for the current page.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PortfolioFetcher performs the authenticated API call.
type PortfolioFetcher interface {
	Fetch(ctx context.Context, token string) (any, error)
}

// Pipeline chains the three stages. Stages run strictly in order.
type Pipeline struct {
	tokens  TokenSource
	fetcher PortfolioFetcher
}

// New creates a Pipeline.
func New(tokens TokenSource, fetcher PortfolioFetcher) *Pipeline {
	return &Pipeline{tokens: tokens, fetcher: fetcher}
}

// Scrape runs the pipeline once. It always returns a scrape-succeeded
// message: on failure the message carries Error and no figures.
func (p *Pipeline) Scrape(ctx context.Context) *models.Message {
	slog.Debug("scraping data using portfolio API")

	token, err := p.tokens.Token(ctx)
	if err != nil {
		return failed(err)
	}

	raw, err := p.fetcher.Fetch(ctx, token)
	if err != nil {
		return failed(err)
	}

	msg := normalize.Normalize(raw)
	slog.Debug("scraped data", "figures", msg.Figures())
	return msg
}

func failed(err error) *models.Message {
	slog.Error("scrape failed", "error", err)
	return &models.Message{
		Event: models.EventScrapeSucceeded,
		Error: models.DetailOf(err),
	}
}
