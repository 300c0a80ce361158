// Package bridge delivers cycle messages to the controlling process.
package bridge

import (
	"context"
	"fmt"
	"io"

	"github.com/use-agent/portsync/config"
	"github.com/use-agent/portsync/models"
)

// Bridge delivers one message. Implementations must not retain msg.
type Bridge interface {
	Send(ctx context.Context, msg *models.Message) error
}

// New builds the bridge selected by cfg. out receives messages for the
// "stdout" kind.
func New(cfg config.BridgeConfig, out io.Writer) (Bridge, error) {
	switch cfg.Kind {
	case "", "stdout":
		return NewWriter(out), nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("bridge: webhook kind requires a webhook URL")
		}
		return NewWebhook(cfg.WebhookURL, cfg.WebhookSecret, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("bridge: unknown kind %q", cfg.Kind)
	}
}
