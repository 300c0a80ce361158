package bridge

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/portsync/models"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Portsync-Signature"

// Webhook POSTs each message as JSON to a fixed URL.
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhook creates a Webhook bridge. The body is signed with
// HMAC-SHA256 if secret is non-empty.
func NewWebhook(url, secret string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

// Send delivers msg once. Header: X-Portsync-Signature: sha256=<hex>
func (w *Webhook) Send(ctx context.Context, msg *models.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return deliveryFailed("marshal message", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return deliveryFailed("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Portsync-Webhook/1.0")

	if w.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(w.secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return deliveryFailed("deliver", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return deliveryFailed("deliver", fmt.Errorf("endpoint returned status %d", resp.StatusCode))
	}

	slog.Info("webhook delivered", "url", w.url, "event", msg.Event)
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func deliveryFailed(msg string, err error) *models.SyncError {
	return models.NewSyncError(models.ErrCodeDeliveryFailed, "webhook: "+msg, err)
}
