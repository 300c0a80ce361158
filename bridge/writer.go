package bridge

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/use-agent/portsync/models"
)

// Writer writes each message as one JSON line.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Send writes msg as one JSON line.
func (w *Writer) Send(_ context.Context, msg *models.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(msg); err != nil {
		return models.NewSyncError(models.ErrCodeDeliveryFailed, "write message", err)
	}
	return nil
}
