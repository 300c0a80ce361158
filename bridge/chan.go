package bridge

import (
	"context"

	"github.com/use-agent/portsync/models"
)

// Chan hands messages to an in-process receiver.
type Chan struct {
	ch chan *models.Message
}

// NewChan creates a Chan buffering up to size messages.
func NewChan(size int) *Chan {
	return &Chan{ch: make(chan *models.Message, size)}
}

// C returns the receive side.
func (c *Chan) C() <-chan *models.Message { return c.ch }

// Send blocks until the message is buffered or ctx is done.
func (c *Chan) Send(ctx context.Context, msg *models.Message) error {
	select {
	case c.ch <- msg:
		return nil
	case <-ctx.Done():
		return models.NewSyncError(models.ErrCodeDeliveryFailed, "receiver not ready", ctx.Err())
	}
}
