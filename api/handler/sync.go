package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/portsync/config"
	"github.com/use-agent/portsync/models"
)

// Syncer runs sync cycles.
type Syncer interface {
	Sync(ctx context.Context, req *models.SyncRequest) (*models.Message, error)
	ActiveSessions() int
}

// Sync returns a handler for POST /api/v1/sync.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Syncer.Sync → one cycle, message delivered through the bridge.
//  3. Echo the delivered message with timing, return 200.
//
// A cycle that delivered a message always answers 200, even when the
// message carries an error; the message is the result. Only cycles that
// never produced one map to an error status.
func Sync(svc Syncer, limits config.ScraperConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		// An empty body is a sync with every default.
		var req models.SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, models.SyncResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults("", int(limits.DefaultTimeout.Seconds()))

		// ── 2. Run the cycle ────────────────────────────────────────
		msg, err := svc.Sync(c.Request.Context(), &req)
		timing := models.TimingInfo{TotalMs: time.Since(start).Milliseconds()}

		if msg == nil {
			if err == nil {
				err = models.NewSyncError(models.ErrCodeInternal, "cycle produced no message", nil)
			}
			respondError(c, err, timing)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		resp := models.SyncResponse{
			Success: err == nil && !msg.Failed() && msg.Event == models.EventScrapeSucceeded,
			Message: msg,
			Timing:  timing,
		}
		if err != nil {
			resp.Error = models.DetailOf(err)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a SyncError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var syncErr *models.SyncError
	if !errors.As(err, &syncErr) {
		syncErr = models.NewSyncError(models.ErrCodeInternal, err.Error(), err)
	}
	if errors.Is(err, context.DeadlineExceeded) && syncErr.Code == models.ErrCodeInternal {
		syncErr = models.NewSyncError(models.ErrCodePollTimeout, "sync cycle timed out", err)
	}

	c.JSON(mapErrorToStatus(syncErr), models.SyncResponse{
		Success: false,
		Error:   syncErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.SyncError) int {
	switch e.Code {
	case models.ErrCodePollTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeFetchFailure:
		return http.StatusBadGateway // 502
	case models.ErrCodeBrowserCrash:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
