package models

// SyncResponse is the response for POST /api/v1/sync.
type SyncResponse struct {
	// Success is true when the cycle delivered a message without an error.
	Success bool `json:"success"`

	// Message is the message the cycle delivered.
	Message *Message `json:"message,omitempty"`

	// Timing provides duration breakdowns for the cycle.
	Timing TimingInfo `json:"timing"`

	// Error is populated when the cycle could not run or deliver.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in a cycle.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status         string `json:"status"` // "healthy" or "busy"
	Uptime         string `json:"uptime"`
	ActiveSessions int    `json:"active_sessions"`
	Version        string `json:"version"`
}
