package models

// SyncRequest is the payload for POST /api/v1/sync.
type SyncRequest struct {
	// CDPURL attaches the cycle to the user's own Chrome instead of the
	// managed browser. Format: "ws://host:port/devtools/browser/<id>".
	CDPURL string `json:"cdp_url,omitempty"`

	// StartURL overrides the configured brokerage page.
	StartURL string `json:"start_url,omitempty" binding:"omitempty,url"`

	// Timeout is the maximum duration in seconds for the whole cycle
	// (navigation + polling + scrape + delivery).
	// Default: the configured default. Max: the configured maximum.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=600"`
}

// Defaults applies default values to unset fields.
func (r *SyncRequest) Defaults(startURL string, timeoutSeconds int) {
	if r.StartURL == "" {
		r.StartURL = startURL
	}
	if r.Timeout == 0 {
		r.Timeout = timeoutSeconds
	}
}
