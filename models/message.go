package models

// Event tags carried by every cycle message.
const (
	EventScrapeSucceeded = "scrape-succeeded"
	EventLoginNeeded     = "login-needed"
	EventPageTimeout     = "page-timeout"
)

// Message is the single record a cycle delivers to the controlling process.
//
// Event is always set. A scrape either carries some of the figure fields or
// an Error; both cases keep EventScrapeSucceeded as their tag. Figures are
// the API's amounts, kept as decimal strings.
type Message struct {
	Event string `json:"event"`

	// Debug is the raw API response, attached for diagnostics.
	Debug any `json:"debug,omitempty"`

	UninvestedCash                   *string `json:"uninvested_cash,omitempty"`
	Crypto                           *string `json:"crypto,omitempty"`
	Equities                         *string `json:"equities,omitempty"`
	TotalEquity                      *string `json:"total_equity,omitempty"`
	CashAvailableFromInstantDeposits *string `json:"cash_available_from_instant_deposits,omitempty"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// LoginNeeded returns the message sent when the page shows the login area.
func LoginNeeded() *Message {
	return &Message{Event: EventLoginNeeded}
}

// PageTimeout returns the message sent when the page never reached a
// determinate state.
func PageTimeout(err error) *Message {
	return &Message{Event: EventPageTimeout, Error: DetailOf(err)}
}

// Figures returns the populated figure fields keyed by their JSON names.
func (m *Message) Figures() map[string]string {
	out := make(map[string]string, 5)
	add := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	add("uninvested_cash", m.UninvestedCash)
	add("crypto", m.Crypto)
	add("equities", m.Equities)
	add("total_equity", m.TotalEquity)
	add("cash_available_from_instant_deposits", m.CashAvailableFromInstantDeposits)
	return out
}

// Failed reports whether the message describes a failed cycle.
func (m *Message) Failed() bool {
	return m.Error != nil
}
