// Package normalize turns the portfolio API's loosely-structured response
// into a scrape message.
package normalize

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/use-agent/portsync/models"
)

// field binds a message field to its path in the API response.
type field struct {
	path string
	dest func(m *models.Message) **string
}

var fields = []field{
	{"uninvested_cash.amount", func(m *models.Message) **string { return &m.UninvestedCash }},
	{"crypto.equity.amount", func(m *models.Message) **string { return &m.Crypto }},
	{"equities.equity.amount", func(m *models.Message) **string { return &m.Equities }},
	{"total_equity.amount", func(m *models.Message) **string { return &m.TotalEquity }},
	{"cash_available_from_instant_deposits.amount", func(m *models.Message) **string { return &m.CashAvailableFromInstantDeposits }},
}

// Normalize copies every figure whose full path exists in raw into a
// scrape-succeeded message. Fields are extracted independently; raw is
// attached as Debug whatever the outcome.
func Normalize(raw any) *models.Message {
	msg := &models.Message{Event: models.EventScrapeSucceeded, Debug: raw}
	for _, f := range fields {
		v, ok := Lookup(raw, f.path)
		if !ok {
			continue
		}
		if amount, ok := Amount(v); ok {
			*f.dest(msg) = &amount
		}
	}
	return msg
}

// Amount renders an API amount as a decimal string. Only non-empty strings
// and non-zero numbers count as present.
func Amount(v any) (string, bool) {
	switch a := v.(type) {
	case string:
		return a, a != ""
	case json.Number:
		d, err := decimal.NewFromString(a.String())
		if err != nil || d.IsZero() {
			return "", false
		}
		return d.String(), true
	case float64:
		if a == 0 {
			return "", false
		}
		return decimal.NewFromFloat(a).String(), true
	default:
		return "", false
	}
}
