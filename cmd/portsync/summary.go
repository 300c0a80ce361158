package main

import (
	"fmt"
	"io"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/use-agent/portsync/models"
)

// summaryOrder lists the figures in display order.
var summaryOrder = []struct {
	key   string
	label string
}{
	{"total_equity", "Total equity"},
	{"equities", "Equities"},
	{"crypto", "Crypto"},
	{"uninvested_cash", "Uninvested cash"},
	{"cash_available_from_instant_deposits", "Instant deposits"},
}

// printSummary writes a human readable rendition of msg.
func printSummary(w io.Writer, msg *models.Message) {
	switch {
	case msg.Event == models.EventLoginNeeded:
		fmt.Fprintln(w, "Log in to Robinhood in the browser, then sync again.")
		return
	case msg.Failed():
		fmt.Fprintf(w, "%s: %s (%s)\n", msg.Event, msg.Error.Message, msg.Error.Code)
		return
	}

	figures := msg.Figures()
	if len(figures) == 0 {
		fmt.Fprintln(w, "No figures in the portfolio response.")
		return
	}
	for _, f := range summaryOrder {
		v, ok := figures[f.key]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%-18s %14s\n", f.label, formatUSD(v))
	}
}

// formatUSD renders a decimal amount string with the currency's symbol,
// separators and fraction digits. Unparseable input is returned as is.
func formatUSD(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	// money.New is the way to get a never nil currency.
	cur := money.New(0, money.USD).Currency()
	minor := d.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
