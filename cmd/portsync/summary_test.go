package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/portsync/models"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"12.5", "$12.50"},
		{"1234567.891", "$1,234,567.89"},
		{"0.004", "$0.00"},
		{"-3.10", "-$3.10"},
		{"n/a", "n/a"},
	}
	for _, tt := range tests {
		if got := formatUSD(tt.in); got != tt.want {
			t.Errorf("formatUSD(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	cash, total := "12.50", "1000"
	var buf bytes.Buffer
	printSummary(&buf, &models.Message{
		Event:          models.EventScrapeSucceeded,
		UninvestedCash: &cash,
		TotalEquity:    &total,
	})

	out := buf.String()
	if !strings.Contains(out, "$1,000.00") || !strings.Contains(out, "$12.50") {
		t.Errorf("summary: %q", out)
	}
	if strings.Index(out, "Total equity") > strings.Index(out, "Uninvested cash") {
		t.Errorf("total equity should come first: %q", out)
	}
	if strings.Contains(out, "Crypto") {
		t.Errorf("absent figures must not be listed: %q", out)
	}
}

func TestPrintSummary_LoginNeeded(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, models.LoginNeeded())
	if !strings.Contains(buf.String(), "Log in") {
		t.Errorf("summary: %q", buf.String())
	}
}

func TestTimeoutSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{time.Millisecond, 1},
		{3 * time.Minute, 180},
		{1500 * time.Millisecond, 2},
	}
	for _, tt := range tests {
		if got := timeoutSeconds(tt.in); got != tt.want {
			t.Errorf("timeoutSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
