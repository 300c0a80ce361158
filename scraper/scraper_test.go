package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/portsync/config"
	"github.com/use-agent/portsync/credential"
	"github.com/use-agent/portsync/models"
	"github.com/ysmood/gson"
)

func TestIsTrackerDomain(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"amplitude.com", true},
		{"api2.amplitude.com", true},
		{"WWW.GOOGLE-ANALYTICS.COM", true},
		{"robinhood.com", false},
		{"phoenix.robinhood.com", false},
		{"notamplitude.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isTrackerDomain(tt.host); got != tt.want {
			t.Errorf("isTrackerDomain(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestBlockedTypes(t *testing.T) {
	got := blockedTypes([]string{"Image", "Font", "Script", "Bogus"})
	if len(got) != 2 {
		t.Fatalf("expected 2 blocked types, got %d", len(got))
	}
	if _, ok := got[proto.NetworkResourceTypeImage]; !ok {
		t.Error("Image should be blocked")
	}
	if _, ok := got[proto.NetworkResourceTypeScript]; ok {
		t.Error("Script must never be blockable")
	}
}

func TestDecodeRecord(t *testing.T) {
	v, err := decodeRecord(gson.New(map[string]any{"found": true, "value": `"[\"access_token\",\"t\"]"`}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != `"[\"access_token\",\"t\"]"` {
		t.Errorf("value: got %q", v)
	}

	if _, err := decodeRecord(gson.New(map[string]any{"found": false, "value": ""})); !errors.Is(err, credential.ErrRecordNotFound) {
		t.Errorf("absent record: got %v", err)
	}
	if _, err := decodeRecord(gson.New(nil)); !errors.Is(err, credential.ErrRecordNotFound) {
		t.Errorf("nil result: got %v", err)
	}
}

func TestCategorizeError(t *testing.T) {
	timeout := categorizeError(fmt.Errorf("navigate: %w", context.DeadlineExceeded), "navigation failed")
	if timeout.Code != models.ErrCodeNavigation || timeout.Message != "navigation failed: timed out" {
		t.Errorf("deadline: got %+v", timeout)
	}
	if !errors.Is(timeout, context.DeadlineExceeded) {
		t.Error("cause should be preserved")
	}

	other := categorizeError(errors.New("net::ERR_NAME_NOT_RESOLVED"), "navigation failed")
	if other.Code != models.ErrCodeNavigation || other.Message != "navigation failed" {
		t.Errorf("other: got %+v", other)
	}
}

func TestDetached_RequiresCDP(t *testing.T) {
	sc := Detached(config.ScraperConfig{})
	defer sc.Close()

	_, err := sc.OpenSession(context.Background(), "https://robinhood.com/account")
	if !models.HasCode(err, models.ErrCodeBrowserCrash) {
		t.Errorf("expected browser error, got %v", err)
	}
	if sc.ActiveSessions() != 0 {
		t.Errorf("active sessions: got %d", sc.ActiveSessions())
	}
}
