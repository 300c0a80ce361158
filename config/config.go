package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Site      SiteConfig
	Poller    PollerConfig
	Bridge    BridgeConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: false

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL for the browser and the API client.
	DefaultProxy string

	// UserDataDir is the Chromium profile directory. The brokerage session
	// lives in this profile's IndexedDB, so it must be persistent.
	UserDataDir string

	// CDPURL attaches to an already running Chrome instead of launching one.
	CDPURL string
}

// ScraperConfig controls session behavior.
type ScraperConfig struct {
	// DefaultTimeout bounds one whole sync cycle.
	DefaultTimeout time.Duration // default: 3m

	// MaxTimeout is the maximum cycle timeout a client may request.
	MaxTimeout time.Duration // default: 10m

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 30s

	// Stealth injects anti-automation evasions before navigation.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockTrackers blocks requests to known ad and analytics domains.
	BlockTrackers bool // default: true
}

// SiteConfig describes the brokerage page and its private API.
type SiteConfig struct {
	// StartURL is the page the session opens.
	StartURL string // default: "https://robinhood.com/account"

	// APIURL is the portfolio endpoint called with the bearer token.
	APIURL string // default: "https://phoenix.robinhood.com/accounts/unified"

	// Database, Store and RecordKey locate the auth record in IndexedDB.
	Database  string // default: "localforage"
	Store     string // default: "keyvaluepairs"
	RecordKey string // default: "reduxPersist:auth"

	// AccountMarker and LoginMarker classify the page path.
	AccountMarker string // default: "/account"
	LoginMarker   string // default: "/login"
}

// PollerConfig controls the page state poller.
type PollerConfig struct {
	// Interval is the delay between two location checks.
	Interval time.Duration // default: 500ms

	// MaxWait bounds how long the page may stay undeterminate.
	MaxWait time.Duration // default: 2m
}

// BridgeConfig selects where cycle messages are delivered.
type BridgeConfig struct {
	// Kind is "stdout" or "webhook"; default: "stdout".
	Kind string

	// WebhookURL is the receiver endpoint when Kind is "webhook".
	WebhookURL string

	// WebhookSecret signs webhook bodies with HMAC-SHA256 when non-empty.
	WebhookSecret string

	// Timeout bounds a single webhook delivery.
	Timeout time.Duration // default: 10s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 0.2

	// Burst is the maximum burst size per API key.
	Burst int // default: 2
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PORTSYNC_HOST", "127.0.0.1"),
			Port: envIntOr("PORTSYNC_PORT", 8080),
			Mode: envOr("PORTSYNC_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("PORTSYNC_HEADLESS", false),
			NoSandbox:    envBoolOr("PORTSYNC_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PORTSYNC_BROWSER_BIN"),
			DefaultProxy: os.Getenv("PORTSYNC_PROXY"),
			UserDataDir:  envOr("PORTSYNC_USER_DATA_DIR", ".portsync-profile"),
			CDPURL:       os.Getenv("PORTSYNC_CDP_URL"),
		},
		Scraper: ScraperConfig{
			DefaultTimeout:    envDurationOr("PORTSYNC_DEFAULT_TIMEOUT", 3*time.Minute),
			MaxTimeout:        envDurationOr("PORTSYNC_MAX_TIMEOUT", 10*time.Minute),
			NavigationTimeout: envDurationOr("PORTSYNC_NAV_TIMEOUT", 30*time.Second),
			Stealth:           envBoolOr("PORTSYNC_STEALTH", true),
			BlockedResourceTypes: envSliceOr("PORTSYNC_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			BlockTrackers: envBoolOr("PORTSYNC_BLOCK_TRACKERS", true),
		},
		Site: SiteConfig{
			StartURL:      envOr("PORTSYNC_START_URL", "https://robinhood.com/account"),
			APIURL:        envOr("PORTSYNC_API_URL", "https://phoenix.robinhood.com/accounts/unified"),
			Database:      envOr("PORTSYNC_DB_NAME", "localforage"),
			Store:         envOr("PORTSYNC_DB_STORE", "keyvaluepairs"),
			RecordKey:     envOr("PORTSYNC_DB_KEY", "reduxPersist:auth"),
			AccountMarker: envOr("PORTSYNC_ACCOUNT_MARKER", "/account"),
			LoginMarker:   envOr("PORTSYNC_LOGIN_MARKER", "/login"),
		},
		Poller: PollerConfig{
			Interval: envDurationOr("PORTSYNC_POLL_INTERVAL", 500*time.Millisecond),
			MaxWait:  envDurationOr("PORTSYNC_POLL_MAX_WAIT", 2*time.Minute),
		},
		Bridge: BridgeConfig{
			Kind:          envOr("PORTSYNC_BRIDGE", "stdout"),
			WebhookURL:    os.Getenv("PORTSYNC_WEBHOOK_URL"),
			WebhookSecret: os.Getenv("PORTSYNC_WEBHOOK_SECRET"),
			Timeout:       envDurationOr("PORTSYNC_WEBHOOK_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PORTSYNC_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PORTSYNC_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PORTSYNC_RATE_RPS", 0.2),
			Burst:             envIntOr("PORTSYNC_RATE_BURST", 2),
		},
		Log: LogConfig{
			Level:  envOr("PORTSYNC_LOG_LEVEL", "info"),
			Format: envOr("PORTSYNC_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
