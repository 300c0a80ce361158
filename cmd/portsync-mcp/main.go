// Command portsync-mcp exposes the portsync HTTP API as MCP tools over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/portsync/models"
)

func main() {
	apiURL := os.Getenv("PORTSYNC_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PORTSYNC_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PORTSYNC_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"portsync",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	syncTool := mcp.NewTool("sync_portfolio",
		mcp.WithDescription("Read the current Robinhood portfolio figures (cash, equities, crypto, total equity) from the logged-in browser profile. Reports when the user has to log in first."),
		mcp.WithString("cdp_url",
			mcp.Description("DevTools URL of a running Chrome to use instead of the managed browser, e.g. ws://127.0.0.1:9222/devtools/browser/<id>"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Maximum seconds for the whole sync cycle (1-600)"),
		),
	)
	s.AddTool(syncTool, handleSyncPortfolio(apiURL, apiKey))

	healthTool := mcp.NewTool("portsync_health",
		mcp.WithDescription("Check whether the portsync service is up and whether a sync is in progress."),
	)
	s.AddTool(healthTool, handleHealth(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the portsync API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(apiURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleSyncPortfolio(apiURL, apiKey string) server.ToolHandlerFunc {
	// Longer than the API's maximum cycle timeout.
	client := &http.Client{Timeout: 11 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload := models.SyncRequest{
			CDPURL:  request.GetString("cdp_url", ""),
			Timeout: request.GetInt("timeout", 0),
		}
		if payload.Timeout < 0 || payload.Timeout > 600 {
			return mcp.NewToolResultError("timeout must be between 1 and 600 seconds"), nil
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/sync", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("sync request failed: %v", err)), nil
		}

		var resp models.SyncResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse sync response: %v", err)), nil
		}

		return syncResult(&resp), nil
	}
}

// syncResult turns a sync response into tool output.
func syncResult(resp *models.SyncResponse) *mcp.CallToolResult {
	if resp.Message == nil {
		errMsg := "sync failed"
		if resp.Error != nil {
			errMsg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
		}
		return mcp.NewToolResultError(errMsg)
	}

	msg := resp.Message
	switch {
	case msg.Event == models.EventLoginNeeded:
		return mcp.NewToolResultText("The browser profile is logged out of Robinhood. Ask the user to log in, then sync again.")
	case msg.Failed():
		return mcp.NewToolResultError(fmt.Sprintf("%s: [%s] %s", msg.Event, msg.Error.Code, msg.Error.Message))
	}

	figures := msg.Figures()
	if len(figures) == 0 {
		return mcp.NewToolResultText("The portfolio response held none of the expected figures.")
	}
	keys := make([]string, 0, len(figures))
	for k := range figures {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Robinhood portfolio (USD):\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, figures[k])
	}
	fmt.Fprintf(&b, "\nSynced in %d ms.", resp.Timing.TotalMs)
	return mcp.NewToolResultText(b.String())
}

func handleHealth(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(apiURL, "/")+"/api/v1/health", nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("create request: %v", err)), nil
		}
		resp, err := client.Do(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("health request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		var health models.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse health response: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("status: %s\nuptime: %s\nactive sessions: %d\nversion: %s",
			health.Status, health.Uptime, health.ActiveSessions, health.Version)), nil
	}
}
