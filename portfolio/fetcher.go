// Package portfolio calls the brokerage's private portfolio API.
package portfolio

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	tls2 "github.com/refraction-networking/utls"
	"github.com/use-agent/portsync/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBody caps the API response size.
const maxBody = 10 * 1024 * 1024

// requestTimeout bounds the whole request, body included. It is the only
// bound once a scrape has started.
const requestTimeout = 30 * time.Second

// Fetcher performs the authenticated portfolio request with a Chrome TLS
// fingerprint (utls), so the call looks like the browser owning the token.
type Fetcher struct {
	apiURL string
	client *http.Client

	// rootCAs verifies the server; nil uses the system pool.
	rootCAs *x509.CertPool
}

// NewFetcher creates a Fetcher for apiURL. proxy, if non-empty, routes the
// request through an http(s) proxy.
func NewFetcher(apiURL, proxy string) *Fetcher {
	return newFetcher(apiURL, proxy, nil)
}

func newFetcher(apiURL, proxy string, rootCAs *x509.CertPool) *Fetcher {
	f := &Fetcher{apiURL: apiURL, rootCAs: rootCAs}
	transport := &http.Transport{
		DialTLSContext: f.dialTLSChrome,
	}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	f.client = &http.Client{Transport: transport, Timeout: requestTimeout}
	return f
}

// Fetch issues exactly one GET to the portfolio endpoint and returns the
// decoded JSON body. Any failure is reported as ErrCodeFetchFailure; there
// is no retry.
func (f *Fetcher) Fetch(ctx context.Context, token string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiURL, nil)
	if err != nil {
		return nil, fetchFailure("build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fetchFailure("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fetchFailure("unexpected response", fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, fetchFailure("read body", err)
	}
	if len(body) > maxBody {
		return nil, fetchFailure("read body", fmt.Errorf("body exceeds %d bytes", maxBody))
	}

	var payload any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fetchFailure("decode body", err)
	}
	return payload, nil
}

// CloseIdleConnections releases pooled connections.
func (f *Fetcher) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}

func fetchFailure(msg string, err error) *models.SyncError {
	return models.NewSyncError(models.ErrCodeFetchFailure, "portfolio "+msg, err)
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
// Proxied requests are tunnelled by the transport and do not reach it.
func (f *Fetcher) dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	spec, err := chromeHTTP1Spec()
	if err != nil {
		rawConn.Close()
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName: host,
		RootCAs:    f.rootCAs,
	}, tls2.HelloCustom)
	if err := tlsConn.ApplyPreset(&spec); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("apply chrome preset: %w", err)
	}

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// chromeHTTP1Spec returns the Chrome hello restricted to HTTP/1.1 in ALPN.
// The transport speaks HTTP/1.1 over custom TLS connections and would
// fail on a server that picked h2.
func chromeHTTP1Spec() (tls2.ClientHelloSpec, error) {
	spec, err := tls2.UTLSIdToSpec(tls2.HelloChrome_Auto)
	if err != nil {
		return spec, fmt.Errorf("chrome hello spec: %w", err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls2.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return spec, nil
}
