package portfolio

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	tls2 "github.com/refraction-networking/utls"
	"github.com/use-agent/portsync/models"
)

func TestFetch_SendsBearerAndDecodes(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodGet {
			t.Errorf("method: got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization: got %q", got)
		}
		io.WriteString(w, `{"uninvested_cash":{"amount":"12.50"},"crypto":{"equity":{"amount":3.2}}}`)
	}))
	defer srv.Close()

	got, err := NewFetcher(srv.URL, "").Fetch(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one request, got %d", calls.Load())
	}

	root, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", got)
	}
	cash := root["uninvested_cash"].(map[string]any)
	if cash["amount"] != "12.50" {
		t.Errorf("amount: got %v", cash["amount"])
	}
	crypto := root["crypto"].(map[string]any)["equity"].(map[string]any)
	if n, ok := crypto["amount"].(json.Number); !ok || n.String() != "3.2" {
		t.Errorf("numbers should decode as json.Number, got %T %v", crypto["amount"], crypto["amount"])
	}
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"Invalid token."}`)
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>maintenance</html>")
		}},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			_, err := NewFetcher(srv.URL, "").Fetch(context.Background(), "tok")
			if !models.HasCode(err, models.ErrCodeFetchFailure) {
				t.Fatalf("expected %s, got %v", models.ErrCodeFetchFailure, err)
			}
			if calls.Load() != 1 {
				t.Errorf("fetch must not retry: got %d requests", calls.Load())
			}
		})
	}
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewFetcher(addr, "").Fetch(context.Background(), "tok")
	if !models.HasCode(err, models.ErrCodeFetchFailure) {
		t.Fatalf("expected %s, got %v", models.ErrCodeFetchFailure, err)
	}
}

func TestChromeHTTP1Spec(t *testing.T) {
	spec, err := chromeHTTP1Spec()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var alpn *tls2.ALPNExtension
	for _, ext := range spec.Extensions {
		if a, ok := ext.(*tls2.ALPNExtension); ok {
			alpn = a
		}
	}
	if alpn == nil {
		t.Fatal("chrome hello has no ALPN extension")
	}
	if len(alpn.AlpnProtocols) != 1 || alpn.AlpnProtocols[0] != "http/1.1" {
		t.Errorf("ALPN: got %v, want [http/1.1]", alpn.AlpnProtocols)
	}
}

func TestFetch_ChromeTLSHandshake(t *testing.T) {
	var (
		calls    atomic.Int32
		protocol atomic.Value
		auth     atomic.Value
	)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.TLS != nil {
			protocol.Store(r.TLS.NegotiatedProtocol)
		}
		auth.Store(r.Header.Get("Authorization"))
		io.WriteString(w, `{"total_equity":{"amount":"2612.51"}}`)
	}))
	// Offer h2 as well, so the client's ALPN decides.
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())

	f := newFetcher(srv.URL, "", pool)
	defer f.CloseIdleConnections()

	got, err := f.Fetch(context.Background(), "tok-tls")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one request, got %d", calls.Load())
	}
	if p, _ := protocol.Load().(string); p != "http/1.1" {
		t.Errorf("negotiated protocol: got %q, want http/1.1", p)
	}
	if a, _ := auth.Load().(string); a != "Bearer tok-tls" {
		t.Errorf("authorization: got %q", a)
	}
	amount := got.(map[string]any)["total_equity"].(map[string]any)["amount"]
	if amount != "2612.51" {
		t.Errorf("amount: got %v", amount)
	}
}

func TestFetch_ChromeTLSRejectsUnknownCA(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := newFetcher(srv.URL, "", x509.NewCertPool()).Fetch(context.Background(), "tok")
	if !models.HasCode(err, models.ErrCodeFetchFailure) {
		t.Fatalf("expected %s, got %v", models.ErrCodeFetchFailure, err)
	}
	if calls.Load() != 0 {
		t.Errorf("request must not reach an unverified server, got %d", calls.Load())
	}
}
