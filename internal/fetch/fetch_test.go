package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestGet_Success(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte("<html><body><table><tr><th>Farmers</th></tr></table></body></html>"))
	}))
	defer srv.Close()

	c := &Client{UserAgent: "annopull-test", PerRequestTimeout: 2 * time.Second}
	p, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.OK() || p.Status != 200 {
		t.Fatalf("expected 200, got %d", p.Status)
	}
	if p.Text == "" || p.ContentType == "" {
		t.Fatalf("expected content type and body")
	}
	if ua != "annopull-test" {
		t.Fatalf("expected user agent to be sent, got %q", ua)
	}
}

func TestGet_NonSuccessStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html>There is currently no text in this page.</html>"))
	}))
	defer srv.Close()

	c := &Client{PerRequestTimeout: 2 * time.Second}
	p, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected no error for 404, got %v", err)
	}
	if p.OK() || p.Status != http.StatusNotFound {
		t.Fatalf("expected 404 page, got %d", p.Status)
	}
	if p.Text == "" {
		t.Fatalf("expected body text to be returned")
	}
}

func TestGet_DecodesDeclaredCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "Jornalero Caf\xe9" in Latin-1
		_, _ = w.Write([]byte("<th>Jornalero Caf\xe9</th>"))
	}))
	defer srv.Close()

	c := &Client{PerRequestTimeout: 2 * time.Second}
	p, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Text != "<th>Jornalero Café</th>" {
		t.Fatalf("expected UTF-8 text, got %q", p.Text)
	}
}

func TestGet_ForcedEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("\xe9"))
	}))
	defer srv.Close()

	c := &Client{PerRequestTimeout: 2 * time.Second, Encoding: "windows-1252"}
	p, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Text != "é" {
		t.Fatalf("expected forced decoding, got %q", p.Text)
	}

	c.Encoding = "no-such-encoding"
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
}

func TestGet_RejectsNonHTTP(t *testing.T) {
	c := &Client{PerRequestTimeout: 1 * time.Second}
	if _, err := c.Get(context.Background(), "file:///etc/hosts"); err == nil {
		t.Fatalf("expected error for non-http scheme")
	}
}

func TestGet_RedirectLimit(t *testing.T) {
	// First path redirects once to /next; with RedirectMaxHops=1 this should fail immediately
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/next", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &Client{PerRequestTimeout: 2 * time.Second, RedirectMaxHops: 1}
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected redirect limit error")
	}
}

func TestGet_TransportErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := &Client{PerRequestTimeout: 1 * time.Second}
	if _, err := c.Get(context.Background(), addr); err == nil {
		t.Fatalf("expected error for closed server")
	}
}

func TestGet_LimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	c := &Client{PerRequestTimeout: time.Second, Limiter: lim}
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("first request should pass the limiter: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Get(ctx, srv.URL); err == nil {
		t.Fatalf("expected limiter wait to fail once the context expires")
	}
}

func TestNewLimiter(t *testing.T) {
	if NewLimiter(0) != nil || NewLimiter(-1) != nil {
		t.Fatalf("non-positive rate must disable limiting")
	}
	l := NewLimiter(0.5)
	if l == nil || l.Burst() != 1 {
		t.Fatalf("expected burst of at least 1")
	}
}
