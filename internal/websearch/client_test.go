package websearch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, MaxResults: 3}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	// Test servers listen on loopback, which the default policy rejects.
	c.validator.allowPrivate = true
	return c
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "refund policy" {
			t.Errorf("q = %q, want %q", got, "refund policy")
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q, want json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Refunds","url":"https://example.com/refunds","content":"Refund policy details"},
			{"title":"Returns","url":"https://example.com/returns","content":"Return shipping"},
			{"title":"Billing","url":"https://example.com/billing","content":"Billing info"},
			{"title":"Extra","url":"https://example.com/extra","content":"Beyond the cap"}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	results, err := c.Search(context.Background(), "refund policy")
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Search() = %d results, want 3 (capped)", len(results))
	}
	if results[0].Title != "Refunds" || results[0].URL != "https://example.com/refunds" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[0].Snippet != "Refund policy details" {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
}

func TestSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.Search(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("Search() error = %v, want ErrNoResults", err)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	c := newTestClient(t, "http://example.invalid")
	if _, err := c.Search(context.Background(), "  "); err == nil {
		t.Error("Search(blank) = nil error")
	}
}

func TestSearch_EngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Search(context.Background(), "anything"); err == nil {
		t.Error("Search() with 502 = nil error")
	}
}

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Shipping FAQ</title><script>track()</script></head>
			<body><article><h1>Shipping FAQ</h1>
			<p>Standard shipping takes three to five business days.</p>
			<p>Express shipping arrives the next business day.</p>
			</article></body></html>`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	page, err := c.FetchPage(context.Background(), srv.URL+"/faq")
	if err != nil {
		t.Fatalf("FetchPage() = %v", err)
	}
	if !strings.Contains(page.Text, "three to five business days") {
		t.Errorf("page text = %q, missing shipping sentence", page.Text)
	}
	if strings.Contains(page.Text, "track()") {
		t.Errorf("page text contains script content")
	}
}

func TestFetchPage_RejectsPrivateAddresses(t *testing.T) {
	c, err := New(Config{BaseURL: "http://search.example.com"}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}

	blocked := []string{
		"http://localhost/admin",
		"http://127.0.0.1:8080/",
		"http://169.254.169.254/latest/meta-data/",
		"http://metadata.google.internal/",
		"file:///etc/passwd",
		"ftp://example.com/file",
	}
	for _, u := range blocked {
		if _, err := c.FetchPage(context.Background(), u); err == nil {
			t.Errorf("FetchPage(%q) = nil error, want rejection", u)
		}
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	cases := []string{"", "not-a-url", "://missing-scheme"}
	for _, base := range cases {
		if _, err := New(Config{BaseURL: base}, nil); err == nil {
			t.Errorf("New(%q) = nil error", base)
		}
	}
}

func TestValidateURL(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		url  string
		safe bool
	}{
		{"http://localhost/x", false},
		{"https://127.0.0.1/", false},
		{"http://0.0.0.0/", false},
		{"http://169.254.169.254/", false},
		{"http://metadata.google.internal/", false},
		{"file:///etc/passwd", false},
		{"javascript:alert(1)", false},
		{"gopher://example.com", false},
	}
	for _, tt := range tests {
		err := v.ValidateURL(tt.url)
		if tt.safe && err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", tt.url, err)
		}
		if !tt.safe && err == nil {
			t.Errorf("ValidateURL(%q) = nil, want rejection", tt.url)
		}
	}
}
