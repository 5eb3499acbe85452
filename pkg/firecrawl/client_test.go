package firecrawl

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	c, err := NewClient("fc-test", WithBaseURL(ts.URL), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
	if _, err := NewClient("   "); err == nil {
		t.Fatal("expected error for blank api key")
	}
}

func TestClient_Search(t *testing.T) {
	var got searchRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Errorf("path = %s, want /v1/search", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer fc-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "data": [{"url": "https://a.test", "title": "A"}, ["web", {"url": "https://b.test"}]]}`))
	})

	records := c.Search(context.Background(), "vector database", 3)

	if got.Query != "vector database company pricing" {
		t.Errorf("query = %q", got.Query)
	}
	if got.Limit != 3 {
		t.Errorf("limit = %d, want 3", got.Limit)
	}
	if len(got.ScrapeOptions.Formats) != 1 || got.ScrapeOptions.Formats[0] != "markdown" {
		t.Errorf("formats = %v", got.ScrapeOptions.Formats)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	r, ok := Normalize(records[1])
	if !ok || r.URL() != "https://b.test" {
		t.Errorf("second record = %v, ok = %v", r, ok)
	}
}

func TestClient_SearchWithoutSuffix(t *testing.T) {
	var got searchRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"success": true, "data": []}`))
	}))
	defer ts.Close()

	c, err := NewClient("fc-test", WithBaseURL(ts.URL), WithLogger(quietLogger()), WithQuerySuffix(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records := c.Search(context.Background(), "acme", 1); len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
	if got.Query != "acme" {
		t.Errorf("query = %q, want %q", got.Query, "acme")
	}
}

func TestClient_SearchObjectData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "data": {"web": {"url": "https://a.test"}}}`))
	})

	records := c.Search(context.Background(), "q", 1)
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if r, ok := Normalize(records[0]); !ok || r.URL() != "https://a.test" {
		t.Errorf("record = %v, ok = %v", r, ok)
	}
}

func TestSplitRecords_ObjectKeepsDocumentOrder(t *testing.T) {
	data := json.RawMessage(`{"d": {"url": "https://4.test"}, "a": {"url": "https://1.test"}, "c": {"url": "https://3.test"}, "b": {"url": "https://2.test"}}`)
	want := []string{"https://4.test", "https://1.test", "https://3.test", "https://2.test"}

	for i := 0; i < 50; i++ {
		records, err := splitRecords(data)
		if err != nil {
			t.Fatalf("splitRecords() error = %v", err)
		}
		var got []string
		for _, raw := range records {
			r, ok := Normalize(raw)
			if !ok {
				t.Fatalf("record %s did not normalize", raw)
			}
			got = append(got, r.URL())
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("record order mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestSplitRecords_Malformed(t *testing.T) {
	for _, data := range []string{`{"a": {"url": "x"}`, `{"a"}`, `42`} {
		if _, err := splitRecords(json.RawMessage(data)); err == nil {
			t.Errorf("splitRecords(%s) should fail", data)
		}
	}
}

func TestClient_SearchFailuresReturnEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"Server error", http.StatusInternalServerError, `{"error": "boom"}`},
		{"Unauthorized", http.StatusUnauthorized, `{"success": false}`},
		{"Success false", http.StatusOK, `{"success": false, "error": "quota"}`},
		{"Not JSON", http.StatusOK, `<html>`},
		{"Scalar data", http.StatusOK, `{"success": true, "data": "nope"}`},
		{"Null data", http.StatusOK, `{"success": true, "data": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			if records := c.Search(context.Background(), "q", 3); len(records) != 0 {
				t.Errorf("len(records) = %d, want 0", len(records))
			}
		})
	}
}

func TestClient_SearchTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	c, err := NewClient("fc-test", WithBaseURL(url), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records := c.Search(context.Background(), "q", 3); records != nil {
		t.Errorf("records = %v, want nil", records)
	}
	if _, ok := c.Scrape(context.Background(), "https://a.test"); ok {
		t.Error("Scrape() ok = true, want false")
	}
}

func TestClient_Scrape(t *testing.T) {
	var got scrapeRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/scrape" {
			t.Errorf("path = %s, want /v1/scrape", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"success": true, "data": {"markdown": "# Acme\nPricing: free", "metadata": {"title": "Acme"}}}`))
	})

	page, ok := c.Scrape(context.Background(), "https://acme.test")
	if !ok {
		t.Fatal("Scrape() ok = false")
	}
	if page.Markdown != "# Acme\nPricing: free" {
		t.Errorf("Markdown = %q", page.Markdown)
	}
	if got.URL != "https://acme.test" || !got.OnlyMainContent {
		t.Errorf("request = %+v", got)
	}
	if len(got.Formats) != 1 || got.Formats[0] != "markdown" {
		t.Errorf("formats = %v", got.Formats)
	}
}

func TestClient_ScrapeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"Server error", http.StatusBadGateway, `bad gateway`},
		{"Success false", http.StatusOK, `{"success": false, "error": "blocked"}`},
		{"Missing data", http.StatusOK, `{"success": true}`},
		{"Data is list", http.StatusOK, `{"success": true, "data": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			if page, ok := c.Scrape(context.Background(), "https://a.test"); ok {
				t.Errorf("Scrape() = %+v, want failure", page)
			}
		})
	}
}
