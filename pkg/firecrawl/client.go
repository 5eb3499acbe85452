package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL     = "https://api.firecrawl.dev"
	DefaultQuerySuffix = "company pricing"
)

// Page is the markdown content of a scraped URL.
type Page struct {
	Markdown string         `json:"markdown"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Client talks to the Firecrawl search and scrape endpoints.
// Neither Search nor Scrape return errors: failures are logged and reported as
// "no data" so that callers never have to special-case the backend.
type Client struct {
	apiKey      string
	baseURL     string
	querySuffix string
	httpClient  *http.Client
	logger      *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithQuerySuffix overrides the text appended to every search query.
// An empty suffix sends queries unchanged.
func WithQuerySuffix(suffix string) Option {
	return func(c *Client) {
		c.querySuffix = strings.TrimSpace(suffix)
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("firecrawl: FIRECRAWL_API_KEY is missing")
	}

	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		querySuffix: DefaultQuerySuffix,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchRequest struct {
	Query         string        `json:"query"`
	Limit         int           `json:"limit"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats []string `json:"formats"`
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type envelope struct {
	Success *bool           `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// Search returns the raw result records for query. Use Normalize on each one.
func (c *Client) Search(ctx context.Context, query string, limit int) []json.RawMessage {
	q := query
	if c.querySuffix != "" {
		q = query + " " + c.querySuffix
	}

	env, err := c.post(ctx, "/v1/search", searchRequest{
		Query:         q,
		Limit:         limit,
		ScrapeOptions: scrapeOptions{Formats: []string{"markdown"}},
	})
	if err != nil {
		c.logger.Error("Firecrawl search error", "query", q, "error", err)
		return nil
	}

	records, err := splitRecords(env.Data)
	if err != nil {
		c.logger.Error("Firecrawl search returned unexpected data", "query", q, "error", err)
		return nil
	}

	c.logger.Info("Firecrawl search completed", "query", q, "count", len(records))
	return records
}

// Scrape fetches url as markdown (main content only). ok is false on any failure.
func (c *Client) Scrape(ctx context.Context, url string) (Page, bool) {
	env, err := c.post(ctx, "/v1/scrape", scrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		c.logger.Error("Firecrawl scrape error", "url", url, "error", err)
		return Page{}, false
	}

	var page Page
	if len(env.Data) == 0 || string(env.Data) == "null" {
		c.logger.Warn("Firecrawl scrape returned no data", "url", url)
		return Page{}, false
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		c.logger.Error("Firecrawl scrape returned unexpected data", "url", url, "error", err)
		return Page{}, false
	}

	c.logger.Info("Firecrawl scrape completed", "url", url, "size", len(page.Markdown))
	return page, true
}

func (c *Client) post(ctx context.Context, path string, payload any) (*envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("API request failed with status: %s, body: %s", resp.Status, string(respBody))
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return nil, fmt.Errorf("API reported failure: %s", env.Error)
	}

	return &env, nil
}

// splitRecords turns the data field into individual records. An array yields
// its elements, an object yields its values in document order.
func splitRecords(data json.RawMessage) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	switch data[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return records, nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(data))
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var records []json.RawMessage
		for dec.More() {
			// key
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			var v json.RawMessage
			if err := dec.Decode(&v); err != nil {
				return nil, err
			}
			records = append(records, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return records, nil
	default:
		return nil, fmt.Errorf("data is neither a list nor an object")
	}
}
