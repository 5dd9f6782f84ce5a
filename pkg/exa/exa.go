package exa

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

const maxResponseSizeBytes = 4 << 20

type Config struct {
	BaseURL        string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.exa.ai"`
	APIKey         string        `envconfig:"API_KEY" split_words:"true"`
	NumResults     int           `envconfig:"NUM_RESULTS" split_words:"true" default:"5"`
	MaxCharacters  int           `envconfig:"MAX_CHARACTERS" split_words:"true" default:"1500"`
	IncludeDomains []string      `envconfig:"INCLUDE_DOMAINS" split_words:"true"`
	Timeout        time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"20s"`
}

// Enabled reports whether a client can be built from this config.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Result is one ranked search hit.
type Result struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client calls the Exa search REST API.
type Client struct {
	baseURL        string
	apiKey         string
	numResults     int
	maxCharacters  int
	includeDomains []string
	httpClient     *http.Client
}

type searchRequest struct {
	Query          string          `json:"query"`
	NumResults     int             `json:"numResults"`
	IncludeDomains []string        `json:"includeDomains,omitempty"`
	Contents       *searchContents `json:"contents,omitempty"`
}

type searchContents struct {
	Text searchText `json:"text"`
}

type searchText struct {
	MaxCharacters int `json:"maxCharacters"`
}

type searchResponse struct {
	Results []struct {
		Title string  `json:"title"`
		URL   string  `json:"url"`
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	} `json:"results"`
	Error string `json:"error"`
}

func New(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.exa.ai"
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid exa base url: %w", err)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("exa api key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	numResults := cfg.NumResults
	if numResults <= 0 {
		numResults = 5
	}

	c := &Client{
		baseURL:        baseURL,
		apiKey:         apiKey,
		numResults:     numResults,
		maxCharacters:  cfg.MaxCharacters,
		includeDomains: cfg.IncludeDomains,
		httpClient:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Search returns at most limit results for query, deduplicated by URL and
// ranked with official (.gov/.edu) sources boosted. A limit <= 0 uses the
// configured default.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}
	if limit <= 0 {
		limit = c.numResults
	}

	reqBody := searchRequest{
		Query:          query,
		NumResults:     limit,
		IncludeDomains: c.includeDomains,
	}
	if c.maxCharacters > 0 {
		reqBody.Contents = &searchContents{Text: searchText{MaxCharacters: c.maxCharacters}}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal exa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build exa request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute exa request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read exa response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exa http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode exa response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}

	results := make([]Result, 0, len(parsed.Results))
	seen := make(map[string]bool, len(parsed.Results))
	for _, item := range parsed.Results {
		link := strings.TrimSpace(item.URL)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true

		relevance := item.Score
		if isOfficialSource(link) {
			relevance += 0.2
		}
		results = append(results, Result{
			Title:     strings.TrimSpace(item.Title),
			URL:       link,
			Snippet:   strings.TrimSpace(item.Text),
			Relevance: relevance,
		})
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.Relevance, a.Relevance)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func isOfficialSource(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu")
}
