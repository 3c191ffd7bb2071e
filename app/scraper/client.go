package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client calls a scraping actor's run-sync endpoint and returns the dataset
// items: a JSON array of raw post records. The actor owns retries against
// the upstream network; this client only reports success or failure of one
// run.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	userAgent  string
}

type runInput struct {
	DirectURLs   []string `json:"directUrls"`
	ResultsType  string   `json:"resultsType"`
	ResultsLimit int      `json:"resultsLimit"`
}

func NewClient(httpClient *http.Client, endpoint, token, userAgent string) *Client {
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		token:      token,
		userAgent:  userAgent,
	}
}

// Enabled reports whether a scraper endpoint is configured. Sources fall
// back to their local archive when it is not.
func (c *Client) Enabled() bool {
	return c.endpoint != ""
}

// FetchPosts runs the actor for one profile URL and returns the raw records.
func (c *Client) FetchPosts(ctx context.Context, profileURL string, limit int) ([]any, error) {
	input := runInput{
		DirectURLs:   []string{profileURL},
		ResultsType:  "posts",
		ResultsLimit: limit,
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode actor input: %w", err)
	}

	endpoint := c.endpoint
	if c.token != "" {
		endpoint = fmt.Sprintf("%s?token=%s", c.endpoint, url.QueryEscape(c.token))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to run scraper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var records []any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse dataset items: %w", err)
	}

	return records, nil
}
