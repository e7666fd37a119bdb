package intel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const serperEndpoint = "https://google.serper.dev/search"

// SerperClient wraps the serper.dev Google search API shared by the phone
// reputation and news sources.
type SerperClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

func NewSerperClient(apiKey string, opts ...SourceOption) (*SerperClient, error) {
	if apiKey == "" {
		return nil, errors.New("intel: serper api key is required")
	}
	c := &SerperClient{
		endpoint: serperEndpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	applySourceOptions(&c.endpoint, &c.http, opts)
	return c, nil
}

// Search runs one query and returns the organic results.
func (c *SerperClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	payload, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, fmt.Errorf("intel: serper encode failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("intel: serper request build failed: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intel: serper request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("intel: serper read failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("intel: serper: %s", resp.Status)
	}

	var out struct {
		Organic []SearchResult `json:"organic"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("intel: serper decode failed: %w", err)
	}
	return out.Organic, nil
}

var scamKeywords = []string{"scam", "fraud", "phishing", "robocall", "spam", "dangerous", "malicious"}

// countScamSignals counts results whose title or snippet carries a scam
// keyword, and returns the first matching title.
func countScamSignals(results []SearchResult) (int, string) {
	count := 0
	topTitle := ""
	for _, r := range results {
		text := strings.ToLower(r.Title + " " + r.Snippet)
		for _, kw := range scamKeywords {
			if strings.Contains(text, kw) {
				count++
				if topTitle == "" {
					topTitle = r.Title
				}
				break
			}
		}
	}
	return count, topTitle
}
