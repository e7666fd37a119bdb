package intel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sentinel-intel/sentinel/internal/analysis"
)

const urlhausEndpoint = "https://urlhaus-api.abuse.ch/v1/url/"

// URLHausSource checks URLs against the abuse.ch URLhaus malware database.
type URLHausSource struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ analysis.Source = (*URLHausSource)(nil)

// NewURLHausSource returns a source for the public URLhaus API. The API key
// is optional; anonymous queries are rate limited harder.
func NewURLHausSource(apiKey string, opts ...SourceOption) *URLHausSource {
	s := &URLHausSource{
		endpoint: urlhausEndpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	applySourceOptions(&s.endpoint, &s.http, opts)
	return s
}

func (s *URLHausSource) ID() string      { return analysis.SourceURLHaus }
func (s *URLHausSource) Weight() float64 { return analysis.WeightFor(s.ID()) }

func (s *URLHausSource) Applicable(kind analysis.Kind) bool {
	return kind == analysis.KindURL
}

func (s *URLHausSource) Query(ctx context.Context, artifact analysis.InputArtifact) (analysis.RawResult, error) {
	form := url.Values{"url": {artifact.Raw}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return analysis.RawResult{}, fmt.Errorf("intel: urlhaus request build failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.apiKey != "" {
		req.Header.Set("Auth-Key", s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return analysis.RawResult{}, fmt.Errorf("intel: urlhaus request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return analysis.RawResult{}, fmt.Errorf("intel: urlhaus read failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return analysis.RawResult{}, fmt.Errorf("intel: urlhaus: %s", resp.Status)
	}

	var payload struct {
		QueryStatus string `json:"query_status"`
		Threat      string `json:"threat"`
		URLStatus   string `json:"url_status"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return analysis.RawResult{}, fmt.Errorf("intel: urlhaus decode failed: %w", err)
	}
	if payload.QueryStatus == "" {
		return analysis.RawResult{}, errors.New("intel: urlhaus returned no query_status")
	}

	return analysis.RawResult{
		SourceID: s.ID(),
		Data: map[string]any{
			"query_status": payload.QueryStatus,
			"threat":       payload.Threat,
			"url_status":   payload.URLStatus,
		},
	}, nil
}
