package intel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sentinel-intel/sentinel/internal/analysis"
)

const virusTotalEndpoint = "https://www.virustotal.com/api/v3"

// VirusTotalSource looks up URL reputation via the VirusTotal v3 API.
type VirusTotalSource struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ analysis.Source = (*VirusTotalSource)(nil)

func NewVirusTotalSource(apiKey string, opts ...SourceOption) (*VirusTotalSource, error) {
	if apiKey == "" {
		return nil, errors.New("intel: virustotal api key is required")
	}
	s := &VirusTotalSource{
		endpoint: virusTotalEndpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	applySourceOptions(&s.endpoint, &s.http, opts)
	return s, nil
}

func (s *VirusTotalSource) ID() string      { return analysis.SourceVirusTotal }
func (s *VirusTotalSource) Weight() float64 { return analysis.WeightFor(s.ID()) }

func (s *VirusTotalSource) Applicable(kind analysis.Kind) bool {
	return kind == analysis.KindURL
}

// Query fetches the existing analysis report for the URL. The v3 API
// addresses URL reports by the unpadded base64 of the URL itself.
func (s *VirusTotalSource) Query(ctx context.Context, artifact analysis.InputArtifact) (analysis.RawResult, error) {
	id := base64.RawURLEncoding.EncodeToString([]byte(artifact.Raw))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/urls/"+id, nil)
	if err != nil {
		return analysis.RawResult{}, fmt.Errorf("intel: virustotal request build failed: %w", err)
	}
	req.Header.Set("x-apikey", s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return analysis.RawResult{}, fmt.Errorf("intel: virustotal request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return analysis.RawResult{}, fmt.Errorf("intel: virustotal read failed: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		// Never analyzed. An empty stats block normalizes to inconclusive.
		return analysis.RawResult{
			SourceID: s.ID(),
			Data:     map[string]any{"malicious": float64(0), "suspicious": float64(0), "harmless": float64(0)},
		}, nil
	}
	if resp.StatusCode >= 400 {
		return analysis.RawResult{}, fmt.Errorf("intel: virustotal: %s", resp.Status)
	}

	var payload struct {
		Data struct {
			Attributes struct {
				LastAnalysisStats struct {
					Malicious  float64 `json:"malicious"`
					Suspicious float64 `json:"suspicious"`
					Harmless   float64 `json:"harmless"`
				} `json:"last_analysis_stats"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return analysis.RawResult{}, fmt.Errorf("intel: virustotal decode failed: %w", err)
	}

	stats := payload.Data.Attributes.LastAnalysisStats
	return analysis.RawResult{
		SourceID: s.ID(),
		Data: map[string]any{
			"malicious":  stats.Malicious,
			"suspicious": stats.Suspicious,
			"harmless":   stats.Harmless,
		},
	}, nil
}
