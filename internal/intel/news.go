package intel

import (
	"context"
	"fmt"

	"github.com/sentinel-intel/sentinel/internal/analysis"
)

// NewsSource checks whether an item shows up in recent scam and fraud
// coverage. Low weight: press mentions corroborate, they do not convict.
type NewsSource struct {
	search *SerperClient
}

var _ analysis.Source = (*NewsSource)(nil)

func NewNewsSource(search *SerperClient) *NewsSource {
	if search == nil {
		panic("intel: serper client cannot be nil")
	}
	return &NewsSource{search: search}
}

func (s *NewsSource) ID() string      { return analysis.SourceNews }
func (s *NewsSource) Weight() float64 { return analysis.WeightFor(s.ID()) }

func (s *NewsSource) Applicable(kind analysis.Kind) bool {
	return kind == analysis.KindURL || kind == analysis.KindText
}

func (s *NewsSource) Query(ctx context.Context, artifact analysis.InputArtifact) (analysis.RawResult, error) {
	subject := artifact.Raw
	if len(subject) > 120 {
		subject = subject[:120]
	}

	results, err := s.search.Search(ctx, fmt.Sprintf("%q scam news", subject))
	if err != nil {
		return analysis.RawResult{}, err
	}

	mentions, topTitle := countScamSignals(results)
	return analysis.RawResult{
		SourceID: s.ID(),
		Data: map[string]any{
			"scam_mentions": float64(mentions),
			"top_headline":  topTitle,
		},
	}, nil
}
