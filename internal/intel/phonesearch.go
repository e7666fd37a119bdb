package intel

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sentinel-intel/sentinel/internal/analysis"
)

// PhoneSearchSource judges phone numbers by searching the open web for
// scam and robocall reports mentioning any common formatting variant.
type PhoneSearchSource struct {
	search *SerperClient
}

var _ analysis.Source = (*PhoneSearchSource)(nil)

func NewPhoneSearchSource(search *SerperClient) *PhoneSearchSource {
	if search == nil {
		panic("intel: serper client cannot be nil")
	}
	return &PhoneSearchSource{search: search}
}

func (s *PhoneSearchSource) ID() string      { return analysis.SourcePhoneSearch }
func (s *PhoneSearchSource) Weight() float64 { return analysis.WeightFor(s.ID()) }

func (s *PhoneSearchSource) Applicable(kind analysis.Kind) bool {
	return kind == analysis.KindPhone
}

func (s *PhoneSearchSource) Query(ctx context.Context, artifact analysis.InputArtifact) (analysis.RawResult, error) {
	variants := phoneVariants(artifact.Raw)
	query := fmt.Sprintf("%q scam OR fraud OR robocall", strings.Join(variants, `" OR "`))

	results, err := s.search.Search(ctx, query)
	if err != nil {
		return analysis.RawResult{}, err
	}

	hits, topTitle := countScamSignals(results)
	score, confidence := phoneRisk(hits)

	summary := fmt.Sprintf("%d of %d search results report this number for scams.", hits, len(results))
	if hits == 0 {
		summary = fmt.Sprintf("No scam reports found in %d search results for this number.", len(results))
	} else if topTitle != "" {
		summary += " Example: " + topTitle
	}

	return analysis.RawResult{
		SourceID: s.ID(),
		Data: map[string]any{
			"score":      score,
			"confidence": confidence,
			"summary":    summary,
		},
	}, nil
}

func phoneRisk(hits int) (score, confidence float64) {
	switch {
	case hits >= 5:
		return 85, 80
	case hits >= 2:
		return 60, 70
	case hits == 1:
		return 40, 60
	default:
		return 10, 55
	}
}

var nonDigit = regexp.MustCompile(`[^0-9]`)

// phoneVariants expands a number into the formats people actually post in
// complaint forums: as given, digits only, without country code, and the
// trailing ten digits.
func phoneVariants(raw string) []string {
	raw = strings.TrimSpace(raw)
	digits := nonDigit.ReplaceAllString(raw, "")

	seen := map[string]struct{}{}
	var variants []string
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
	}

	add(raw)
	add(digits)
	if strings.HasPrefix(raw, "+") && len(digits) > 10 {
		add(digits[len(digits)-10:])
	}
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		add(digits[1:])
	}
	return variants
}
