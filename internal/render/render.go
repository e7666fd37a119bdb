// Package render owns the presentation of risk verdicts: the stable JSON
// contract for the web boundary, compact SMS/WhatsApp text, and the
// English/Hindi string register. Language never changes scoring, only
// wording.
package render

import (
	"fmt"
	"strings"

	"github.com/sentinel-intel/sentinel/internal/analysis"
)

// Badge is the display mapping for one risk level, consumed by the
// presentation layer.
type Badge struct {
	Label     string `json:"label"`
	Indicator int    `json:"indicator"`
}

var badges = map[analysis.RiskLevel]Badge{
	analysis.RiskLow:      {Label: "SAFE", Indicator: 15},
	analysis.RiskMedium:   {Label: "CAUTION", Indicator: 45},
	analysis.RiskHigh:     {Label: "DANGER", Indicator: 75},
	analysis.RiskCritical: {Label: "CRITICAL", Indicator: 95},
}

// BadgeFor returns the display badge for a level. Unknown levels map to the
// medium badge.
func BadgeFor(level analysis.RiskLevel) Badge {
	if b, ok := badges[level]; ok {
		return b
	}
	return badges[analysis.RiskMedium]
}

// WebResponse is the JSON body returned to the web boundary. Field names and
// the four risk-level strings are a stable contract.
type WebResponse struct {
	RiskLevel       string              `json:"risk_level"`
	Confidence      float64             `json:"confidence"`
	Summary         string              `json:"summary"`
	Reasoning       []string            `json:"reasoning"`
	Evidence        []analysis.Evidence `json:"evidence"`
	Recommendations []string            `json:"recommendations"`
	Uncertainties   []string            `json:"uncertainties"`
	Badge           Badge               `json:"badge"`
	FollowUp        bool                `json:"follow_up,omitempty"`
}

// Web builds the JSON-contract response for an analysis result.
func Web(res *analysis.Result) WebResponse {
	v := res.Verdict
	return WebResponse{
		RiskLevel:       string(v.Level),
		Confidence:      v.Confidence,
		Summary:         v.Summary,
		Reasoning:       emptyIfNil(v.Reasoning),
		Evidence:        v.Evidence,
		Recommendations: emptyIfNil(v.Recommendations),
		Uncertainties:   emptyIfNil(v.Uncertainties),
		Badge:           BadgeFor(v.Level),
		FollowUp:        res.FollowUp,
	}
}

type register struct {
	risk          string
	earlierCheck  string
	genericError  string
	emptyMessage  string
}

var registers = map[string]register{
	"en": {
		risk:         "Risk",
		earlierCheck: "About your earlier check",
		genericError: "Analysis failed, please try again.",
		emptyMessage: "Send a link, phone number, or message text and I will check it for scams.",
	},
	"hi": {
		risk:         "जोखिम",
		earlierCheck: "आपकी पिछली जांच के बारे में",
		genericError: "विश्लेषण विफल रहा, कृपया पुनः प्रयास करें।",
		emptyMessage: "जांच के लिए कोई लिंक, फोन नंबर या संदेश भेजें।",
	},
}

func registerFor(language string) register {
	if r, ok := registers[language]; ok {
		return r
	}
	return registers["en"]
}

// SMS renders a verdict as compact channel text: a headline line, the
// summary, and the first recommendation.
func SMS(res *analysis.Result) string {
	reg := registerFor(res.Language)
	v := res.Verdict

	var sb strings.Builder
	if res.FollowUp {
		sb.WriteString(reg.earlierCheck)
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "%s: %s (%.0f%%)", reg.risk, strings.ToUpper(string(v.Level)), v.Confidence)
	if v.Summary != "" {
		sb.WriteString("\n\n")
		sb.WriteString(v.Summary)
	}
	if len(v.Recommendations) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(v.Recommendations[0])
	}
	return sb.String()
}

// GenericError is the user-visible text for request-level failures. It never
// carries internal detail.
func GenericError(language string) string {
	return registerFor(language).genericError
}

// EmptyPrompt is the reply to a message with nothing analyzable in it.
func EmptyPrompt(language string) string {
	return registerFor(language).emptyMessage
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
