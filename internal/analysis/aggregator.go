package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Risk band thresholds over the weighted malice score.
const (
	mediumThreshold   = 30
	highThreshold     = 60
	criticalThreshold = 85
)

// spreadPenaltyFactor scales the population standard deviation of evidence
// scores into a confidence penalty. spreadNoteThreshold is the penalty above
// which source disagreement gets its own uncertainty note.
const (
	spreadPenaltyFactor = 0.5
	spreadNoteThreshold = 10
)

var recommendationsByLevel = map[RiskLevel][]string{
	RiskLow: {
		"No strong indicators of fraud were found.",
		"Stay cautious with unsolicited requests for money or personal details.",
	},
	RiskMedium: {
		"Some signals could not be verified.",
		"Do not share one-time passwords, account numbers, or personal details.",
		"Verify the sender through an official channel before acting.",
	},
	RiskHigh: {
		"Treat this as a likely scam.",
		"Do not click links, reply, or send money.",
		"Block the sender and warn anyone else who received it.",
	},
	RiskCritical: {
		"Do not interact under any circumstances.",
		"Report this to your local cybercrime authority.",
		"If you already responded, contact your bank immediately.",
	},
}

// Aggregate folds normalized evidence into a single calibrated verdict.
// It never fails: out-of-range inputs are clamped and the clamp is recorded
// as an uncertainty note.
func Aggregate(evidence []Evidence) RiskVerdict {
	if len(evidence) == 0 {
		return emptyVerdict()
	}

	var uncertainties []string
	clamped := make([]Evidence, len(evidence))
	clampNoted := false
	for i, ev := range evidence {
		c := ev
		if c.Score < 0 || c.Score > 100 || c.Confidence < 0 || c.Confidence > 100 {
			c.Score = clamp01(c.Score)
			c.Confidence = clamp01(c.Confidence)
			if !clampNoted {
				uncertainties = append(uncertainties, "Some evidence values were out of range and were clamped before aggregation.")
				clampNoted = true
			}
		}
		clamped[i] = c
	}

	var weightSum, scoreSum, confSum float64
	for _, ev := range clamped {
		w := ev.Weight * ev.Confidence / 100
		weightSum += w
		scoreSum += ev.Score * w
		confSum += ev.Confidence * w
	}
	if weightSum <= 0 {
		return emptyVerdict()
	}

	malice := scoreSum / weightSum
	level := levelFor(malice)

	penalty := spreadPenaltyFactor * stddev(clamped)
	confidence := clamp01(confSum/weightSum - penalty)

	if len(clamped) < 2 {
		uncertainties = append(uncertainties, "Only one independent source produced usable evidence.")
	}
	if penalty > spreadNoteThreshold {
		uncertainties = append(uncertainties, "Sources disagreed significantly; confidence was reduced accordingly.")
	}

	return RiskVerdict{
		Level:           level,
		Confidence:      round1(confidence),
		Summary:         summaryFor(level, malice, clamped),
		Reasoning:       buildReasoning(clamped),
		Evidence:        clamped,
		Recommendations: buildRecommendations(level, clamped),
		Uncertainties:   uncertainties,
	}
}

func emptyVerdict() RiskVerdict {
	return RiskVerdict{
		Level:      RiskMedium,
		Confidence: 0,
		Summary:    "No independent signal was available, so the risk could not be ruled out.",
		Reasoning:  []string{"Every applicable source failed or returned nothing usable."},
		Recommendations: []string{
			"Treat the item with caution until it can be re-checked.",
			"Do not share money or personal details in the meantime.",
		},
		Uncertainties: []string{"No independent signal was available; absence of evidence is not evidence of absence."},
	}
}

func levelFor(malice float64) RiskLevel {
	switch {
	case malice < mediumThreshold:
		return RiskLow
	case malice < highThreshold:
		return RiskMedium
	case malice < criticalThreshold:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// buildReasoning emits one sentence per evidence item, strongest signal
// first. Ordering is by weight times confidence so it is stable regardless
// of fan-out arrival order.
func buildReasoning(evidence []Evidence) []string {
	ordered := make([]Evidence, len(evidence))
	copy(ordered, evidence)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Weight*ordered[i].Confidence > ordered[j].Weight*ordered[j].Confidence
	})

	reasoning := make([]string, 0, len(ordered)+1)
	for _, ev := range ordered {
		reasoning = append(reasoning, fmt.Sprintf(
			"%s rated this %s (score %.0f, confidence %.0f%%): %s",
			ev.SourceID, ev.Status, ev.Score, ev.Confidence, ev.Detail))
	}
	if conflicted(evidence) {
		reasoning = append(reasoning, "Sources disagreed; the verdict weighs each finding by source reliability and confidence.")
	}
	return reasoning
}

func conflicted(evidence []Evidence) bool {
	seen := make(map[EvidenceStatus]struct{}, 2)
	for _, ev := range evidence {
		seen[ev.Status] = struct{}{}
		if len(seen) > 1 {
			return true
		}
	}
	return false
}

func buildRecommendations(level RiskLevel, evidence []Evidence) []string {
	recs := recommendationsByLevel[level]
	out := make([]string, 0, len(recs)+1)

	top := evidence[0]
	for _, ev := range evidence[1:] {
		if ev.Weight > top.Weight {
			top = ev
		}
	}
	if top.Status == StatusMalicious || top.Status == StatusSuspicious {
		out = append(out, fmt.Sprintf("%s flagged this item: %s", top.SourceID, top.Detail))
	}
	return append(out, recs...)
}

func summaryFor(level RiskLevel, malice float64, evidence []Evidence) string {
	var malicious, suspicious int
	for _, ev := range evidence {
		switch ev.Status {
		case StatusMalicious:
			malicious++
		case StatusSuspicious:
			suspicious++
		}
	}

	base := fmt.Sprintf("Combined risk is %s (weighted score %.0f/100 from %d source%s).",
		strings.ToUpper(string(level)), malice, len(evidence), plural(len(evidence)))
	switch {
	case malicious > 0:
		return base + fmt.Sprintf(" %d source%s reported it as malicious.", malicious, plural(malicious))
	case suspicious > 0:
		return base + fmt.Sprintf(" %d source%s found it suspicious.", suspicious, plural(suspicious))
	default:
		return base + " No source reported active abuse."
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func stddev(evidence []Evidence) float64 {
	if len(evidence) < 2 {
		return 0
	}
	var mean float64
	for _, ev := range evidence {
		mean += ev.Score
	}
	mean /= float64(len(evidence))

	var variance float64
	for _, ev := range evidence {
		d := ev.Score - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(evidence)))
}

func clamp01(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
