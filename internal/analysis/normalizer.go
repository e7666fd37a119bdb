package analysis

import "fmt"

// Canonical source identifiers.
const (
	SourceURLHaus     = "urlhaus"
	SourceVirusTotal  = "virustotal"
	SourcePhoneSearch = "phone_search"
	SourceNews        = "news"
	SourceLLM         = "llm"
	SourceVoice       = "voice"
)

// SourceWeights are the static reliability multipliers applied during
// aggregation. Changing a weight changes every verdict, so they live in one
// place.
var SourceWeights = map[string]float64{
	SourceVirusTotal:  0.35,
	SourceURLHaus:     0.25,
	SourcePhoneSearch: 0.20,
	SourceNews:        0.10,
	SourceLLM:         0.05,
	SourceVoice:       0.40,
}

// WeightFor returns the reliability weight for a source, defaulting to the
// most conservative weight for unknown sources.
func WeightFor(sourceID string) float64 {
	if w, ok := SourceWeights[sourceID]; ok {
		return w
	}
	return 0.05
}

// Normalize maps a source's raw payload onto the common evidence shape.
// Unknown sources or malformed payloads fail with ErrNormalizationFailed;
// the caller drops that source and keeps the rest.
func Normalize(raw RawResult) (Evidence, error) {
	if raw.Data == nil {
		return Evidence{}, fmt.Errorf("%w: %s returned no data", ErrNormalizationFailed, raw.SourceID)
	}

	ev := Evidence{SourceID: raw.SourceID, Weight: WeightFor(raw.SourceID)}
	var err error
	switch raw.SourceID {
	case SourceURLHaus:
		err = normalizeURLHaus(&ev, raw.Data)
	case SourceVirusTotal:
		err = normalizeVirusTotal(&ev, raw.Data)
	case SourcePhoneSearch, SourceLLM:
		err = normalizeScored(&ev, raw.Data)
	case SourceNews:
		err = normalizeNews(&ev, raw.Data)
	case SourceVoice:
		err = normalizeVoice(&ev, raw.Data)
	default:
		err = fmt.Errorf("%w: unknown source %q", ErrNormalizationFailed, raw.SourceID)
	}
	if err != nil {
		return Evidence{}, err
	}
	return ev, nil
}

func normalizeURLHaus(ev *Evidence, data map[string]any) error {
	status, ok := data["query_status"].(string)
	if !ok {
		return fmt.Errorf("%w: urlhaus payload missing query_status", ErrNormalizationFailed)
	}
	switch status {
	case "ok":
		ev.Score = 90
		ev.Confidence = 95
		ev.Status = StatusMalicious
		threat := asString(data["threat"])
		if threat == "" {
			threat = "malware distribution"
		}
		ev.Detail = fmt.Sprintf("Listed in the URLhaus malware database (%s).", threat)
	case "no_results":
		ev.Score = 5
		ev.Confidence = 70
		ev.Status = StatusClean
		ev.Detail = "Not present in the URLhaus malware database."
	default:
		return fmt.Errorf("%w: urlhaus query_status %q", ErrNormalizationFailed, status)
	}
	return nil
}

// normalizeVirusTotal scores malicious engine hits double relative to
// suspicious ones, over the total engine count.
func normalizeVirusTotal(ev *Evidence, data map[string]any) error {
	malicious, okM := asFloat(data["malicious"])
	suspicious, okS := asFloat(data["suspicious"])
	harmless, okH := asFloat(data["harmless"])
	if !okM || !okS || !okH {
		return fmt.Errorf("%w: virustotal stats incomplete", ErrNormalizationFailed)
	}
	total := malicious + suspicious + harmless
	if total <= 0 {
		ev.Score = 0
		ev.Confidence = 30
		ev.Status = StatusInconclusive
		ev.Detail = "No engine has analyzed this item yet."
		return nil
	}

	ev.Score = clamp01((malicious*2 + suspicious) / total * 100)
	ev.Confidence = 90
	ev.Detail = fmt.Sprintf("%.0f of %.0f engines flagged this as malicious.", malicious, total)
	switch {
	case malicious > 0:
		ev.Status = StatusMalicious
	case suspicious > 0:
		ev.Status = StatusSuspicious
	default:
		ev.Status = StatusClean
	}
	return nil
}

// normalizeScored handles sources that pre-score their own findings.
func normalizeScored(ev *Evidence, data map[string]any) error {
	score, okS := asFloat(data["score"])
	conf, okC := asFloat(data["confidence"])
	if !okS || !okC {
		return fmt.Errorf("%w: %s payload missing score or confidence", ErrNormalizationFailed, ev.SourceID)
	}
	ev.Score = clamp01(score)
	ev.Confidence = clamp01(conf)
	ev.Detail = asString(data["summary"])
	if ev.Detail == "" {
		ev.Detail = "No detail provided."
	}
	ev.Status = statusForScore(ev.Score)
	return nil
}

func normalizeNews(ev *Evidence, data map[string]any) error {
	mentions, ok := asFloat(data["scam_mentions"])
	if !ok {
		return fmt.Errorf("%w: news payload missing scam_mentions", ErrNormalizationFailed)
	}
	switch {
	case mentions >= 3:
		ev.Score = 75
		ev.Status = StatusSuspicious
	case mentions >= 1:
		ev.Score = 45
		ev.Status = StatusSuspicious
	default:
		ev.Score = 10
		ev.Status = StatusClean
	}
	ev.Confidence = 60
	ev.Detail = fmt.Sprintf("%.0f recent news results associate this item with scams.", mentions)
	if headline := asString(data["top_headline"]); headline != "" {
		ev.Detail += " Example: " + headline
	}
	return nil
}

func normalizeVoice(ev *Evidence, data map[string]any) error {
	prob, ok := asFloat(data["deepfake_probability"])
	if !ok || prob < 0 || prob > 1 {
		return fmt.Errorf("%w: voice payload missing deepfake_probability", ErrNormalizationFailed)
	}
	conf, okC := asFloat(data["confidence"])
	if !okC {
		conf = 75
	}
	ev.Score = clamp01(prob * 100)
	ev.Confidence = clamp01(conf)
	ev.Status = statusForScore(ev.Score)
	ev.Detail = fmt.Sprintf("Voice analysis estimates a %.0f%% probability of synthetic audio.", prob*100)
	return nil
}

func statusForScore(score float64) EvidenceStatus {
	switch {
	case score >= 70:
		return StatusMalicious
	case score >= 40:
		return StatusSuspicious
	default:
		return StatusClean
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
