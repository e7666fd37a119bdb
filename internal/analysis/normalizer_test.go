package analysis

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeURLHausListed(t *testing.T) {
	ev, err := Normalize(RawResult{SourceID: SourceURLHaus, Data: map[string]any{
		"query_status": "ok",
		"threat":       "malware_download",
	}})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Status != StatusMalicious {
		t.Fatalf("expected malicious, got %s", ev.Status)
	}
	if ev.Weight != 0.25 {
		t.Fatalf("expected urlhaus weight 0.25, got %v", ev.Weight)
	}
	if !strings.Contains(ev.Detail, "malware_download") {
		t.Fatalf("expected threat in detail, got %q", ev.Detail)
	}
}

func TestNormalizeURLHausClean(t *testing.T) {
	ev, err := Normalize(RawResult{SourceID: SourceURLHaus, Data: map[string]any{
		"query_status": "no_results",
	}})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Status != StatusClean || ev.Score >= 30 {
		t.Fatalf("expected clean low-score evidence, got %#v", ev)
	}
}

func TestNormalizeVirusTotalEngineRatio(t *testing.T) {
	// 10 malicious, 5 suspicious, 55 harmless: (10*2+5)/70*100 ≈ 35.7.
	ev, err := Normalize(RawResult{SourceID: SourceVirusTotal, Data: map[string]any{
		"malicious":  float64(10),
		"suspicious": float64(5),
		"harmless":   float64(55),
	}})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Status != StatusMalicious {
		t.Fatalf("expected malicious with nonzero engine hits, got %s", ev.Status)
	}
	if ev.Score < 35 || ev.Score > 36 {
		t.Fatalf("expected score ≈35.7, got %v", ev.Score)
	}
	if ev.Weight != 0.35 {
		t.Fatalf("expected virustotal weight 0.35, got %v", ev.Weight)
	}
}

func TestNormalizeVirusTotalUnanalyzed(t *testing.T) {
	ev, err := Normalize(RawResult{SourceID: SourceVirusTotal, Data: map[string]any{
		"malicious":  float64(0),
		"suspicious": float64(0),
		"harmless":   float64(0),
	}})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Status != StatusInconclusive {
		t.Fatalf("expected inconclusive for zero engines, got %s", ev.Status)
	}
}

func TestNormalizeScoredSources(t *testing.T) {
	for _, id := range []string{SourcePhoneSearch, SourceLLM} {
		ev, err := Normalize(RawResult{SourceID: id, Data: map[string]any{
			"score":      float64(72),
			"confidence": float64(65),
			"summary":    "multiple scam reports found",
		}})
		if err != nil {
			t.Fatalf("normalize %s: %v", id, err)
		}
		if ev.Status != StatusMalicious {
			t.Fatalf("%s: expected malicious for score 72, got %s", id, ev.Status)
		}
		if ev.Detail != "multiple scam reports found" {
			t.Fatalf("%s: unexpected detail %q", id, ev.Detail)
		}
	}
}

func TestNormalizeNews(t *testing.T) {
	ev, err := Normalize(RawResult{SourceID: SourceNews, Data: map[string]any{
		"scam_mentions": float64(4),
		"top_headline":  "New phishing wave hits bank customers",
	}})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Status != StatusSuspicious {
		t.Fatalf("expected suspicious for repeated mentions, got %s", ev.Status)
	}
	if !strings.Contains(ev.Detail, "phishing wave") {
		t.Fatalf("expected headline in detail, got %q", ev.Detail)
	}
}

func TestNormalizeVoice(t *testing.T) {
	ev, err := Normalize(RawResult{SourceID: SourceVoice, Data: map[string]any{
		"deepfake_probability": 0.87,
		"confidence":           float64(80),
	}})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Status != StatusMalicious {
		t.Fatalf("expected malicious for high deepfake probability, got %s", ev.Status)
	}
	if ev.Weight != 0.40 {
		t.Fatalf("expected voice weight 0.40, got %v", ev.Weight)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := RawResult{SourceID: SourceVirusTotal, Data: map[string]any{
		"malicious":  float64(3),
		"suspicious": float64(1),
		"harmless":   float64(66),
	}}
	first, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	second, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical evidence, got %#v vs %#v", first, second)
	}
}

func TestNormalizeFailures(t *testing.T) {
	cases := []RawResult{
		{SourceID: "unknown_source", Data: map[string]any{"x": 1}},
		{SourceID: SourceURLHaus, Data: nil},
		{SourceID: SourceURLHaus, Data: map[string]any{"query_status": "http_post_expected"}},
		{SourceID: SourceVirusTotal, Data: map[string]any{"malicious": "three"}},
		{SourceID: SourcePhoneSearch, Data: map[string]any{"summary": "no score"}},
	}
	for _, raw := range cases {
		if _, err := Normalize(raw); !errors.Is(err, ErrNormalizationFailed) {
			t.Fatalf("%s: expected ErrNormalizationFailed, got %v", raw.SourceID, err)
		}
	}
}
