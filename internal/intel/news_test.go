package intel

import (
	"context"
	"strings"
	"testing"

	"github.com/sentinel-intel/sentinel/internal/analysis"
)

func TestNewsSourceMentions(t *testing.T) {
	client, lastQuery := newSerperStub(t, []SearchResult{
		{Title: "New phishing campaign abuses example.com lookalikes", Snippet: "scam wave"},
		{Title: "Fraud ring dismantled", Snippet: "linked to fake parcel texts"},
		{Title: "Unrelated tech story", Snippet: "quarterly earnings"},
	})

	src := NewNewsSource(client)
	raw, err := src.Query(context.Background(), analysis.InputArtifact{
		Raw: "your parcel is waiting, pay the customs fee", Kind: analysis.KindText,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if !strings.Contains(*lastQuery, "scam news") {
		t.Fatalf("expected a scam news query, got %q", *lastQuery)
	}
	if raw.Data["scam_mentions"] != float64(2) {
		t.Fatalf("expected 2 mentions, got %v", raw.Data["scam_mentions"])
	}

	ev, err := analysis.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Status != analysis.StatusSuspicious {
		t.Fatalf("expected suspicious, got %s", ev.Status)
	}
}

func TestNewsSourceApplicability(t *testing.T) {
	client, _ := newSerperStub(t, nil)
	src := NewNewsSource(client)

	if src.Applicable(analysis.KindPhone) {
		t.Fatal("phone reputation belongs to the phone source, not news")
	}
	if !src.Applicable(analysis.KindText) || !src.Applicable(analysis.KindURL) {
		t.Fatal("news should cover text and URLs")
	}
}
