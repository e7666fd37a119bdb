package intel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sentinel-intel/sentinel/internal/analysis"
)

func TestURLHausListedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostFormValue("url"); got != "https://evil.example/payload.exe" {
			t.Fatalf("unexpected url %q", got)
		}
		w.Write([]byte(`{"query_status":"ok","threat":"malware_download","url_status":"online"}`))
	}))
	defer srv.Close()

	src := NewURLHausSource("", WithEndpoint(srv.URL))
	raw, err := src.Query(context.Background(), analysis.InputArtifact{
		Raw: "https://evil.example/payload.exe", Kind: analysis.KindURL,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	ev, err := analysis.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Status != analysis.StatusMalicious {
		t.Fatalf("expected malicious evidence for a listed URL, got %s", ev.Status)
	}
}

func TestURLHausNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"query_status":"no_results"}`))
	}))
	defer srv.Close()

	src := NewURLHausSource("key", WithEndpoint(srv.URL))
	raw, err := src.Query(context.Background(), analysis.InputArtifact{
		Raw: "https://example.com", Kind: analysis.KindURL,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if raw.Data["query_status"] != "no_results" {
		t.Fatalf("unexpected payload %#v", raw.Data)
	}
}

func TestURLHausServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewURLHausSource("", WithEndpoint(srv.URL))
	if _, err := src.Query(context.Background(), analysis.InputArtifact{Raw: "https://example.com"}); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestURLHausNotApplicableToPhones(t *testing.T) {
	src := NewURLHausSource("")
	if src.Applicable(analysis.KindPhone) {
		t.Fatal("urlhaus must only see URLs")
	}
	if !src.Applicable(analysis.KindURL) {
		t.Fatal("urlhaus must accept URLs")
	}
}
