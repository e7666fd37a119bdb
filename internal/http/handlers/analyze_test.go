package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sentinel-intel/sentinel/internal/analysis"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

type stubAnalyzer struct {
	result  *analysis.Result
	err     error
	lastReq analysis.Request
	calls   int
}

func (s *stubAnalyzer) Analyze(_ context.Context, req analysis.Request) (*analysis.Result, error) {
	s.calls++
	s.lastReq = req
	return s.result, s.err
}

func highResult() *analysis.Result {
	return &analysis.Result{
		Verdict: analysis.RiskVerdict{
			Level:           analysis.RiskHigh,
			Confidence:      82,
			Summary:         "Combined risk is HIGH.",
			Recommendations: []string{"Do not click links, reply, or send money."},
		},
		Language: "en",
	}
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeHandlerReturnsVerdict(t *testing.T) {
	azr := &stubAnalyzer{result: highResult()}
	h := NewAnalyzeHandler(azr, logging.Default())

	rec := postJSON(t, h, `{"message":"check https://evil.example","session_id":"web-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["risk_level"] != "high" {
		t.Fatalf("unexpected risk_level %v", body["risk_level"])
	}
	if azr.lastReq.Identity != "web-1" {
		t.Fatalf("unexpected identity %q", azr.lastReq.Identity)
	}
}

func TestAnalyzeHandlerRejectsBadJSON(t *testing.T) {
	h := NewAnalyzeHandler(&stubAnalyzer{result: highResult()}, logging.Default())
	rec := postJSON(t, h, `{"message":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeHandlerEmptyMessage(t *testing.T) {
	azr := &stubAnalyzer{result: highResult()}
	h := NewAnalyzeHandler(azr, logging.Default())

	rec := postJSON(t, h, `{"message":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if azr.calls != 0 {
		t.Fatal("empty message must not reach the analyzer")
	}
}

func TestAnalyzeHandlerFailureIsGeneric(t *testing.T) {
	azr := &stubAnalyzer{err: analysis.ErrExtractionFailed}
	h := NewAnalyzeHandler(azr, logging.Default())

	rec := postJSON(t, h, `{"message":"check example.com"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	body := strings.ToLower(rec.Body.String())
	if strings.Contains(body, "extraction") || strings.Contains(body, "urlhaus") {
		t.Fatalf("error response leaks internals: %s", rec.Body.String())
	}
}
