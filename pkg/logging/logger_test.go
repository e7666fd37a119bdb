package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		level   string
		debugOK bool
	}{
		{"debug", true},
		{"info", false},
		{"WARN", false},
		{"bogus", false},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		logger := NewWithWriter(tc.level, &buf)
		logger.Debug("probe")
		got := buf.Len() > 0
		if got != tc.debugOK {
			t.Fatalf("level %q: debug emitted=%v, want %v", tc.level, got, tc.debugOK)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf)
	logger.Info("hello", "source", "urlhaus")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["msg"] != "hello" {
		t.Fatalf("expected msg hello, got %v", record["msg"])
	}
	if record["source"] != "urlhaus" {
		t.Fatalf("expected source attribute, got %v", record["source"])
	}
}

func TestWithCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf).With("channel", "sms")
	logger.Info("inbound")
	if !strings.Contains(buf.String(), `"channel":"sms"`) {
		t.Fatalf("expected channel attribute in output, got %s", buf.String())
	}
}
