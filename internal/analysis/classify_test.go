package analysis

import "testing"

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		raw  string
		want Kind
	}{
		{"https://example.com", KindURL},
		{"http://evil.example/path?x=1", KindURL},
		{"www.example.co.uk", KindURL},
		{"example.com/login", KindURL},
		{"+1-800-123-4567", KindPhone},
		{"(415) 555-0123", KindPhone},
		{"+918005551234", KindPhone},
		{"Check this number", KindText},
		{"is this safe to click?", KindText},
		{"123", KindText},
	}
	for _, tc := range cases {
		got := Classify(tc.raw, "", "")
		if got.Kind != tc.want {
			t.Fatalf("Classify(%q): expected %s, got %s", tc.raw, tc.want, got.Kind)
		}
	}
}

func TestClassifyMediaHintWins(t *testing.T) {
	got := Classify("", "image", "en")
	if got.Kind != KindImage {
		t.Fatalf("expected image kind from hint, got %s", got.Kind)
	}
}

func TestDetectLanguage(t *testing.T) {
	if got := DetectLanguage("is this website safe?"); got != "en" {
		t.Fatalf("expected en, got %s", got)
	}
	if got := DetectLanguage("क्या यह वेबसाइट सुरक्षित है?"); got != "hi" {
		t.Fatalf("expected hi, got %s", got)
	}
	// Mixed text with a minority of Devanagari stays English.
	if got := DetectLanguage("please check example dot com अभी"); got != "en" {
		t.Fatalf("expected en for mostly-latin text, got %s", got)
	}
}

func TestIsFollowUp(t *testing.T) {
	if !IsFollowUp("what should I do?") {
		t.Fatal("short question should be a follow-up")
	}
	if IsFollowUp("https://example.com") {
		t.Fatal("a URL is never a follow-up")
	}
	if IsFollowUp("also check +1-800-123-4567 please") {
		t.Fatal("text carrying a phone number is never a follow-up")
	}
	if IsFollowUp("I received a long message from someone claiming to be my bank asking me to confirm details") {
		t.Fatal("long text should trigger a fresh analysis")
	}
}
