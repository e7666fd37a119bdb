package analysis

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlPattern = regexp.MustCompile(`(?i)^(?:https?://|www\.)\S+$|^[a-z0-9][a-z0-9.-]*\.[a-z]{2,}(?:/\S*)?$`)

	// Accepts E.164-ish numbers with optional separators, 7 to 15 digits.
	phonePattern = regexp.MustCompile(`^\+?\(?[0-9][0-9()\s.-]{4,18}[0-9]$`)

	phoneDigits = regexp.MustCompile(`[0-9]`)
)

// Classify turns a raw submission into a typed artifact. Media kinds are
// never inferred here; callers that accept uploads tag those explicitly.
func Classify(raw, kindHint, language string) InputArtifact {
	trimmed := strings.TrimSpace(raw)
	art := InputArtifact{Raw: trimmed, Language: language}

	if hint := Kind(kindHint); hint.IsMedia() {
		art.Kind = hint
		return art
	}

	switch {
	case looksLikeURL(trimmed):
		art.Kind = KindURL
	case looksLikePhone(trimmed):
		art.Kind = KindPhone
	default:
		art.Kind = KindText
	}

	if art.Language == "" {
		art.Language = DetectLanguage(trimmed)
	}
	return art
}

func looksLikeURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return false
	}
	return urlPattern.MatchString(s)
}

func looksLikePhone(s string) bool {
	if !phonePattern.MatchString(s) {
		return false
	}
	n := len(phoneDigits.FindAllString(s, -1))
	return n >= 7 && n <= 15
}

// DetectLanguage returns "hi" when more than a fifth of the letters are
// Devanagari, otherwise "en".
func DetectLanguage(s string) string {
	var letters, devanagari int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Devanagari, r) {
			devanagari++
		}
	}
	if letters > 0 && float64(devanagari)/float64(letters) > 0.2 {
		return "hi"
	}
	return "en"
}

// IsFollowUp reports whether an utterance from a live session should be
// answered from the stored verdict instead of re-running signal sources.
// Short free text that carries no new URL or phone number qualifies.
func IsFollowUp(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > 60 {
		return false
	}
	if looksLikeURL(trimmed) || looksLikePhone(trimmed) {
		return false
	}
	for _, tok := range strings.Fields(trimmed) {
		if looksLikeURL(tok) || looksLikePhone(tok) {
			return false
		}
	}
	return true
}
