package messaging

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func signedRequest(t *testing.T, webhookURL, authToken string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, webhookURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	payload := buildSignaturePayload(webhookURL, form)
	req.Header.Set("X-Twilio-Signature", computeSignature(payload, authToken))
	return req
}

func TestValidateTwilioSignature(t *testing.T) {
	form := url.Values{
		"MessageSid": {"SM123"},
		"From":       {"+15550001111"},
		"Body":       {"check https://example.com"},
	}
	webhookURL := "https://sentinel.example/webhooks/twilio/messages"

	req := signedRequest(t, webhookURL, "token", form)
	if !ValidateTwilioSignature(req, "token", webhookURL) {
		t.Fatal("expected valid signature to pass")
	}

	req = signedRequest(t, webhookURL, "wrong-token", form)
	if ValidateTwilioSignature(req, "token", webhookURL) {
		t.Fatal("expected signature from wrong token to fail")
	}

	req = httptest.NewRequest(http.MethodPost, webhookURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if ValidateTwilioSignature(req, "token", webhookURL) {
		t.Fatal("expected missing signature to fail")
	}
}

func TestParseTwilioWebhookSMS(t *testing.T) {
	form := url.Values{
		"MessageSid": {"SM123"},
		"From":       {"+15550001111"},
		"To":         {"+15559990000"},
		"Body":       {"is this safe?"},
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	msg, err := ParseTwilioWebhook(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Channel != ChannelSMS {
		t.Fatalf("expected sms channel, got %s", msg.Channel)
	}
	if msg.Identity != "+15550001111" {
		t.Fatalf("unexpected identity %q", msg.Identity)
	}
}

func TestParseTwilioWebhookWhatsApp(t *testing.T) {
	form := url.Values{
		"MessageSid": {"SM456"},
		"From":       {"whatsapp:+15550001111"},
		"To":         {"whatsapp:+15559990000"},
		"Body":       {"check this"},
		"NumMedia":   {"1"},
		"MediaUrl0":  {"https://api.twilio.com/media/ME1"},
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	msg, err := ParseTwilioWebhook(req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Channel != ChannelWhatsApp {
		t.Fatalf("expected whatsapp channel, got %s", msg.Channel)
	}
	if msg.Identity != "+15550001111" {
		t.Fatalf("whatsapp prefix must be stripped from identity, got %q", msg.Identity)
	}
	if len(msg.MediaURLs) != 1 {
		t.Fatalf("expected one media url, got %v", msg.MediaURLs)
	}
}

func TestFormatAddress(t *testing.T) {
	if got := FormatAddress(ChannelWhatsApp, "+1555"); got != "whatsapp:+1555" {
		t.Fatalf("unexpected whatsapp address %q", got)
	}
	if got := FormatAddress(ChannelSMS, "+1555"); got != "+1555" {
		t.Fatalf("unexpected sms address %q", got)
	}
}
