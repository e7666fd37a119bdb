package messaging

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Channel identifies the transport a message arrived on.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWeb      Channel = "web"
)

// ValidateTwilioSignature validates that a request came from Twilio.
func ValidateTwilioSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}

	if err := r.ParseForm(); err != nil {
		return false
	}

	payload := buildSignaturePayload(webhookURL, r.PostForm)
	expected := computeSignature(payload, authToken)

	return hmac.Equal([]byte(signature), []byte(expected))
}

// buildSignaturePayload concatenates the URL with the sorted form params,
// per Twilio's signing scheme.
func buildSignaturePayload(url string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(url)

	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	return payload.String()
}

func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// InboundMessage is a parsed Twilio webhook. Identity is the sender address
// without any channel prefix, so SMS and WhatsApp turns from the same number
// share one conversation session.
type InboundMessage struct {
	MessageSid string
	AccountSid string
	From       string
	To         string
	Body       string
	Channel    Channel
	Identity   string
	NumMedia   string
	MediaURLs  []string
}

// ParseTwilioWebhook parses an inbound Twilio message webhook.
func ParseTwilioWebhook(r *http.Request) (*InboundMessage, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse form: %w", err)
	}

	msg := &InboundMessage{
		MessageSid: r.FormValue("MessageSid"),
		AccountSid: r.FormValue("AccountSid"),
		From:       r.FormValue("From"),
		To:         r.FormValue("To"),
		Body:       r.FormValue("Body"),
		NumMedia:   r.FormValue("NumMedia"),
	}
	msg.Channel, msg.Identity = splitAddress(msg.From)

	if n := msg.NumMedia; n != "" && n != "0" {
		for i := 0; ; i++ {
			u := r.FormValue(fmt.Sprintf("MediaUrl%d", i))
			if u == "" {
				break
			}
			msg.MediaURLs = append(msg.MediaURLs, u)
		}
	}

	return msg, nil
}

// splitAddress maps "whatsapp:+1555..." to (whatsapp, +1555...) and a bare
// number to (sms, number).
func splitAddress(addr string) (Channel, string) {
	if rest, ok := strings.CutPrefix(addr, "whatsapp:"); ok {
		return ChannelWhatsApp, rest
	}
	return ChannelSMS, addr
}

// FormatAddress is the inverse of splitAddress.
func FormatAddress(channel Channel, identity string) string {
	if channel == ChannelWhatsApp && !strings.HasPrefix(identity, "whatsapp:") {
		return "whatsapp:" + identity
	}
	return identity
}
