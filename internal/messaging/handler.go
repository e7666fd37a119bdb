package messaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sentinel-intel/sentinel/internal/analysis"
	"github.com/sentinel-intel/sentinel/internal/render"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// WebhookHandler receives Twilio message webhooks, runs the analysis, and
// replies over the same channel via the REST sender. The webhook response
// itself is always empty TwiML; replies go out of band.
type WebhookHandler struct {
	analyzer   analysis.Analyzer
	sender     Sender
	store      *Store
	metrics    ChannelMetrics
	logger     *logging.Logger
	authToken  string
	accountSID string
	webhookURL string
	validate   bool
	httpClient *http.Client
}

// WebhookOption configures the handler.
type WebhookOption func(*WebhookHandler)

// WithSignatureValidation enables Twilio signature checks against the given
// public webhook URL.
func WithSignatureValidation(webhookURL string) WebhookOption {
	return func(h *WebhookHandler) {
		h.webhookURL = webhookURL
		h.validate = webhookURL != ""
	}
}

// WithDeliveryLog wires the Postgres delivery log. Without it the handler
// still works, it just keeps no audit trail and cannot dedupe redeliveries.
func WithDeliveryLog(store *Store) WebhookOption {
	return func(h *WebhookHandler) { h.store = store }
}

// ChannelMetrics counts inbound webhooks and outbound replies per channel.
type ChannelMetrics interface {
	ObserveWebhook(channel, status string)
	ObserveReply(channel, status string)
}

// WithChannelMetrics wires webhook/reply counters.
func WithChannelMetrics(m ChannelMetrics) WebhookOption {
	return func(h *WebhookHandler) { h.metrics = m }
}

func NewWebhookHandler(analyzer analysis.Analyzer, sender Sender, accountSID, authToken string, logger *logging.Logger, opts ...WebhookOption) *WebhookHandler {
	if analyzer == nil {
		panic("messaging: analyzer cannot be nil")
	}
	if sender == nil {
		panic("messaging: sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &WebhookHandler{
		analyzer:   analyzer,
		sender:     sender,
		logger:     logger,
		accountSID: accountSID,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.validate && !ValidateTwilioSignature(r, h.authToken, h.webhookURL) {
		h.logger.Warn("twilio signature validation failed")
		h.observeWebhook("", "forbidden")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	msg, err := ParseTwilioWebhook(r)
	if err != nil {
		h.logger.Error("webhook parse failed", "error", err)
		h.observeWebhook("", "bad_request")
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	h.observeWebhook(string(msg.Channel), "accepted")
	h.process(r.Context(), msg)

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, emptyTwiML)
}

func (h *WebhookHandler) process(ctx context.Context, msg *InboundMessage) {
	if h.store != nil {
		seen, err := h.store.HasProviderMessage(ctx, msg.MessageSid)
		if err != nil {
			h.logger.Error("dedupe lookup failed", "error", err)
		} else if seen {
			h.logger.Debug("dropping redelivered webhook", "message_sid", msg.MessageSid)
			return
		}
	}

	language := analysis.DetectLanguage(msg.Body)
	h.logMessage(ctx, msg.Channel, msg.Identity, "inbound", msg.Body, "", msg.MessageSid)

	req, ok := h.buildRequest(ctx, msg)
	if !ok {
		h.reply(ctx, msg, render.EmptyPrompt(language), "")
		return
	}

	res, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		h.logger.Error("channel analysis failed", "channel", msg.Channel, "error", err)
		h.reply(ctx, msg, render.GenericError(language), "")
		return
	}

	h.reply(ctx, msg, render.SMS(res), string(res.Verdict.Level))
}

// buildRequest assembles the analysis request, downloading the first media
// attachment when present. A message with no text and no usable media yields
// ok=false.
func (h *WebhookHandler) buildRequest(ctx context.Context, msg *InboundMessage) (analysis.Request, bool) {
	req := analysis.Request{
		Identity: msg.Identity,
		Raw:      strings.TrimSpace(msg.Body),
	}

	if len(msg.MediaURLs) > 0 {
		media, kind, err := h.fetchMedia(ctx, msg.MediaURLs[0])
		if err != nil {
			h.logger.Warn("media download failed", "error", err)
		} else {
			req.Media = media
			req.KindHint = string(kind)
		}
	}

	if req.Raw == "" && len(req.Media) == 0 {
		return analysis.Request{}, false
	}
	return req, true
}

// fetchMedia downloads a Twilio media attachment with account credentials.
func (h *WebhookHandler) fetchMedia(ctx context.Context, mediaURL string) ([]byte, analysis.Kind, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("messaging: media request build failed: %w", err)
	}
	req.SetBasicAuth(h.accountSID, h.authToken)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("messaging: media download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("messaging: media download: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, "", fmt.Errorf("messaging: media read failed: %w", err)
	}

	kind := analysis.KindImage
	switch {
	case strings.HasPrefix(resp.Header.Get("Content-Type"), "audio/"):
		kind = analysis.KindAudio
	case strings.HasPrefix(resp.Header.Get("Content-Type"), "video/"):
		kind = analysis.KindVideo
	}
	return data, kind, nil
}

func (h *WebhookHandler) reply(ctx context.Context, msg *InboundMessage, body, riskLevel string) {
	providerID, err := h.sender.Send(ctx, OutboundMessage{
		To:      msg.Identity,
		From:    strings.TrimPrefix(msg.To, "whatsapp:"),
		Body:    body,
		Channel: msg.Channel,
	})
	if err != nil {
		h.logger.Error("reply send failed", "channel", msg.Channel, "error", err)
		h.observeReply(string(msg.Channel), "failed")
		return
	}
	h.observeReply(string(msg.Channel), "sent")
	h.logMessage(ctx, msg.Channel, msg.Identity, "outbound", body, riskLevel, providerID)
}

func (h *WebhookHandler) observeWebhook(channel, status string) {
	if h.metrics != nil {
		h.metrics.ObserveWebhook(channel, status)
	}
}

func (h *WebhookHandler) observeReply(channel, status string) {
	if h.metrics != nil {
		h.metrics.ObserveReply(channel, status)
	}
}

func (h *WebhookHandler) logMessage(ctx context.Context, channel Channel, identity, direction, body, riskLevel, providerID string) {
	if h.store == nil {
		return
	}
	_, err := h.store.InsertMessage(ctx, MessageRecord{
		Channel:           channel,
		Identity:          identity,
		Direction:         direction,
		Body:              body,
		RiskLevel:         riskLevel,
		ProviderMessageID: providerID,
	})
	if err != nil {
		h.logger.Error("delivery log insert failed", "error", err)
	}
}
