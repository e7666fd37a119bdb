package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sentinel-intel/sentinel/pkg/logging"
)

var twilioSendTracer = otel.Tracer("sentinel.internal.messaging.twilio_send")

// OutboundMessage is a reply headed back out through Twilio.
type OutboundMessage struct {
	To      string
	From    string
	Body    string
	Channel Channel
}

// Sender delivers verdict replies over SMS and WhatsApp.
type Sender interface {
	Send(ctx context.Context, msg OutboundMessage) (providerMessageID string, err error)
}

// TwilioSender posts messages using Twilio's REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
}

var _ Sender = (*TwilioSender)(nil)

// NewTwilioSender builds a sender with sane defaults.
func NewTwilioSender(accountSID, authToken, defaultFrom string, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       defaultFrom,
		endpoint:   fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", accountSID),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Send dispatches a single message, retrying transient failures. WhatsApp
// recipients get the channel prefix on both addresses.
func (s *TwilioSender) Send(ctx context.Context, msg OutboundMessage) (string, error) {
	if s.accountSID == "" || s.authToken == "" {
		return "", errors.New("messaging: twilio credentials missing")
	}
	if msg.To == "" {
		return "", errors.New("messaging: to required")
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if msg.From == "" {
		return "", errors.New("messaging: from required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return "", errors.New("messaging: body required")
	}

	ctx, span := twilioSendTracer.Start(ctx, "messaging.twilio.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("sentinel.channel", string(msg.Channel)),
	)

	payload := url.Values{}
	payload.Set("To", FormatAddress(msg.Channel, msg.To))
	payload.Set("From", FormatAddress(msg.Channel, msg.From))
	payload.Set("Body", msg.Body)

	var attempt int
	var lastErr error
	for attempt = 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID string `json:"sid"`
				}
				_ = json.Unmarshal(body, &parsed)
				s.logger.Info("twilio message sent", "channel", msg.Channel)
				return parsed.SID, nil
			}
			lastErr = fmt.Errorf("twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			sleep := time.Duration(200+rand.Intn(300)) * time.Millisecond
			time.Sleep(sleep)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return "", lastErr
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
