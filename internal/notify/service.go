package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinel-intel/sentinel/internal/analysis"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// Service sends operator alerts when an analysis produces a critical verdict.
// All methods are nil-safe so callers can hold an unconfigured *Service.
type Service struct {
	sender    EmailSender
	recipient string
	logger    *logging.Logger
}

// Config holds alerting configuration.
type Config struct {
	// RecipientEmail receives critical-verdict alerts. Empty disables alerting.
	RecipientEmail string
}

// NewService creates an alert service. Returns nil when no recipient is
// configured or no sender is available, which disables alerting.
func NewService(sender EmailSender, cfg Config, logger *logging.Logger) *Service {
	if sender == nil || cfg.RecipientEmail == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sender:    sender,
		recipient: cfg.RecipientEmail,
		logger:    logger,
	}
}

// AlertIfCritical emails the operator when the verdict is critical.
// Non-critical verdicts and unconfigured services are no-ops.
func (s *Service) AlertIfCritical(ctx context.Context, identity, channel string, result *analysis.Result) error {
	if s == nil || result == nil {
		return nil
	}
	if result.Verdict.Level != analysis.RiskCritical {
		return nil
	}

	msg := EmailMessage{
		To:      s.recipient,
		Subject: fmt.Sprintf("[Sentinel] CRITICAL verdict on %s", channelLabel(channel)),
		Body:    buildAlertBody(identity, channel, result),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("critical alert email failed", "error", err, "identity", identity)
		return fmt.Errorf("notify: critical alert: %w", err)
	}
	s.logger.Info("critical alert sent", "identity", identity, "channel", channel)
	return nil
}

func buildAlertBody(identity, channel string, result *analysis.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A critical risk verdict was produced.\n\n")
	fmt.Fprintf(&b, "Channel: %s\n", channelLabel(channel))
	if identity != "" {
		fmt.Fprintf(&b, "User: %s\n", identity)
	}
	fmt.Fprintf(&b, "Input kind: %s\n", result.Artifact.Kind)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n\n", result.Verdict.Confidence)
	fmt.Fprintf(&b, "Summary: %s\n", result.Verdict.Summary)

	if len(result.Verdict.Reasoning) > 0 {
		b.WriteString("\nReasoning:\n")
		for _, line := range result.Verdict.Reasoning {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}
	if len(result.Verdict.Uncertainties) > 0 {
		b.WriteString("\nUncertainties:\n")
		for _, line := range result.Verdict.Uncertainties {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}
	return b.String()
}

func channelLabel(channel string) string {
	if channel == "" {
		return "unknown"
	}
	return channel
}
