package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/sentinel-intel/sentinel/internal/config"
	"github.com/sentinel-intel/sentinel/internal/notify"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// BuildAlertService wires the critical-verdict alert service. Returns nil
// when alerting is unconfigured.
func BuildAlertService(awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) *notify.Service {
	if cfg.AlertRecipient == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.AlertFromEmail,
			FromName:  cfg.AlertFromName,
		}, logger); sg != nil {
			sender = sg
		}
	case "ses":
		if ses := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.AlertFromEmail,
			FromName:  cfg.AlertFromName,
		}, logger); ses != nil {
			sender = ses
		}
	}
	if sender == nil {
		logger.Warn("alert recipient set but no usable email provider, alerting disabled",
			"provider", cfg.EmailProvider)
		return nil
	}

	return notify.NewService(sender, notify.Config{RecipientEmail: cfg.AlertRecipient}, logger)
}
