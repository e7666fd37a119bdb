package notify

import (
	"context"

	"github.com/sentinel-intel/sentinel/internal/analysis"
)

// AlertingAnalyzer decorates an analyzer with critical-verdict alerting.
// Alert failures are logged inside the service and never fail the analysis.
type AlertingAnalyzer struct {
	inner   analysis.Analyzer
	alerts  *Service
	channel string
}

// WrapAnalyzer attaches the alert service to an analyzer. The channel label
// only affects the alert email text.
func WrapAnalyzer(inner analysis.Analyzer, alerts *Service, channel string) *AlertingAnalyzer {
	return &AlertingAnalyzer{inner: inner, alerts: alerts, channel: channel}
}

func (a *AlertingAnalyzer) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	result, err := a.inner.Analyze(ctx, req)
	if err == nil {
		_ = a.alerts.AlertIfCritical(ctx, req.Identity, a.channel, result)
	}
	return result, err
}

var _ analysis.Analyzer = (*AlertingAnalyzer)(nil)
