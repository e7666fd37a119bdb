package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AnalysisMetrics exposes counters/histograms for the analysis pipeline.
type AnalysisMetrics struct {
	analysisDuration *prometheus.HistogramVec
	sourceFailures   *prometheus.CounterVec
	followUpsTotal   prometheus.Counter
	webhookTotal     *prometheus.CounterVec
	repliesTotal     *prometheus.CounterVec
}

func NewAnalysisMetrics(reg prometheus.Registerer) *AnalysisMetrics {
	m := &AnalysisMetrics{
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sentinel",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "End-to-end analysis duration by input kind and verdict level",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "level"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "analysis",
			Name:      "source_failures_total",
			Help:      "Intelligence source queries that errored or timed out",
		}, []string{"source"}),
		followUpsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "analysis",
			Name:      "follow_ups_total",
			Help:      "Messages answered from a stored session verdict",
		}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound Twilio webhooks",
		}, []string{"channel", "status"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "messaging",
			Name:      "replies_total",
			Help:      "Total outbound Twilio replies",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.analysisDuration, m.sourceFailures, m.followUpsTotal, m.webhookTotal, m.repliesTotal)
	return m
}

func (m *AnalysisMetrics) ObserveAnalysis(kind, level string, duration time.Duration) {
	if m == nil {
		return
	}
	m.analysisDuration.WithLabelValues(kind, level).Observe(duration.Seconds())
}

func (m *AnalysisMetrics) RecordSourceFailure(sourceID string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(sourceID).Inc()
}

func (m *AnalysisMetrics) RecordFollowUp() {
	if m == nil {
		return
	}
	m.followUpsTotal.Inc()
}

func (m *AnalysisMetrics) ObserveWebhook(channel, status string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(channel, status).Inc()
}

func (m *AnalysisMetrics) ObserveReply(channel, status string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(channel, status).Inc()
}
