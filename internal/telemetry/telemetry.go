// Package telemetry exports Prometheus metrics for distribution, rule
// evaluation, and alerting.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tonearm/labelcore/internal/models"
)

// Metrics holds all labelcore Prometheus metrics
type Metrics struct {
	// Distribution metrics
	JobsDispatched    prometheus.Counter
	JobFanOut         prometheus.Histogram
	ResultsRecorded   *prometheus.CounterVec
	JobDuration       prometheus.Histogram
	AdapterErrors     *prometheus.CounterVec
	JobsActive        prometheus.Gauge

	// Rule engine metrics
	RulesEvaluated   prometheus.Counter
	RulesFired       *prometheus.CounterVec
	EvaluationErrors prometheus.Counter
	PriceAdjustments *prometheus.CounterVec

	// Alerting metrics
	AlertsFired        *prometheus.CounterVec
	AlertsAcknowledged prometheus.Counter

	// Metrics feed
	FeedRefreshDuration prometheus.Histogram
	FeedRefreshFailed   *prometheus.CounterVec
}

// Provider wraps the metric set.
type Provider struct {
	Metrics *Metrics
}

// NewProvider initializes telemetry with Prometheus metrics
func NewProvider() *Provider {
	m := &Metrics{}
	initDistributionMetrics(m)
	initRuleMetrics(m)
	initAlertMetrics(m)
	initFeedMetrics(m)
	return &Provider{Metrics: m}
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initDistributionMetrics(m *Metrics) {
	m.JobsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labelcore_jobs_dispatched_total",
		Help: "Total distribution jobs started",
	})

	m.JobFanOut = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "labelcore_job_fanout_platforms",
		Help:    "Number of target platforms per dispatched job",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})

	m.ResultsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labelcore_results_recorded_total",
		Help: "Total platform results recorded, by platform and status",
	}, []string{"platform", "status"})

	m.JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "labelcore_job_duration_seconds",
		Help:    "Time from dispatch to job completion",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	m.AdapterErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labelcore_adapter_errors_total",
		Help: "Adapter publish failures, by platform and error class",
	}, []string{"platform", "error_class"})

	m.JobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "labelcore_jobs_active",
		Help: "Distribution jobs currently in flight",
	})
}

func initRuleMetrics(m *Metrics) {
	m.RulesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labelcore_rules_evaluated_total",
		Help: "Total optimization rule evaluations",
	})

	m.RulesFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labelcore_rules_fired_total",
		Help: "Total optimization rules whose conditions matched, by action kind",
	}, []string{"action"})

	m.EvaluationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labelcore_rule_evaluation_errors_total",
		Help: "Rule evaluations skipped due to malformed clauses or unknown metrics",
	})

	m.PriceAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labelcore_price_adjustments_total",
		Help: "Price changes applied by rules, by platform and direction",
	}, []string{"platform", "direction"})
}

func initAlertMetrics(m *Metrics) {
	m.AlertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labelcore_alerts_fired_total",
		Help: "Alerts fired, by platform and severity",
	}, []string{"platform", "severity"})

	m.AlertsAcknowledged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "labelcore_alerts_acknowledged_total",
		Help: "Alerts acknowledged via the API",
	})
}

func initFeedMetrics(m *Metrics) {
	m.FeedRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "labelcore_feed_refresh_duration_seconds",
		Help:    "Time to pull one platform's metrics into the feed",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	m.FeedRefreshFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "labelcore_feed_refresh_failed_total",
		Help: "Metric feed refresh failures, by platform",
	}, []string{"platform"})
}

// JobDispatched records a new job and its fan-out width.
func (p *Provider) JobDispatched(platformCount int) {
	p.Metrics.JobsDispatched.Inc()
	p.Metrics.JobFanOut.Observe(float64(platformCount))
	p.Metrics.JobsActive.Inc()
}

// ResultRecorded counts one platform outcome.
func (p *Provider) ResultRecorded(platformKey string, status models.ResultStatus) {
	p.Metrics.ResultsRecorded.WithLabelValues(platformKey, string(status)).Inc()
}

// JobCompleted records the end-to-end job duration.
func (p *Provider) JobCompleted(duration time.Duration) {
	p.Metrics.JobDuration.Observe(duration.Seconds())
	p.Metrics.JobsActive.Dec()
}

// RecordAdapterError counts a publish failure by error class.
func (p *Provider) RecordAdapterError(platformKey string, class models.ErrorClass) {
	p.Metrics.AdapterErrors.WithLabelValues(platformKey, string(class)).Inc()
}

// RecordEvaluation counts one rule engine pass.
func (p *Provider) RecordEvaluation(fired []models.AppliedAction, warnings int) {
	p.Metrics.RulesEvaluated.Inc()
	p.Metrics.EvaluationErrors.Add(float64(warnings))
	for _, action := range fired {
		p.Metrics.RulesFired.WithLabelValues(string(action.Kind)).Inc()
		switch action.Kind {
		case models.ActionPriceIncrease:
			p.Metrics.PriceAdjustments.WithLabelValues(action.PlatformKey, "up").Inc()
		case models.ActionPriceDecrease:
			p.Metrics.PriceAdjustments.WithLabelValues(action.PlatformKey, "down").Inc()
		}
	}
}

// RecordAlert counts a fired alert.
func (p *Provider) RecordAlert(platformKey string, severity models.Severity) {
	p.Metrics.AlertsFired.WithLabelValues(platformKey, string(severity)).Inc()
}

// RecordAcknowledge counts an alert acknowledgement.
func (p *Provider) RecordAcknowledge() {
	p.Metrics.AlertsAcknowledged.Inc()
}

// RecordFeedRefresh records one platform metric pull.
func (p *Provider) RecordFeedRefresh(platformKey string, duration time.Duration, err error) {
	p.Metrics.FeedRefreshDuration.Observe(duration.Seconds())
	if err != nil {
		p.Metrics.FeedRefreshFailed.WithLabelValues(platformKey).Inc()
	}
}
