package observability

import (
	"time"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const (
	metricMessages    = "chat_messages_total"
	metricStoreErrors = "chat_session_store_errors_total"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	messages        *prometheus.CounterVec
	routeDuration   prometheus.Histogram
	storeErrors     *prometheus.CounterVec
	sessionsStarted prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		messages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricMessages,
				Help: "Chat messages processed, by resolved intent and match stage.",
			},
			[]string{"intent", "stage"},
		),
		routeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chat_route_duration_seconds",
				Help:    "Time spent handling one chat turn.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricStoreErrors,
				Help: "Session store failures, by operation.",
			},
			[]string{"op"},
		),
		sessionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_sessions_started_total",
				Help: "Chat sessions opened.",
			},
		),
	}
}

// RecordMessage counts one routed message and its handling time.
func (m *Metrics) RecordMessage(intent, stage string, d time.Duration) {
	m.messages.WithLabelValues(intent, stage).Inc()
	m.routeDuration.Observe(d.Seconds())
}

// IncrSessionStarted counts a new chat session.
func (m *Metrics) IncrSessionStarted() {
	m.sessionsStarted.Inc()
}

// IncrStoreError counts a failed session store operation (load, save, delete).
func (m *Metrics) IncrStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// GetChatSnapshot returns a snapshot of the chat counters suitable for the
// GET /v1/metrics/chat endpoint.
func (m *Metrics) GetChatSnapshot() *domain.ChatMetrics {
	snap := &domain.ChatMetrics{
		ByIntent: map[string]int64{},
		ByStage:  map[string]int64{},
		Period:   "all_time",
	}

	families, err := m.Registry.Gather()
	if err != nil {
		return snap
	}

	for _, mf := range families {
		switch mf.GetName() {
		case metricMessages:
			for _, metric := range mf.GetMetric() {
				v := int64(metric.GetCounter().GetValue())
				snap.TotalMessages += v
				snap.ByIntent[labelValue(metric, "intent")] += v
				snap.ByStage[labelValue(metric, "stage")] += v
			}
		case metricStoreErrors:
			for _, metric := range mf.GetMetric() {
				snap.StoreErrors += int64(metric.GetCounter().GetValue())
			}
		}
	}

	snap.SessionsStarted = int64(getCounterValue(m.sessionsStarted))
	if snap.TotalMessages > 0 {
		snap.UnknownRate = float64(snap.ByIntent["unknown"]) / float64(snap.TotalMessages)
	}
	return snap
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// getCounterValue extracts the current float64 value from a single counter.
func getCounterValue(counter prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
