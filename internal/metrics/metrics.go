// Package metrics exposes the message manager's Prometheus
// instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every broker-side Prometheus collector. The zero value is
// not usable; construct with New.
type Metrics struct {
	clientsConnected  prometheus.Gauge
	connectsTotal     prometheus.Counter
	disconnectsTotal  prometheus.Counter
	rejectedConnects  prometheus.Counter

	subscriptionsActive prometheus.Gauge

	messagesForwarded prometheus.Counter
	messagesDropped   *prometheus.CounterVec
	failedMessages    prometheus.Counter

	loggerBlockedDuration prometheus.Histogram

	timingTicks prometheus.Counter
}

// New registers and returns the broker's metric set against the default
// Prometheus registry.
func New() *Metrics {
	return &Metrics{
		clientsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "rtma_mm_clients_connected",
			Help: "Number of modules currently connected to the message manager.",
		}),
		connectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rtma_mm_connects_total",
			Help: "Total number of CONNECT messages accepted.",
		}),
		disconnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rtma_mm_disconnects_total",
			Help: "Total number of client disconnections, graceful or not.",
		}),
		rejectedConnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rtma_mm_rejected_connects_total",
			Help: "Total number of CONNECT messages rejected (duplicate module id, no free id, hook refusal).",
		}),
		subscriptionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "rtma_mm_subscriptions_active",
			Help: "Number of active (client, message type) subscription pairs.",
		}),
		messagesForwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rtma_mm_messages_forwarded_total",
			Help: "Total number of successful message forwards to a subscriber socket.",
		}),
		messagesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rtma_mm_messages_dropped_total",
			Help: "Total number of forwards dropped, labeled by reason.",
		}, []string{"reason"}),
		failedMessages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rtma_mm_failed_message_total",
			Help: "Total number of FAILED_MESSAGE notifications synthesized.",
		}),
		loggerBlockedDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rtma_mm_logger_blocked_seconds",
			Help:    "Time the dispatcher spent blocked delivering to a logger's outbox.",
			Buckets: prometheus.DefBuckets,
		}),
		timingTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rtma_mm_timing_ticks_total",
			Help: "Total number of TIMING_MESSAGE snapshots emitted.",
		}),
	}
}

func (m *Metrics) ClientConnected()    { m.clientsConnected.Inc(); m.connectsTotal.Inc() }
func (m *Metrics) ClientDisconnected() { m.clientsConnected.Dec(); m.disconnectsTotal.Inc() }
func (m *Metrics) ConnectRejected()    { m.rejectedConnects.Inc() }

func (m *Metrics) SubscriptionsGauge(n int) { m.subscriptionsActive.Set(float64(n)) }

func (m *Metrics) MessageForwarded() { m.messagesForwarded.Inc() }
func (m *Metrics) MessageDropped(reason string) {
	m.messagesDropped.WithLabelValues(reason).Inc()
}
func (m *Metrics) FailedMessageSent() { m.failedMessages.Inc() }

func (m *Metrics) ObserveLoggerBlocked(d time.Duration) { m.loggerBlockedDuration.Observe(d.Seconds()) }

func (m *Metrics) TimingTick() { m.timingTicks.Inc() }
