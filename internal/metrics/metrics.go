// Package metrics exposes watcher activity and the latest snapshot to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dashwatch/internal/model"
	"dashwatch/internal/stream"
)

const namespace = "dashwatch"

// Metrics implements stream.Observer and poll.Observer.
type Metrics struct {
	streamState      *prometheus.GaugeVec
	messagesReceived prometheus.Counter
	messagesDropped  *prometheus.CounterVec
	reconnects       prometheus.Counter
	reconnectDelay   prometheus.Gauge
	pollTicks        *prometheus.CounterVec
	lastUpdate       prometheus.Gauge
	snapshotValues   *prometheus.GaugeVec
	uptimeSeconds    prometheus.Gauge
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		streamState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "state",
			Help:      "Current stream connection state (1 for the active state).",
		}, []string{"state"}),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Total number of stream messages delivered.",
		}),
		messagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "messages_dropped_total",
			Help:      "Total number of stream messages dropped.",
		}, []string{"reason"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of reconnects scheduled.",
		}),
		reconnectDelay: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnect_delay_seconds",
			Help:      "Delay before the most recently scheduled reconnect.",
		}),
		pollTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "ticks_total",
			Help:      "Total number of poll ticks by result.",
		}, []string{"result"}),
		lastUpdate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_snapshot_timestamp_seconds",
			Help:      "Unix time the latest snapshot was received.",
		}),
		snapshotValues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_value",
			Help:      "Latest value reported by the dashboard.",
		}, []string{"field"}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bot_uptime_seconds",
			Help:      "Latest bot host uptime reported by the dashboard.",
		}),
	}
	reg.MustRegister(
		m.streamState,
		m.messagesReceived,
		m.messagesDropped,
		m.reconnects,
		m.reconnectDelay,
		m.pollTicks,
		m.lastUpdate,
		m.snapshotValues,
		m.uptimeSeconds,
	)
	return m
}

// StateChanged implements stream.Observer.
func (m *Metrics) StateChanged(s stream.State) {
	for _, st := range []stream.State{stream.StateConnecting, stream.StateOpen, stream.StateClosed} {
		v := 0.0
		if st == s {
			v = 1
		}
		m.streamState.WithLabelValues(st.String()).Set(v)
	}
}

// MessageReceived implements stream.Observer.
func (m *Metrics) MessageReceived() {
	m.messagesReceived.Inc()
}

// MessageDropped implements stream.Observer.
func (m *Metrics) MessageDropped(reason string) {
	m.messagesDropped.WithLabelValues(reason).Inc()
}

// ReconnectScheduled implements stream.Observer.
func (m *Metrics) ReconnectScheduled(delay time.Duration) {
	m.reconnects.Inc()
	m.reconnectDelay.Set(delay.Seconds())
}

// TickCompleted implements poll.Observer.
func (m *Metrics) TickCompleted(result string) {
	m.pollTicks.WithLabelValues(result).Inc()
}

// ObserveSnapshot records the values snap carries. nil is ignored.
func (m *Metrics) ObserveSnapshot(snap *model.StatusSnapshot) {
	if snap == nil {
		return
	}
	ts := snap.ReceivedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	m.lastUpdate.Set(float64(ts.UnixNano()) / 1e9)
	m.snapshotValues.WithLabelValues("guild_count").Set(float64(snap.Bot.GuildCount))
	m.snapshotValues.WithLabelValues("latency_ms").Set(snap.Bot.LatencyMs)
	if snap.Flat {
		return
	}

	m.uptimeSeconds.Set(float64(snap.System.UptimeSeconds))
	values := map[string]float64{
		"user_count":         float64(snap.Bot.UserCount),
		"channel_count":      float64(snap.Bot.ChannelCount),
		"cpu_percent":        snap.System.CPUPercent,
		"ram_used_gb":        snap.System.RAMUsedGB,
		"ram_total_gb":       snap.System.RAMTotalGB,
		"ram_percent":        snap.System.RAMPercent,
		"network_io_sent_mb": snap.System.NetworkSentMB,
		"network_io_recv_mb": snap.System.NetworkRecvMB,
	}
	for field, v := range values {
		m.snapshotValues.WithLabelValues(field).Set(v)
	}
}

// Handler serves /metrics for gatherer and a /healthz liveness check.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return router
}
