package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	prom_testutil "github.com/prometheus/client_golang/prometheus/testutil"
	"gotest.tools/v3/assert"

	"dashwatch/internal/model"
	"dashwatch/internal/poll"
	"dashwatch/internal/stream"
)

var (
	_ stream.Observer = (*Metrics)(nil)
	_ poll.Observer   = (*Metrics)(nil)
)

func TestStreamMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := New(reg)

	m.StateChanged(stream.StateConnecting)
	m.StateChanged(stream.StateOpen)
	assert.Equal(t, prom_testutil.CollectAndCount(m.streamState, "dashwatch_stream_state"), 3)
	assert.Equal(t, prom_testutil.ToFloat64(m.streamState.WithLabelValues("open")), 1.0)
	assert.Equal(t, prom_testutil.ToFloat64(m.streamState.WithLabelValues("connecting")), 0.0)

	m.MessageReceived()
	m.MessageReceived()
	m.MessageDropped("decode")
	m.MessageDropped("not_ready")
	m.MessageDropped("decode")
	assert.Equal(t, prom_testutil.ToFloat64(m.messagesReceived), 2.0)
	assert.Equal(t, prom_testutil.ToFloat64(m.messagesDropped.WithLabelValues("decode")), 2.0)
	assert.Equal(t, prom_testutil.ToFloat64(m.messagesDropped.WithLabelValues("not_ready")), 1.0)

	m.StateChanged(stream.StateClosed)
	m.ReconnectScheduled(5 * time.Second)
	assert.Equal(t, prom_testutil.ToFloat64(m.streamState.WithLabelValues("closed")), 1.0)
	assert.Equal(t, prom_testutil.ToFloat64(m.streamState.WithLabelValues("open")), 0.0)
	assert.Equal(t, prom_testutil.ToFloat64(m.reconnects), 1.0)
	assert.Equal(t, prom_testutil.ToFloat64(m.reconnectDelay), 5.0)
}

func TestPollMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := New(reg)

	m.TickCompleted(poll.ResultOK)
	m.TickCompleted(poll.ResultHTTPError)
	m.TickCompleted(poll.ResultOK)
	assert.Equal(t, prom_testutil.CollectAndCount(m.pollTicks, "dashwatch_poll_ticks_total"), 2)
	assert.Equal(t, prom_testutil.ToFloat64(m.pollTicks.WithLabelValues(poll.ResultOK)), 2.0)
	assert.Equal(t, prom_testutil.ToFloat64(m.pollTicks.WithLabelValues(poll.ResultHTTPError)), 1.0)
}

func TestObserveSnapshot(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := New(reg)

	m.ObserveSnapshot(nil)
	assert.Equal(t, prom_testutil.CollectAndCount(m.snapshotValues, "dashwatch_snapshot_value"), 0)

	received := time.Unix(1700000000, 0)
	m.ObserveSnapshot(&model.StatusSnapshot{
		Bot:        model.BotStats{LatencyMs: 42, GuildCount: 17},
		System:     model.SystemStats{CPUPercent: 12.5, UptimeSeconds: 90061},
		ReceivedAt: received,
	})
	assert.Equal(t, prom_testutil.CollectAndCount(m.snapshotValues, "dashwatch_snapshot_value"), 10)
	assert.Equal(t, prom_testutil.ToFloat64(m.snapshotValues.WithLabelValues("guild_count")), 17.0)
	assert.Equal(t, prom_testutil.ToFloat64(m.snapshotValues.WithLabelValues("cpu_percent")), 12.5)
	assert.Equal(t, prom_testutil.ToFloat64(m.uptimeSeconds), 90061.0)
	assert.Equal(t, prom_testutil.ToFloat64(m.lastUpdate), 1700000000.0)
}

func TestObserveSnapshot_Flat(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := New(reg)

	m.ObserveSnapshot(&model.StatusSnapshot{
		Bot:  model.BotStats{LatencyMs: 88, GuildCount: 3},
		Flat: true,
	})
	assert.Equal(t, prom_testutil.CollectAndCount(m.snapshotValues, "dashwatch_snapshot_value"), 2)
	assert.Equal(t, prom_testutil.ToFloat64(m.snapshotValues.WithLabelValues("latency_ms")), 88.0)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := New(reg)
	m.MessageReceived()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	assert.NilError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Assert(t, strings.Contains(string(body), "dashwatch_stream_messages_total 1"), string(body))

	resp, err = http.Get(srv.URL + "/healthz")
	assert.NilError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Equal(t, string(body), "ok\n")
}
