package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AddFrames(1)
		m.AddFrameErrors("checksum", 1)
		m.MessageDecoded("ATTITUDE")
		m.MessageSkipped("unknown_type")
		m.Upload("ok", 0.1)
		m.SetSessions(3)
		m.Request("/chat", "200")
		m.LLMCall("failed")
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AddFrames(12)
	m.AddFrameErrors("checksum", 2)
	m.AddFrameErrors("truncated", 0)
	m.MessageDecoded("ATTITUDE")
	m.MessageDecoded("ATTITUDE")
	m.Upload("ok", 0.25)
	m.SetSessions(4)
	m.Request("/upload/", "200")

	assert.Equal(t, 12.0, testutil.ToFloat64(m.Frames))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FrameErrors.WithLabelValues("checksum")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesDecoded.WithLabelValues("ATTITUDE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Uploads.WithLabelValues("ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/upload/", "200")))

	// A zero count does not create the series.
	assert.Equal(t, 1, testutil.CollectAndCount(m.FrameErrors))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP flightlog_sessions Sessions held in memory.
# TYPE flightlog_sessions gauge
flightlog_sessions 4
`), "flightlog_sessions")
	require.NoError(t, err)
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
