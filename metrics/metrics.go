// Package metrics holds the Prometheus collectors for the decode pipeline
// and the HTTP layer. All methods are safe on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Frames          prometheus.Counter
	FrameErrors     *prometheus.CounterVec
	MessagesDecoded *prometheus.CounterVec
	MessagesSkipped *prometheus.CounterVec
	Uploads         *prometheus.CounterVec
	DecodeSeconds   prometheus.Histogram
	Sessions        prometheus.Gauge
	Requests        *prometheus.CounterVec
	LLMCalls        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightlog_frames_total",
			Help: "Frames accepted by the frame reader.",
		}),
		FrameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightlog_frame_errors_total",
			Help: "Corrupt frames skipped, by reason.",
		}, []string{"reason"}),
		MessagesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightlog_messages_decoded_total",
			Help: "Messages decoded, by message type.",
		}, []string{"type"}),
		MessagesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightlog_messages_skipped_total",
			Help: "Frames that did not decode into a message, by reason.",
		}, []string{"reason"}),
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightlog_uploads_total",
			Help: "Processed log uploads, by outcome.",
		}, []string{"outcome"}),
		DecodeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flightlog_decode_seconds",
			Help:    "Time to decode one log.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightlog_sessions",
			Help: "Sessions held in memory.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightlog_http_requests_total",
			Help: "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightlog_llm_calls_total",
			Help: "Language model calls, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.Frames,
		m.FrameErrors,
		m.MessagesDecoded,
		m.MessagesSkipped,
		m.Uploads,
		m.DecodeSeconds,
		m.Sessions,
		m.Requests,
		m.LLMCalls,
	)
	return m
}

func (m *Metrics) AddFrames(n int64) {
	if m == nil {
		return
	}
	m.Frames.Add(float64(n))
}

func (m *Metrics) AddFrameErrors(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.FrameErrors.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) MessageDecoded(messageType string) {
	if m == nil {
		return
	}
	m.MessagesDecoded.WithLabelValues(messageType).Inc()
}

func (m *Metrics) MessageSkipped(reason string) {
	if m == nil {
		return
	}
	m.MessagesSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Upload(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(outcome).Inc()
	m.DecodeSeconds.Observe(seconds)
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(n))
}

func (m *Metrics) Request(route, code string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, code).Inc()
}

func (m *Metrics) LLMCall(outcome string) {
	if m == nil {
		return
	}
	m.LLMCalls.WithLabelValues(outcome).Inc()
}
