// Package metrics provides Prometheus metrics for the transcription
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meeting_scribe"

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing, so tests can pass nil.
type Metrics struct {
	// Session metrics
	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter

	// Audio metrics
	SlicesSubmitted       prometheus.Counter
	SlicesDropped         prometheus.Counter
	AudioSecondsSubmitted prometheus.Counter

	// Assembler metrics
	WindowsTranscribed prometheus.Counter
	EngineErrors       prometheus.Counter
	TranscriptsPartial prometheus.Counter
	TranscriptsFinal   prometheus.Counter

	// Diarization metrics
	DiarizationCalls *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// Default is the process-wide metrics instance.
var Default = New()

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active recording sessions",
		}),
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of recording sessions started",
		}),
		SlicesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_slices_submitted_total",
			Help:      "Total audio slices submitted to the assembler",
		}),
		SlicesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_slices_dropped_total",
			Help:      "Total audio slices dropped because the queue was full",
		}),
		AudioSecondsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_seconds_submitted_total",
			Help:      "Total seconds of audio submitted to the assembler",
		}),
		WindowsTranscribed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_transcribed_total",
			Help:      "Total audio windows sent to the transcription engine",
		}),
		EngineErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Total recoverable transcription engine errors",
		}),
		TranscriptsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_partial_total",
			Help:      "Total partial transcript segments emitted",
		}),
		TranscriptsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcripts_final_total",
			Help:      "Total final transcript segments emitted",
		}),
		DiarizationCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diarization_calls_total",
			Help:      "Diarization calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total Kafka publish attempts by topic",
		}, []string{"topic"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total Kafka publish errors by topic",
		}, []string{"topic"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic"}),
	}
}

func (m *Metrics) RecordSlice(seconds float64) {
	if m == nil {
		return
	}
	m.SlicesSubmitted.Inc()
	m.AudioSecondsSubmitted.Add(seconds)
}

func (m *Metrics) RecordSliceDropped() {
	if m == nil {
		return
	}
	m.SlicesDropped.Inc()
}

func (m *Metrics) RecordWindow() {
	if m == nil {
		return
	}
	m.WindowsTranscribed.Inc()
}

func (m *Metrics) RecordEngineError() {
	if m == nil {
		return
	}
	m.EngineErrors.Inc()
}

func (m *Metrics) RecordPartial() {
	if m == nil {
		return
	}
	m.TranscriptsPartial.Inc()
}

func (m *Metrics) RecordFinal() {
	if m == nil {
		return
	}
	m.TranscriptsFinal.Inc()
}

func (m *Metrics) RecordDiarization(provider string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.DiarizationCalls.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordKafkaPublish(topic string, err error, seconds float64) {
	if m == nil {
		return
	}
	m.KafkaPublishTotal.WithLabelValues(topic).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic).Inc()
	}
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(seconds)
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}
