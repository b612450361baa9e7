// Package observability provides Prometheus metrics for the upload pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "audiochat"

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	// Upload event metrics
	UploadsReceived  prometheus.Counter
	UploadsDuplicate prometheus.Counter

	// Pipeline metrics
	PipelineOutcomes *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	PipelineActive   prometheus.Gauge

	// Probe metrics
	ProbeDuration prometheus.Histogram
	ProbeErrors   prometheus.Counter

	// Transcription metrics
	TranscriptionLatency prometheus.Histogram
	TranscriptionErrors  *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal  *prometheus.CounterVec
	KafkaPublishErrors *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UploadsReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_received_total",
			Help:      "Total number of upload completion events received",
		}),
		UploadsDuplicate: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_duplicate_total",
			Help:      "Total number of upload events skipped as already processed",
		}),
		PipelineOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_outcomes_total",
			Help:      "Total number of finished pipeline runs by outcome",
		}, []string{"outcome"}),
		PipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end pipeline run duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		PipelineActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_active",
			Help:      "Number of pipeline runs currently in flight",
		}),
		ProbeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Audio duration probe latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		ProbeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_errors_total",
			Help:      "Total number of failed duration probes",
		}),
		TranscriptionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_latency_seconds",
			Help:      "Time from job submission to final transcript in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 180, 300},
		}),
		TranscriptionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Total number of transcription failures",
		}, []string{"kind"}),
		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic"}),
	}
}

// RecordUploadReceived records an upload completion event arriving.
func (m *Metrics) RecordUploadReceived() {
	m.UploadsReceived.Inc()
}

// RecordUploadDuplicate records an event skipped because its storage key
// was already processed.
func (m *Metrics) RecordUploadDuplicate() {
	m.UploadsDuplicate.Inc()
}

// RecordPipelineStart records a pipeline run beginning.
func (m *Metrics) RecordPipelineStart() {
	m.PipelineActive.Inc()
}

// RecordPipelineEnd records a pipeline run finishing with the given outcome.
func (m *Metrics) RecordPipelineEnd(outcome string, durationSeconds float64) {
	m.PipelineActive.Dec()
	m.PipelineOutcomes.WithLabelValues(outcome).Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordProbe records a duration probe attempt.
func (m *Metrics) RecordProbe(err error, durationSeconds float64) {
	m.ProbeDuration.Observe(durationSeconds)
	if err != nil {
		m.ProbeErrors.Inc()
	}
}

// RecordTranscription records a transcription attempt.
func (m *Metrics) RecordTranscription(latencySeconds float64) {
	m.TranscriptionLatency.Observe(latencySeconds)
}

// RecordTranscriptionError records a transcription failure.
func (m *Metrics) RecordTranscriptionError(kind string) {
	m.TranscriptionErrors.WithLabelValues(kind).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic string, err error) {
	m.KafkaPublishTotal.WithLabelValues(topic).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic).Inc()
	}
}
