// ABOUTME: Prometheus metrics for conversion runs
// ABOUTME: Counters for packets, frames and sources on a private registry
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Packet outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeIO      = "io"
	OutcomeDecode  = "decode"
	OutcomeFatal   = "fatal"
	OutcomeForeign = "foreign_track"
)

// Metrics contains all Prometheus metrics for a conversion run. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Packet metrics
	Packets *prometheus.CounterVec

	// Sample metrics
	FramesDecoded   prometheus.Counter
	FramesConverted prometheus.Counter
	BlocksWritten   prometheus.Counter

	// Source metrics
	Sources        *prometheus.CounterVec
	SourceDuration prometheus.Histogram
	Chapters       prometheus.Counter
}

// New creates all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Packets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tonieconv_packets_total",
			Help: "Total number of demuxed packets by outcome",
		}, []string{"outcome"}),

		FramesDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "tonieconv_frames_decoded_total",
			Help: "Total number of frames decoded at the source rate",
		}),
		FramesConverted: factory.NewCounter(prometheus.CounterOpts{
			Name: "tonieconv_frames_converted_total",
			Help: "Total number of frames emitted at the target rate",
		}),
		BlocksWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "tonieconv_blocks_written_total",
			Help: "Total number of sample blocks handed to the container writer",
		}),

		Sources: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tonieconv_sources_total",
			Help: "Total number of input sources by result",
		}, []string{"result"}),
		SourceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tonieconv_source_duration_seconds",
			Help:    "Wall time spent converting one source",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~2 minutes
		}),
		Chapters: factory.NewCounter(prometheus.CounterOpts{
			Name: "tonieconv_chapters_total",
			Help: "Total number of chapter boundaries written",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Packet counts one demuxed packet under its outcome label.
func (m *Metrics) Packet(outcome string) {
	if m == nil {
		return
	}
	m.Packets.WithLabelValues(outcome).Inc()
}

// Frames adds source frames decoded and target frames emitted.
func (m *Metrics) Frames(decoded, converted int) {
	if m == nil {
		return
	}
	m.FramesDecoded.Add(float64(decoded))
	m.FramesConverted.Add(float64(converted))
}

// Block counts one block handed to the container writer.
func (m *Metrics) Block() {
	if m == nil {
		return
	}
	m.BlocksWritten.Inc()
}

// Chapter counts one chapter boundary.
func (m *Metrics) Chapter() {
	if m == nil {
		return
	}
	m.Chapters.Inc()
}

// SourceDone records the result and wall time of one source.
func (m *Metrics) SourceDone(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.Sources.WithLabelValues(result).Inc()
	m.SourceDuration.Observe(elapsed.Seconds())
}

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
