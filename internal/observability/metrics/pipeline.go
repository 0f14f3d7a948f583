package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineSources are sampled on every scrape.
type PipelineSources struct {
	QueueDepth     func() int
	BufferSessions func() int
	EventLogDepth  func() int
}

type PipelineMetrics struct {
	chunksTotal        *prometheus.CounterVec
	documentsAssembled prometheus.Counter
	assembledBytes     prometheus.Histogram
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer, sources PipelineSources) *PipelineMetrics {
	constLabels := prometheus.Labels{"service": service}

	chunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "upload",
			Name:        "chunks_total",
			Help:        "Uploaded chunks by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"},
	)
	documentsAssembled := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "upload",
			Name:        "documents_assembled_total",
			Help:        "Documents fully reassembled and handed to the queue.",
			ConstLabels: constLabels,
		},
	)
	assembledBytes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "upload",
			Name:        "document_bytes",
			Help:        "Size of reassembled documents in bytes.",
			Buckets:     prometheus.ExponentialBuckets(256, 4, 10),
			ConstLabels: constLabels,
		},
	)
	registerer.MustRegister(chunksTotal, documentsAssembled, assembledBytes)

	gauge := func(subsystem, name, help string, sample func() int) {
		if sample == nil {
			return
		}
		registerer.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   subsystem,
				Name:        name,
				Help:        help,
				ConstLabels: constLabels,
			},
			func() float64 { return float64(sample()) },
		))
	}
	gauge("queue", "depth", "Documents waiting for the filter worker.", sources.QueueDepth)
	gauge("upload", "open_sessions", "Uploads with chunks held in the buffer.", sources.BufferSessions)
	gauge("events", "pending", "Events waiting to be forwarded.", sources.EventLogDepth)

	return &PipelineMetrics{
		chunksTotal:        chunksTotal,
		documentsAssembled: documentsAssembled,
		assembledBytes:     assembledBytes,
	}
}

// RecordChunk counts one upload attempt. outcome is "accepted", "invalid",
// "quota_exceeded" or "error".
func (m *PipelineMetrics) RecordChunk(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.chunksTotal.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) RecordAssembled(bytes int) {
	m.documentsAssembled.Inc()
	m.assembledBytes.Observe(float64(bytes))
}
