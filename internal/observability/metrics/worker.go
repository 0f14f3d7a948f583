package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics implements ports.WorkerObserver.
type WorkerMetrics struct {
	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        prometheus.Histogram
}

func NewWorkerMetrics(service string, registerer prometheus.Registerer) *WorkerMetrics {
	constLabels := prometheus.Labels{"service": service}

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "document_process_total",
			Help:        "Total filtered documents by status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "document_process_duration_seconds",
			Help:        "Filter and store duration per document in seconds by status.",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "document_process_in_flight",
			Help:        "Number of documents currently being filtered.",
			ConstLabels: constLabels,
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Delay between enqueue and processing start.",
			Buckets:     []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(processTotal, processDuration, processInFlight, queueLag)

	return &WorkerMetrics{
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
	}
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(status).Inc()
	m.processDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}
