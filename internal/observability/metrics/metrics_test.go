package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWorkerMetricsCountsByStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWorkerMetrics("test", registry)

	m.StartDocument()
	m.FinishDocument(10*time.Millisecond, nil)
	m.StartDocument()
	m.FinishDocument(10*time.Millisecond, errors.New("boom"))
	m.ObserveQueueLag(-time.Second)
	m.ObserveQueueLag(time.Second)

	if got := testutil.ToFloat64(m.processTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.processTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.processInFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
	if got := testutil.CollectAndCount(m.queueLag); got != 1 {
		t.Fatalf("queue lag series = %d, want 1", got)
	}
}

func TestPipelineGaugesSampleSources(t *testing.T) {
	registry := prometheus.NewRegistry()
	depth := 3
	m := NewPipelineMetrics("test", registry, PipelineSources{
		QueueDepth:     func() int { return depth },
		BufferSessions: func() int { return 2 },
	})
	m.RecordChunk("accepted")
	m.RecordChunk("")
	m.RecordAssembled(1024)

	const expected = `
# HELP cf_queue_depth Documents waiting for the filter worker.
# TYPE cf_queue_depth gauge
cf_queue_depth{service="test"} 3
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "cf_queue_depth"); err != nil {
		t.Fatalf("queue depth gauge: %v", err)
	}
	if got := testutil.ToFloat64(m.chunksTotal.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("unknown outcome count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.documentsAssembled); got != 1 {
		t.Fatalf("assembled = %v, want 1", got)
	}
}

func TestHTTPMiddlewareNormalizesResultPath(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewHTTPServerMetrics("test", registry)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/result/0b6f7a4e-8d0c-4f4e-9a55-0a4b1c2d3e4f", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("test", http.MethodGet, "/api/result/{uploadId}", "202"))
	if got != 1 {
		t.Fatalf("request count = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "cf_http_requests_total") {
		t.Fatalf("expected exposition to contain cf_http_requests_total")
	}
}
