package ports

import (
	"context"
	"time"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

// UploadBuffer accumulates chunks per document until the terminal chunk arrives.
// The bool result is true exactly once per session, together with the full text.
type UploadBuffer interface {
	AddChunk(ctx context.Context, documentID string, index int, data string, isLast bool) (string, bool, error)
}

// ProcessingQueue hands reassembled documents from ingestion to the worker.
type ProcessingQueue interface {
	Enqueue(item domain.QueueItem) error
	Dequeue(ctx context.Context) (domain.QueueItem, error)
}

// TextFilter scrubs banned terms from a document.
type TextFilter interface {
	Filter(text string, threshold float64) string
}

// ResultStore persists processing status and filtered text by document id.
type ResultStore interface {
	MarkPending(ctx context.Context, documentID string) error
	Store(ctx context.Context, result domain.FilterResult) error
	Get(ctx context.Context, documentID string) (domain.Result, error)
}

// EventSink receives domain events produced by the processing step.
type EventSink interface {
	Append(ctx context.Context, event domain.TextFiltered) error
}

// WorkerObserver records worker throughput.
type WorkerObserver interface {
	StartDocument()
	FinishDocument(duration time.Duration, err error)
	ObserveQueueLag(lag time.Duration)
}

// UploadObserver records ingestion outcomes.
type UploadObserver interface {
	RecordChunk(outcome string)
	RecordAssembled(bytes int)
}
