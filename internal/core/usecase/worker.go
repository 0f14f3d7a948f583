package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/core/ports"
)

type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerRunning
	WorkerStopping
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerStopping:
		return "stopping"
	case WorkerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WorkerState(%d)", int32(s))
	}
}

const dequeueRetryDelay = 100 * time.Millisecond

type WorkerOptions struct {
	Name     string
	Events   ports.EventSink
	Observer ports.WorkerObserver
	Logger   *slog.Logger
}

// Worker drains the processing queue: every item is filtered, stored as a
// completed result and announced on the event sink. A worker runs once.
type Worker struct {
	name      string
	queue     ports.ProcessingQueue
	filter    ports.TextFilter
	store     ports.ResultStore
	events    ports.EventSink
	observer  ports.WorkerObserver
	logger    *slog.Logger
	threshold float64

	state atomic.Int32
}

func NewWorker(
	queue ports.ProcessingQueue,
	filter ports.TextFilter,
	store ports.ResultStore,
	threshold float64,
	opts WorkerOptions,
) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Name
	if name == "" {
		name = "worker"
	}
	return &Worker{
		name:      name,
		queue:     queue,
		filter:    filter,
		store:     store,
		events:    opts.Events,
		observer:  opts.Observer,
		logger:    logger.With("worker", name),
		threshold: threshold,
	}
}

func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Run blocks until ctx is cancelled or the queue is closed and returns nil in
// both cases. Failures of individual items are logged and never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(WorkerIdle), int32(WorkerRunning)) {
		return domain.ErrWorkerAlreadyStarted
	}
	defer w.state.Store(int32(WorkerStopped))

	w.logger.Info("worker_started", "threshold", w.threshold)
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if isStopSignal(err) || ctx.Err() != nil {
				w.state.Store(int32(WorkerStopping))
				w.logger.Info("worker_stopping", "reason", err.Error())
				return nil
			}
			w.logger.Error("dequeue_failed", "error", err)
			select {
			case <-ctx.Done():
				w.state.Store(int32(WorkerStopping))
				return nil
			case <-time.After(dequeueRetryDelay):
			}
			continue
		}

		if err := w.process(ctx, item); err != nil {
			w.logger.Error("filter_item_failed",
				"document_id", item.DocumentID,
				"error", err,
			)
		}
	}
}

func (w *Worker) process(ctx context.Context, item domain.QueueItem) (err error) {
	start := time.Now()
	if w.observer != nil {
		if !item.EnqueuedAt.IsZero() {
			w.observer.ObserveQueueLag(start.Sub(item.EnqueuedAt))
		}
		w.observer.StartDocument()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing: %v", r)
		}
		if w.observer != nil {
			w.observer.FinishDocument(time.Since(start), err)
		}
	}()

	filtered := w.filter.Filter(item.Text, w.threshold)
	filteredAt := time.Now().UTC()
	if err := w.store.Store(ctx, domain.FilterResult{
		DocumentID: item.DocumentID,
		Text:       filtered,
		Threshold:  w.threshold,
		FilteredAt: filteredAt,
	}); err != nil {
		return fmt.Errorf("store result: %w", err)
	}

	w.logger.Debug("document_filtered",
		"document_id", item.DocumentID,
		"input_bytes", len(item.Text),
		"output_bytes", len(filtered),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)

	if w.events == nil {
		return nil
	}
	event := domain.TextFiltered{
		DocumentID:  item.DocumentID,
		Threshold:   w.threshold,
		InputBytes:  len(item.Text),
		OutputBytes: len(filtered),
		OccurredAt:  filteredAt,
	}
	if err := w.events.Append(ctx, event); err != nil {
		w.logger.Warn("event_append_failed", "document_id", item.DocumentID, "error", err)
	}
	return nil
}

func isStopSignal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrQueueClosed)
}
