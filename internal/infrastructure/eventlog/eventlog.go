// Package eventlog holds TextFiltered events between the worker that emits
// them and whoever forwards them on. The channel is owned by Log; producers
// never block on a slow consumer.
package eventlog

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

const DefaultCapacity = 1024

type Handler func(ctx context.Context, event domain.TextFiltered) error

type Log struct {
	mu     sync.RWMutex
	events chan domain.TextFiltered
	closed bool
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{events: make(chan domain.TextFiltered, capacity)}
}

// Append enqueues event without blocking. A full log rejects the event with
// ErrEventLogFull, which is also of kind ErrTemporary.
func (l *Log) Append(_ context.Context, event domain.TextFiltered) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return domain.WrapError(domain.ErrTemporary, "append event", errors.New("event log closed"))
	}
	select {
	case l.events <- event:
		return nil
	default:
		return domain.WrapError(domain.ErrTemporary, "append event", domain.ErrEventLogFull)
	}
}

func (l *Log) Len() int {
	return len(l.events)
}

// Close stops accepting events. Events already buffered are still delivered
// by Drain.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.events)
}

// Drain hands every event to handle until ctx is done or the log is closed
// and empty. Handler errors are logged and the event is dropped.
func (l *Log) Drain(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-l.events:
			if !ok {
				return nil
			}
			if err := handle(ctx, event); err != nil {
				slog.Warn("event_forward_failed",
					"document_id", event.DocumentID,
					"error", err,
				)
			}
		}
	}
}

// LogHandler is the fallback forwarder used when no broker is configured.
func LogHandler(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, event domain.TextFiltered) error {
		logger.Info("text_filtered",
			"document_id", event.DocumentID,
			"threshold", event.Threshold,
			"input_bytes", event.InputBytes,
			"output_bytes", event.OutputBytes,
		)
		return nil
	}
}
