package memory

import (
	"context"
	"sync"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

// Queue is an unbounded FIFO of reassembled documents. Enqueue never blocks;
// Dequeue parks until an item arrives, the context ends or the queue closes.
type Queue struct {
	mu     sync.Mutex
	items  []domain.QueueItem
	ready  chan struct{}
	closed bool
}

func New() *Queue {
	return &Queue{ready: make(chan struct{})}
}

func (q *Queue) Enqueue(item domain.QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return domain.ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.broadcast()
	return nil
}

// Dequeue returns ctx.Err() unchanged on cancellation so callers can tell a
// stop signal apart from domain failures. No item is consumed in that case.
func (q *Queue) Dequeue(ctx context.Context) (domain.QueueItem, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.QueueItem{}, err
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = domain.QueueItem{}
			q.items = q.items[1:]
			if len(q.items) == 0 {
				q.items = nil
			}
			q.mu.Unlock()
			return item, nil
		}
		if q.closed {
			q.mu.Unlock()
			return domain.QueueItem{}, domain.ErrQueueClosed
		}
		ready := q.ready
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.QueueItem{}, ctx.Err()
		case <-ready:
		}
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further items and wakes blocked consumers. Items already
// queued can still be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.broadcast()
}

// broadcast must be called with q.mu held.
func (q *Queue) broadcast() {
	close(q.ready)
	q.ready = make(chan struct{})
}
