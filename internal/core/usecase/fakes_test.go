package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

type bufferCall struct {
	documentID string
	index      int
	isLast     bool
}

type bufferFake struct {
	calls []bufferCall
	text  string
	done  bool
	err   error
}

func (f *bufferFake) AddChunk(_ context.Context, documentID string, index int, _ string, isLast bool) (string, bool, error) {
	f.calls = append(f.calls, bufferCall{documentID: documentID, index: index, isLast: isLast})
	if f.err != nil {
		return "", false, f.err
	}
	return f.text, f.done, nil
}

type storeFake struct {
	mu       sync.Mutex
	pending  []string
	results  map[string]domain.FilterResult
	getRes   domain.Result
	getErr   error
	markErr  error
	storeErr map[string]error
	stored   chan string
}

func newStoreFake() *storeFake {
	return &storeFake{
		results:  make(map[string]domain.FilterResult),
		storeErr: make(map[string]error),
		stored:   make(chan string, 16),
	}
}

func (f *storeFake) MarkPending(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.pending = append(f.pending, documentID)
	return nil
}

func (f *storeFake) Store(_ context.Context, result domain.FilterResult) error {
	f.mu.Lock()
	err := f.storeErr[result.DocumentID]
	if err == nil {
		f.results[result.DocumentID] = result
	}
	f.mu.Unlock()

	f.stored <- result.DocumentID
	return err
}

func (f *storeFake) Get(context.Context, string) (domain.Result, error) {
	return f.getRes, f.getErr
}

func (f *storeFake) result(documentID string) (domain.FilterResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.results[documentID]
	return res, ok
}

type queueFake struct {
	items    chan domain.QueueItem
	closed   chan struct{}
	enqueued []domain.QueueItem
	err      error
}

func newQueueFake() *queueFake {
	return &queueFake{
		items:  make(chan domain.QueueItem, 16),
		closed: make(chan struct{}),
	}
}

func (f *queueFake) Enqueue(item domain.QueueItem) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, item)
	f.items <- item
	return nil
}

func (f *queueFake) Dequeue(ctx context.Context) (domain.QueueItem, error) {
	select {
	case <-ctx.Done():
		return domain.QueueItem{}, ctx.Err()
	case item := <-f.items:
		return item, nil
	case <-f.closed:
		return domain.QueueItem{}, domain.ErrQueueClosed
	}
}

type filterFunc func(text string, threshold float64) string

func (f filterFunc) Filter(text string, threshold float64) string {
	return f(text, threshold)
}

type eventsFake struct {
	mu     sync.Mutex
	events []domain.TextFiltered
	err    error
}

func (f *eventsFake) Append(_ context.Context, event domain.TextFiltered) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *eventsFake) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type observerFake struct {
	mu        sync.Mutex
	started   int
	succeeded int
	failed    int
	lags      int
	chunks    map[string]int
	assembled []int
}

func (f *observerFake) StartDocument() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *observerFake) FinishDocument(_ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.failed++
		return
	}
	f.succeeded++
}

func (f *observerFake) ObserveQueueLag(time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lags++
}

func (f *observerFake) RecordChunk(outcome string) {
	if f.chunks == nil {
		f.chunks = make(map[string]int)
	}
	f.chunks[outcome]++
}

func (f *observerFake) RecordAssembled(bytes int) {
	f.assembled = append(f.assembled, bytes)
}

func (f *observerFake) snapshot() (started, succeeded, failed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.succeeded, f.failed
}
