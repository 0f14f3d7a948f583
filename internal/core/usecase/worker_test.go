package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

func waitStored(t *testing.T, store *storeFake, want int) []string {
	t.Helper()
	var ids []string
	deadline := time.After(2 * time.Second)
	for len(ids) < want {
		select {
		case id := <-store.stored:
			ids = append(ids, id)
		case <-deadline:
			t.Fatalf("timed out waiting for %d store calls, got %v", want, ids)
		}
	}
	return ids
}

func runWorker(ctx context.Context, w *Worker) <-chan error {
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
}

func TestWorkerFiltersAndStoresItems(t *testing.T) {
	queue := newQueueFake()
	store := newStoreFake()
	events := &eventsFake{}
	observer := &observerFake{}
	filter := filterFunc(func(text string, _ float64) string {
		return strings.ReplaceAll(text, "secret", "")
	})
	w := NewWorker(queue, filter, store, 0.8, WorkerOptions{Events: events, Observer: observer})

	if w.State() != WorkerIdle {
		t.Fatalf("new worker state = %s, want idle", w.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runWorker(ctx, w)

	_ = queue.Enqueue(domain.QueueItem{DocumentID: "doc-1", Text: "my secret", EnqueuedAt: time.Now()})
	_ = queue.Enqueue(domain.QueueItem{DocumentID: "doc-2", Text: "plain"})
	waitStored(t, store, 2)

	if w.State() != WorkerRunning {
		t.Fatalf("state = %s, want running", w.State())
	}

	res, ok := store.result("doc-1")
	if !ok || res.Text != "my " || res.Threshold != 0.8 || res.FilteredAt.IsZero() {
		t.Fatalf("unexpected stored result: %+v", res)
	}

	cancel()
	waitRun(t, done)

	if w.State() != WorkerStopped {
		t.Fatalf("state = %s, want stopped", w.State())
	}
	if events.count() != 2 {
		t.Fatalf("expected 2 events, got %d", events.count())
	}
	started, succeeded, failed := observer.snapshot()
	if started != 2 || succeeded != 2 || failed != 0 {
		t.Fatalf("unexpected observer counts: started=%d succeeded=%d failed=%d", started, succeeded, failed)
	}
	if observer.lags != 1 {
		t.Fatalf("expected queue lag only for items with enqueue time, got %d", observer.lags)
	}
}

func TestWorkerIsolatesItemFailures(t *testing.T) {
	queue := newQueueFake()
	store := newStoreFake()
	store.storeErr["broken-store"] = errors.New("db down")
	observer := &observerFake{}
	filter := filterFunc(func(text string, _ float64) string {
		if text == "boom" {
			panic("metric exploded")
		}
		return text
	})
	w := NewWorker(queue, filter, store, 0.8, WorkerOptions{Observer: observer, Events: &eventsFake{err: errors.New("full")}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runWorker(ctx, w)

	_ = queue.Enqueue(domain.QueueItem{DocumentID: "panics", Text: "boom"})
	_ = queue.Enqueue(domain.QueueItem{DocumentID: "broken-store", Text: "x"})
	_ = queue.Enqueue(domain.QueueItem{DocumentID: "good", Text: "fine"})
	ids := waitStored(t, store, 2)

	if ids[0] != "broken-store" || ids[1] != "good" {
		t.Fatalf("unexpected store order: %v", ids)
	}
	if _, ok := store.result("good"); !ok {
		t.Fatalf("expected good document to be stored")
	}
	if _, ok := store.result("panics"); ok {
		t.Fatalf("panicking item must not produce a result")
	}

	cancel()
	waitRun(t, done)

	_, succeeded, failed := observer.snapshot()
	if succeeded != 1 || failed != 2 {
		t.Fatalf("expected 1 success and 2 failures, got %d/%d", succeeded, failed)
	}
}

func TestWorkerStopsWhenQueueCloses(t *testing.T) {
	queue := newQueueFake()
	w := NewWorker(queue, filterFunc(func(text string, _ float64) string { return text }), newStoreFake(), 0.8, WorkerOptions{})

	done := runWorker(context.Background(), w)
	close(queue.closed)
	waitRun(t, done)

	if w.State() != WorkerStopped {
		t.Fatalf("state = %s, want stopped", w.State())
	}
}

func TestWorkerRunsOnlyOnce(t *testing.T) {
	queue := newQueueFake()
	w := NewWorker(queue, filterFunc(func(text string, _ float64) string { return text }), newStoreFake(), 0.8, WorkerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if err := w.Run(context.Background()); !errors.Is(err, domain.ErrWorkerAlreadyStarted) {
		t.Fatalf("expected ErrWorkerAlreadyStarted, got %v", err)
	}
}

func TestWorkerStateString(t *testing.T) {
	if WorkerStopping.String() != "stopping" || WorkerState(9).String() != "WorkerState(9)" {
		t.Fatalf("unexpected state names")
	}
}
