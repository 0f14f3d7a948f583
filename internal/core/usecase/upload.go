package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/core/ports"
)

const (
	OutcomeAccepted      = "accepted"
	OutcomeInvalid       = "invalid"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeError         = "error"
)

type UploadUseCase struct {
	buffer   ports.UploadBuffer
	store    ports.ResultStore
	queue    ports.ProcessingQueue
	observer ports.UploadObserver
}

func NewUploadUseCase(
	buffer ports.UploadBuffer,
	store ports.ResultStore,
	queue ports.ProcessingQueue,
	observer ports.UploadObserver,
) *UploadUseCase {
	return &UploadUseCase{
		buffer:   buffer,
		store:    store,
		queue:    queue,
		observer: observer,
	}
}

// UploadChunk buffers one chunk. When the chunk completes a document, the
// reassembled text is marked pending and handed to the processing queue.
func (uc *UploadUseCase) UploadChunk(ctx context.Context, chunk domain.ChunkUpload) (domain.UploadAck, error) {
	if err := chunk.Validate(); err != nil {
		uc.record(OutcomeInvalid)
		return domain.UploadAck{}, err
	}

	text, assembled, err := uc.buffer.AddChunk(ctx, chunk.DocumentID, chunk.ChunkIndex, chunk.Data, chunk.IsLastChunk)
	if err != nil {
		switch {
		case domain.IsKind(err, domain.ErrQuotaExceeded):
			uc.record(OutcomeQuotaExceeded)
		case domain.IsKind(err, domain.ErrInvalidInput):
			uc.record(OutcomeInvalid)
		default:
			uc.record(OutcomeError)
		}
		return domain.UploadAck{}, fmt.Errorf("buffer chunk: %w", err)
	}

	ack := domain.UploadAck{
		DocumentID: chunk.DocumentID,
		ChunkIndex: chunk.ChunkIndex,
		Assembled:  assembled,
	}
	if !assembled {
		uc.record(OutcomeAccepted)
		return ack, nil
	}

	if err := uc.store.MarkPending(ctx, chunk.DocumentID); err != nil {
		uc.record(OutcomeError)
		return domain.UploadAck{}, fmt.Errorf("mark result pending: %w", err)
	}
	if err := uc.queue.Enqueue(domain.QueueItem{
		DocumentID: chunk.DocumentID,
		Text:       text,
		EnqueuedAt: time.Now().UTC(),
	}); err != nil {
		uc.record(OutcomeError)
		return domain.UploadAck{}, fmt.Errorf("enqueue document: %w", err)
	}

	uc.record(OutcomeAccepted)
	if uc.observer != nil {
		uc.observer.RecordAssembled(len(text))
	}
	slog.Info("document_assembled",
		"document_id", chunk.DocumentID,
		"final_index", chunk.ChunkIndex,
		"bytes", len(text),
	)
	return ack, nil
}

func (uc *UploadUseCase) record(outcome string) {
	if uc.observer != nil {
		uc.observer.RecordChunk(outcome)
	}
}
