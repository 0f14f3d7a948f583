package ports

import (
	"context"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

// ChunkUploader is the inbound contract for chunked document ingestion.
type ChunkUploader interface {
	UploadChunk(ctx context.Context, chunk domain.ChunkUpload) (domain.UploadAck, error)
}

// ResultReader is the inbound read model for filtered documents.
type ResultReader interface {
	GetResult(ctx context.Context, documentID string) (domain.Result, error)
}
