package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ProcessingStatus string

const (
	StatusNotFound  ProcessingStatus = "not_found"
	StatusPending   ProcessingStatus = "pending"
	StatusCompleted ProcessingStatus = "completed"
)

// ChunkUpload is one piece of a document as delivered by a client.
type ChunkUpload struct {
	DocumentID  string `json:"uploadId"`
	ChunkIndex  int    `json:"chunkIndex"`
	Data        string `json:"data"`
	IsLastChunk bool   `json:"isLastChunk"`
}

// Validate runs before the upload buffer is touched.
func (c ChunkUpload) Validate() error {
	switch {
	case strings.TrimSpace(c.DocumentID) == "":
		return WrapError(ErrInvalidInput, "validate chunk", errors.New("uploadId is required"))
	case c.ChunkIndex < 0:
		return WrapError(ErrInvalidInput, "validate chunk", fmt.Errorf("%w: %d", ErrInvalidChunkIndex, c.ChunkIndex))
	case c.Data == "":
		return WrapError(ErrInvalidInput, "validate chunk", errors.New("data cannot be empty"))
	}
	return nil
}

type UploadAck struct {
	DocumentID string `json:"uploadId"`
	ChunkIndex int    `json:"chunkIndex"`
	Assembled  bool   `json:"assembled"`
}

// QueueItem is a fully reassembled document waiting for the filter worker.
type QueueItem struct {
	DocumentID string
	Text       string
	EnqueuedAt time.Time
}

type FilterResult struct {
	DocumentID string    `json:"uploadId"`
	Text       string    `json:"data"`
	Threshold  float64   `json:"threshold"`
	FilteredAt time.Time `json:"filtered_at"`
}

// Result is what a retrieval caller observes for a document id. Data is only
// meaningful when Status is StatusCompleted.
type Result struct {
	Status    ProcessingStatus `json:"status"`
	Data      string           `json:"data,omitempty"`
	Threshold float64          `json:"threshold,omitempty"`
}

func NotFoundResult() Result {
	return Result{Status: StatusNotFound}
}

func PendingResult() Result {
	return Result{Status: StatusPending}
}

func CompletedResult(data string, threshold float64) Result {
	return Result{Status: StatusCompleted, Data: data, Threshold: threshold}
}

// Advances reports whether moving from s to next keeps the status monotonic.
func (s ProcessingStatus) Advances(next ProcessingStatus) bool {
	return statusRank(next) >= statusRank(s)
}

func statusRank(s ProcessingStatus) int {
	switch s {
	case StatusPending:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}
