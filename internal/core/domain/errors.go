package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	ErrInvalidChunkIndex    = errors.New("chunk index must be non-negative")
	ErrQuotaExceeded        = errors.New("upload quota exceeded")
	ErrQueueClosed          = errors.New("processing queue closed")
	ErrWorkerAlreadyStarted = errors.New("worker already started")
	ErrEventLogFull         = errors.New("event log full")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
