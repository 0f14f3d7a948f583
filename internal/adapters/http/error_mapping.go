package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
