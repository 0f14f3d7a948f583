package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Message    string
	// RetryAfter is set by the server's traffic control layer when it sheds a
	// request before any handler has seen it.
	RetryAfter string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("api %s %s status: %s", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("api %s %s status: %s: %s", e.Method, e.Path, e.Status, strings.TrimSpace(e.Message))
}

func classifyAPIError(err error) resilience.ErrorClassification {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		// Rejections of our own request say nothing about server health.
		return resilience.ErrorClassification{}
	}
	return resilience.Transient(err)
}

// wrapTemporaryIfNeeded maps API rejections onto domain kinds so callers can
// tell bad input from an unavailable server.
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrInvalidInput) {
		return err
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode < 500 && !isRetryableHTTPStatus(statusErr.StatusCode) {
		return domain.WrapError(domain.ErrInvalidInput, operation, err)
	}
	if classifyAPIError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

// classifyTerminalChunkError retries a terminal chunk only when the server
// provably did not process it.
func classifyTerminalChunkError(err error) resilience.ErrorClassification {
	if isRejectedBeforeHandler(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true}
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 500 {
		return resilience.ErrorClassification{RecordFailure: true}
	}
	return resilience.ErrorClassification{}
}

// isRejectedBeforeHandler reports a 429 or 503 carrying Retry-After, which the
// rate limiter and backpressure layers send without invoking the handler.
func isRejectedBeforeHandler(err error) bool {
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.RetryAfter == "" {
		return false
	}
	return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode == http.StatusServiceUnavailable
}

// isClientRejection reports a definite 4xx answer from the handler.
func isClientRejection(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 &&
		!isRetryableHTTPStatus(statusErr.StatusCode)
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
