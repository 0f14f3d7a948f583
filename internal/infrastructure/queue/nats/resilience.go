package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/infrastructure/resilience"
)

func classifyNATSError(err error) resilience.ErrorClassification {
	if errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionReconnecting) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.Transient(err)
}

func wrapTemporaryIfNeeded(err error) error {
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
