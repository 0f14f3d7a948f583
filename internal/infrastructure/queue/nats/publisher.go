// Package nats forwards TextFiltered events to a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/infrastructure/resilience"
)

const DefaultSubject = "content-filter.text-filtered"

type conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

type Publisher struct {
	conn     conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	nc, err := nats.Connect(
		url,
		nats.Name("content-filter"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newPublisher(nc, subject, options.ResilienceExecutor), nil
}

func newPublisher(c conn, subject string, executor *resilience.Executor) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: c, subject: subject, executor: executor}
}

// Close flushes pending publishes before closing the connection.
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		slog.Warn("nats_flush_failed", "error", err)
	}
	p.conn.Close()
}

// PublishTextFiltered matches eventlog.Handler.
func (p *Publisher) PublishTextFiltered(ctx context.Context, event domain.TextFiltered) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal text filtered event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := p.conn.Publish(p.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}
