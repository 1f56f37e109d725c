// Package publisher emits audit events to a Store, synchronously by default
// or through a buffered background worker.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "custodia/pkg/platform/audit"
)

// Publisher routes audit events to its store. In async mode events are
// buffered and written by a background goroutine; a full buffer drops the
// event rather than blocking a custody operation, since the ledger itself is
// the durable record.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox  chan audit.Event
	wg     sync.WaitGroup
	closed sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables background publishing with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger sets the logger used for drop/append failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher builds a Publisher over store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records one event. The event's category is derived from its action and
// a zero timestamp is filled in.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.LedgerEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"item_id", event.ItemID,
		)
		return nil
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to append audit event",
				"action", event.Action,
				"item_id", event.ItemID,
				"error", err,
			)
		}
	}
}

// Close stops the background worker after flushing buffered events. Safe to
// call on a synchronous publisher and safe to call twice.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}
