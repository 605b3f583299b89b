package audit

import (
	"context"
	"log/slog"
	"sync"
)

// Publisher hands events to the store, either inline or through a buffered
// worker. Audit writes never fail the request path: async errors are logged
// and dropped.
type Publisher struct {
	store  Store
	logger *slog.Logger

	inbox chan Event
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer switches the publisher to a background worker with the
// given inbox capacity. Zero keeps synchronous delivery.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed",
				"action", event.Action,
				"session_id", event.SessionID,
				"error", err,
			)
		}
	}
}

// Emit records an event. In async mode a full inbox drops the event rather
// than blocking the request, and an event arriving after Close is dropped
// silently. The send races with Close, so both hold the mutex.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", event.Action,
			"session_id", event.SessionID,
		)
		return nil
	}
}

// Close drains the inbox and stops the worker. Idempotent.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	if p.inbox != nil {
		close(p.inbox)
		p.wg.Wait()
	}
}
