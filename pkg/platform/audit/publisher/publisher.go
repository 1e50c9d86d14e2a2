package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "idmcore/pkg/domain-errors"
	audit "idmcore/pkg/platform/audit"
	"idmcore/pkg/platform/audit/metrics"
)

const DefaultPersistTimeout = 5 * time.Second

// Publisher appends audit events to a Store, either inline or through a
// bounded buffer drained by one background goroutine.
type Publisher struct {
	store          audit.Store
	logger         *slog.Logger
	metrics        *metrics.Metrics
	persistTimeout time.Duration
	bufferSize     int

	mu     sync.RWMutex
	queue  chan audit.Event
	closed bool
	done   chan struct{}
}

type Option func(*Publisher)

// WithAsyncBuffer queues up to size events and persists them in the
// background. A full buffer drops the event.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithPublisherLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithPersistTimeout bounds each background append.
func WithPersistTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.persistTimeout = d
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:          store,
		persistTimeout: DefaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.bufferSize > 0 {
		p.queue = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.queue {
		p.metrics.SetQueueDepth(len(p.queue))
		ctx, cancel := context.WithTimeout(context.Background(), p.persistTimeout)
		err := p.persist(ctx, event)
		cancel()
		if err != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"subject", event.Subject,
			)
		}
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	start := time.Now()
	err := p.store.Append(ctx, event)
	p.metrics.ObservePersist(time.Since(start).Seconds(), err)
	return err
}

// Emit stamps a missing timestamp and persists the event, or queues it when
// the publisher is async. Emitting after Close fails.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.queue == nil {
		return p.persist(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.Count(metrics.OutcomeRejected)
		return dErrors.New(dErrors.CodeInternal, "audit publisher closed")
	}
	select {
	case p.queue <- event:
		p.metrics.Count(metrics.OutcomeEnqueued)
		p.metrics.SetQueueDepth(len(p.queue))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.Count(metrics.OutcomeDropped)
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"subject", event.Subject,
		)
		return dErrors.New(dErrors.CodeInternal, "audit buffer full")
	}
}

// List reads straight from the store; queued events are not visible yet.
func (p *Publisher) List(ctx context.Context, q audit.Query) ([]audit.Event, error) {
	return p.store.List(ctx, q)
}

// Close stops accepting events and waits for the buffer to drain. It is
// safe to call more than once.
func (p *Publisher) Close() {
	if p.queue == nil {
		return
	}
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}
