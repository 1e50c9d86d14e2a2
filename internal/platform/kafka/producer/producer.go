package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"

	"idmcore/internal/platform/kafka"
)

var ErrClosed = errors.New("producer is closed")

const closeFlushTimeout = 10 * time.Second

var (
	produced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idm_kafka_produced_total",
		Help: "Records handed to Kafka by topic and outcome",
	}, []string{"topic", "result"})
	produceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "idm_kafka_produce_duration_seconds",
		Help:    "Time until the broker acknowledged a record",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
)

// Message is one record. Headers are written sorted by key.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type client interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Flush(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// Producer sends records synchronously so callers learn about delivery
// failures before they report success.
type Producer struct {
	client client
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func New(cfg kafka.ProducerConfig, logger *slog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	c, err := kgo.NewClient(cfg.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newProducer(c, logger), nil
}

func newProducer(c client, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{client: c, logger: logger}
}

func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	start := time.Now()
	err := p.client.ProduceSync(ctx, toRecord(msg)).FirstErr()
	produceLatency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
	if err != nil {
		produced.WithLabelValues(msg.Topic, "error").Inc()
		return fmt.Errorf("produce to %s: %w", msg.Topic, err)
	}
	produced.WithLabelValues(msg.Topic, "ok").Inc()
	return nil
}

func toRecord(msg *Message) *kgo.Record {
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headers := make([]kgo.RecordHeader, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kgo.RecordHeader{Key: k, Value: []byte(msg.Headers[k])})
	}
	return &kgo.Record{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}

// Close flushes buffered records and shuts the client down. It is safe to
// call more than once.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("kafka producer closed with unflushed records", "error", err)
	}
	p.client.Close()
	return nil
}

// Healthy reports whether any broker answers.
func (p *Producer) Healthy(ctx context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed && p.client.Ping(ctx) == nil
}
