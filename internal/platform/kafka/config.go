package kafka

import (
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ProducerConfig configures the notification producer.
type ProducerConfig struct {
	Brokers         []string
	ClientID        string
	Acks            string // "0", "1" or "all"
	Retries         int
	Linger          time.Duration
	DeliveryTimeout time.Duration
	Compress        bool
}

// DefaultProducerConfig waits for all in-sync replicas. Losing a reset code
// or a decision notice is worse than the extra latency.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:         brokers,
		ClientID:        "idmcore",
		Acks:            "all",
		Retries:         3,
		Linger:          5 * time.Millisecond,
		DeliveryTimeout: 30 * time.Second,
		Compress:        true,
	}
}

func (c ProducerConfig) RequiredAcks() kgo.Acks {
	switch c.Acks {
	case "0":
		return kgo.NoAck()
	case "1":
		return kgo.LeaderAck()
	default:
		return kgo.AllISRAcks()
	}
}

// ClientOptions translates the config into franz-go options.
func (c ProducerConfig) ClientOptions() []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(c.Brokers...),
		kgo.RequiredAcks(c.RequiredAcks()),
		kgo.RecordRetries(c.Retries),
		kgo.AllowAutoTopicCreation(),
	}
	// idempotent writes require acks=all
	if c.Acks != "all" && c.Acks != "" {
		opts = append(opts, kgo.DisableIdempotentWrite())
	}
	if c.ClientID != "" {
		opts = append(opts, kgo.ClientID(c.ClientID))
	}
	if c.Linger > 0 {
		opts = append(opts, kgo.ProducerLinger(c.Linger))
	}
	if c.DeliveryTimeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(c.DeliveryTimeout))
	}
	if c.Compress {
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()))
	}
	return opts
}
