// Package notification publishes outbound user messages (decision notices and
// confirmation requests) for a delivery service to render and send.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"idmcore/internal/platform/kafka/producer"
	"idmcore/internal/platform/privacy"
	id "idmcore/pkg/domain"
)

type Kind string

const (
	KindNotification Kind = "notification"
	KindConfirmation Kind = "confirmation"
)

// Message is the JSON document published for each outbound message.
type Message struct {
	Kind      Kind              `json:"kind"`
	Template  string            `json:"template"`
	Recipient string            `json:"recipient"`
	EntityID  id.EntityID       `json:"entityId"`
	Params    map[string]string `json:"params,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Producer is the subset of the Kafka producer the publisher needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSender publishes messages to a topic keyed by entity id, so messages
// about one entity stay ordered.
type KafkaSender struct {
	producer Producer
	topic    string
}

func NewKafkaSender(p Producer, topic string) *KafkaSender {
	return &KafkaSender{producer: p, topic: topic}
}

func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(msg.EntityID.String()),
		Value: value,
		Headers: map[string]string{
			"kind":     string(msg.Kind),
			"template": msg.Template,
		},
	})
}

// LogSender only logs messages. It stands in when no broker is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification not delivered, no broker configured",
		"kind", msg.Kind,
		"template", msg.Template,
		"recipient", privacy.MaskRecipient(msg.Recipient),
		"entity_id", msg.EntityID.String(),
	)
	return nil
}
