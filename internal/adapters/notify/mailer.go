// Package notify contains the mail and push transports used by the
// notification dispatcher.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DanielPopoola/car-rental-engine/internal/core/domain"
	"github.com/DanielPopoola/car-rental-engine/internal/core/ports"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMailer publishes rendered emails to a topic consumed by the mail
// delivery service.
type KafkaMailer struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
}

func NewKafkaMailer(brokers []string, topic string, logger zerolog.Logger) *KafkaMailer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaMailer{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

var _ ports.Mailer = (*KafkaMailer)(nil)

func (m *KafkaMailer) Send(ctx context.Context, msg domain.EmailMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	err = m.writer.WriteMessages(ctx, kafka.Message{
		Topic: m.topic,
		Key:   []byte(msg.To),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish email: %w", err)
	}

	m.logger.Debug().Str("topic", m.topic).Str("to", msg.To).Str("subject", msg.Subject).Msg("email published")
	return nil
}

func (m *KafkaMailer) Close() error {
	return m.writer.Close()
}

// LogMailer only logs emails. It stands in when no broker is configured.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg domain.EmailMessage) error {
	m.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email not delivered: no mail transport configured")
	return nil
}
