// internal/broker/kafka.go
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
}

// NewProducer creates an asynchronous Kafka producer. Publish only enqueues;
// delivery failures are reported through handleCompletion.
func NewProducer(brokers []string, topic string) *Producer {
	p := &Producer{}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		Async:        true,
		Completion:   p.handleCompletion,
	}

	return p
}

func (p *Producer) handleCompletion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}

	utils.EventPublishFailuresTotal.Add(float64(len(messages)))
	for _, msg := range messages {
		logrus.WithError(err).WithField("key", string(msg.Key)).Error("Failed to deliver lifecycle event")
	}
}

// Publish writes the event keyed by batch so one batch's events stay ordered.
func (p *Producer) Publish(ctx context.Context, event LifecycleEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(EventKey(event)),
		Value: eventBytes,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"key":        string(msg.Key),
		"event_type": event.EventType,
	}).Debug("Published event")
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

func EventKey(event LifecycleEvent) string {
	return fmt.Sprintf("batch-%s", event.BatchID)
}
