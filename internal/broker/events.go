// internal/broker/events.go
package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventBatchCreated   EventType = "batch.created"
	EventBatchCertified EventType = "batch.certified"
	EventBatchRejected  EventType = "batch.rejected"
	EventBatchDeleted   EventType = "batch.deleted"
	EventOrderPlaced    EventType = "order.placed"
	EventOrderShipped   EventType = "order.shipped"
	EventOrderDeclined  EventType = "order.declined"
)

// LifecycleEvent records one batch transition.
type LifecycleEvent struct {
	EventID     string    `json:"event_id"`
	EventType   EventType `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	BatchID     uuid.UUID `json:"batch_id"`
	ActorID     uuid.UUID `json:"actor_id"`
	Status      string    `json:"status"`
	OrderStatus string    `json:"order_status"`
}

func NewLifecycleEvent(eventType EventType, batchID, actorID uuid.UUID, status, orderStatus string) LifecycleEvent {
	return LifecycleEvent{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		Timestamp:   time.Now().UTC(),
		BatchID:     batchID,
		ActorID:     actorID,
		Status:      status,
		OrderStatus: orderStatus,
	}
}

// Publisher delivers lifecycle events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
	Close() error
}

// LogPublisher writes events to the log. Used when no brokers are configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher { return &LogPublisher{} }

func (LogPublisher) Publish(ctx context.Context, event LifecycleEvent) error {
	logrus.WithFields(logrus.Fields{
		"event_id":     event.EventID,
		"event_type":   event.EventType,
		"batch_id":     event.BatchID,
		"actor_id":     event.ActorID,
		"status":       event.Status,
		"order_status": event.OrderStatus,
	}).Debug("Lifecycle event")
	return nil
}

func (LogPublisher) Close() error { return nil }

// RecordingPublisher keeps events in memory for tests and local tooling.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []LifecycleEvent
	Err    error
}

func (r *RecordingPublisher) Publish(ctx context.Context, event LifecycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, event)
	return nil
}

func (r *RecordingPublisher) Close() error { return nil }

func (r *RecordingPublisher) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EventType, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.EventType)
	}
	return out
}
