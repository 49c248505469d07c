package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher delivers order events. Publishing is best effort: callers log
// failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type jsonSender interface {
	SendJSON(ctx context.Context, v any, attributes map[string]string) error
}

// QueuePublisher sends events as JSON messages, with the event type and
// order id copied into message attributes for filtering.
type QueuePublisher struct {
	queue jsonSender
	now   func() time.Time
}

func NewQueuePublisher(queue jsonSender) *QueuePublisher {
	return &QueuePublisher{queue: queue, now: time.Now}
}

func (p *QueuePublisher) Publish(ctx context.Context, e Event) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = p.now().UTC()
	}
	return p.queue.SendJSON(ctx, e, map[string]string{
		"event_type": e.Type,
		"event_id":   e.EventID,
		"order_id":   e.OrderID,
		"bill_code":  e.BillCode,
	})
}

// NopPublisher drops events. Used when no queue is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
