package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/storefront-payflow/internal/orders"
)

// Counter records a metric. aws.Metrics implements it.
type Counter interface {
	Count(ctx context.Context, name string, value float64, dimensions map[string]string) error
}

// Processor consumes order events from SQS.
type Processor struct {
	metrics Counter
	log     *slog.Logger
}

func NewProcessor(metrics Counter, log *slog.Logger) *Processor {
	return &Processor{metrics: metrics, log: log}
}

// Handle processes a batch and reports the messages that should be
// retried. Unreadable messages are not retried.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("worker error", "message_id", rec.MessageId, "error", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var e orders.Event
	if err := json.Unmarshal([]byte(rec.Body), &e); err != nil {
		p.log.Error("dropping unreadable order event", "message_id", rec.MessageId, "error", err)
		return nil
	}
	log := p.log.With("event_id", e.EventID, "event_type", e.Type, "order_id", e.OrderID, "bill_code", e.BillCode)

	metric, ok := metricForEvent[e.Type]
	if !ok {
		log.Warn("ignoring unknown order event type")
		return nil
	}

	switch e.Type {
	case orders.EventBillOrphaned:
		log.Error("orphaned gateway bill needs manual remediation",
			"orphaned_bill", true,
			"amount", e.Amount,
			"reason", e.Message,
		)
	case orders.EventPaymentFailed:
		log.Info("payment failed", "reason", e.Message)
	default:
		log.Info("payment succeeded", "transaction_id", e.TransactionID, "amount", e.Amount)
	}

	if err := p.metrics.Count(ctx, metric, 1, nil); err != nil {
		return fmt.Errorf("record %s: %w", metric, err)
	}
	return nil
}
