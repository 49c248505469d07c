package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/storefront-payflow/internal/logging"
	"github.com/imrishuroy/storefront-payflow/internal/orders"
)

// --- mock implementations ---

type mockCounter struct {
	counts map[string]float64
	err    error
}

func newMockCounter() *mockCounter {
	return &mockCounter{counts: map[string]float64{}}
}

func (m *mockCounter) Count(ctx context.Context, name string, value float64, dimensions map[string]string) error {
	if m.err != nil {
		return m.err
	}
	m.counts[name] += value
	return nil
}

func message(t *testing.T, id string, e orders.Event) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

// --- test cases ---

func TestWorkerProcess_RecordsMetrics(t *testing.T) {
	counter := newMockCounter()
	p := NewProcessor(counter, logging.Discard())

	ev := events.SQSEvent{Records: []events.SQSMessage{
		message(t, "m1", orders.Event{Type: orders.EventPaymentSucceeded, OrderID: "o1"}),
		message(t, "m2", orders.Event{Type: orders.EventPaymentSucceeded, OrderID: "o2"}),
		message(t, "m3", orders.Event{Type: orders.EventPaymentFailed, OrderID: "o3", Message: "Insufficient funds"}),
		message(t, "m4", orders.Event{Type: orders.EventBillOrphaned, OrderID: "o4", BillCode: "b4"}),
	}}

	resp, err := p.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("unexpected failures: %+v", resp.BatchItemFailures)
	}
	if counter.counts[MetricPaymentSucceeded] != 2 || counter.counts[MetricPaymentFailed] != 1 || counter.counts[MetricBillOrphaned] != 1 {
		t.Fatalf("unexpected counts: %v", counter.counts)
	}
}

func TestWorkerProcess_SkipsUnreadableAndUnknown(t *testing.T) {
	counter := newMockCounter()
	p := NewProcessor(counter, logging.Discard())

	ev := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "bad", Body: "{not json"},
		message(t, "m1", orders.Event{Type: "order.shipped", OrderID: "o1"}),
	}}

	resp, err := p.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}
	if len(resp.BatchItemFailures) != 0 {
		t.Fatalf("unreadable and unknown messages must not be retried: %+v", resp.BatchItemFailures)
	}
	if len(counter.counts) != 0 {
		t.Fatalf("expected no metrics, got %v", counter.counts)
	}
}

func TestWorkerProcess_MetricFailureIsRetried(t *testing.T) {
	counter := newMockCounter()
	counter.err = errors.New("throttled")
	p := NewProcessor(counter, logging.Discard())

	ev := events.SQSEvent{Records: []events.SQSMessage{
		message(t, "m1", orders.Event{Type: orders.EventPaymentSucceeded, OrderID: "o1"}),
	}}

	resp, err := p.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "m1" {
		t.Fatalf("expected m1 to be reported for retry, got %+v", resp.BatchItemFailures)
	}
}
