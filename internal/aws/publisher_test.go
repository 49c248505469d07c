package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{}, nil
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestPublisher_SendJSON(t *testing.T) {
	fake := &fakeSQS{}
	p := NewPublisher(fake, "https://sqs.local/queue/order-events")

	err := p.SendJSON(context.Background(), map[string]string{"order_id": "ORD-1"}, map[string]string{
		"event_type": "order.payment_succeeded",
		"empty":      "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if *in.MessageBody != `{"order_id":"ORD-1"}` {
		t.Fatalf("unexpected body %s", *in.MessageBody)
	}
	if _, ok := in.MessageAttributes["empty"]; ok {
		t.Fatalf("empty attributes must be skipped")
	}
	if got := *in.MessageAttributes["event_type"].StringValue; got != "order.payment_succeeded" {
		t.Fatalf("unexpected event_type attribute %s", got)
	}
}

func TestPublisher_SendMessage_WrapsError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPublisher(&fakeSQS{err: boom}, "q")

	err := p.SendMessage(context.Background(), "{}", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestPublisher_FIFOGroupsByOrder(t *testing.T) {
	fake := &fakeSQS{}
	p := NewPublisher(fake, "https://sqs.local/queue/order-events.fifo")

	err := p.SendJSON(context.Background(), map[string]string{}, map[string]string{
		AttrGroupKey: "ORD1",
		AttrDedupKey: "evt-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := fake.inputs[0]
	if in.MessageGroupId == nil || *in.MessageGroupId != "ORD1" {
		t.Fatalf("expected group id ORD1, got %v", in.MessageGroupId)
	}
	if in.MessageDeduplicationId == nil || *in.MessageDeduplicationId != "evt-1" {
		t.Fatalf("expected dedup id evt-1, got %v", in.MessageDeduplicationId)
	}
}

func TestPublisher_FIFORequiresGroup(t *testing.T) {
	fake := &fakeSQS{}
	p := NewPublisher(fake, "q.fifo")

	if err := p.SendMessage(context.Background(), "{}", nil); err == nil {
		t.Fatalf("expected error without %s attribute", AttrGroupKey)
	}
	if len(fake.inputs) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestPublisher_StandardQueueHasNoGroup(t *testing.T) {
	fake := &fakeSQS{}
	p := NewPublisher(fake, "q")

	if err := p.SendMessage(context.Background(), "{}", map[string]string{AttrGroupKey: "ORD1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.inputs[0].MessageGroupId != nil {
		t.Fatalf("standard queues must not get a group id")
	}
}

func TestMetrics_Count(t *testing.T) {
	fake := &fakeCloudWatch{}
	m := NewMetrics(fake, "Storefront/Payments")

	if err := m.Count(context.Background(), "PaymentSucceeded", 1, map[string]string{"Gateway": "toyyibpay"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("expected one PutMetricData call")
	}
	in := fake.inputs[0]
	if *in.Namespace != "Storefront/Payments" {
		t.Fatalf("namespace mismatch: %s", *in.Namespace)
	}
	if *in.MetricData[0].MetricName != "PaymentSucceeded" || len(in.MetricData[0].Dimensions) != 1 {
		t.Fatalf("unexpected datum %+v", in.MetricData[0])
	}
}
