package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Attribute keys that double as FIFO routing fields.
const (
	AttrGroupKey = "order_id"
	AttrDedupKey = "event_id"
)

// Publisher sends messages to one SQS queue. On a FIFO queue messages
// are grouped by the order_id attribute and deduplicated by event_id, so
// events for one order are delivered in publish order.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
	fifo     bool
}

func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

// SendMessage sends messageBody to the queue. Non-empty attributes are
// sent as String MessageAttributes.
func (p *Publisher) SendMessage(ctx context.Context, messageBody string, attributes map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(p.QueueURL),
		MessageBody: sdkaws.String(messageBody),
	}

	msgAttrs := map[string]sqstypes.MessageAttributeValue{}
	for k, v := range attributes {
		if v == "" {
			continue
		}
		msgAttrs[k] = sqstypes.MessageAttributeValue{
			DataType:    sdkaws.String("String"),
			StringValue: sdkaws.String(v),
		}
	}
	if len(msgAttrs) > 0 {
		input.MessageAttributes = msgAttrs
	}

	if p.fifo {
		group := attributes[AttrGroupKey]
		if group == "" {
			return fmt.Errorf("send message: fifo queue requires %s attribute", AttrGroupKey)
		}
		input.MessageGroupId = sdkaws.String(group)
		if dedup := attributes[AttrDedupKey]; dedup != "" {
			input.MessageDeduplicationId = sdkaws.String(dedup)
		}
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendJSON marshals v and sends it with SendMessage.
func (p *Publisher) SendJSON(ctx context.Context, v any, attributes map[string]string) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.SendMessage(ctx, string(body), attributes)
}
