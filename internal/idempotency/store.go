// Package idempotency records which gateway callbacks have already been
// applied so redeliveries can be acknowledged without touching the order.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/storefront-payflow/internal/aws"
)

// Ledger is implemented by Store and MemoryStore.
type Ledger interface {
	CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error)
	Get(ctx context.Context, key string) (*Receipt, error)
	MarkDone(ctx context.Context, key, outcome string) error
	MarkFailed(ctx context.Context, key, note string) error
}

// ErrNotFound is returned when marking a receipt that was never created.
var ErrNotFound = errors.New("receipt not found")

// Store encapsulates receipt operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // how long a receipt is kept before DynamoDB TTL expires it
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// tableName: DynamoDB table name for callback receipts.
// ttlWindow: retention window (e.g., 7*24*time.Hour)
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// CreateIfNotExists creates a receipt with status IN_PROGRESS if the key does not exist.
// Returns (created=true, nil) if successfully created.
// Returns (created=false, nil) if the receipt already exists (caller should Get to inspect).
// Returns (created=false, err) on other errors.
func (s *Store) CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error) {
	now := s.nowFunc().UTC()
	rec := Receipt{
		IdempotencyKey: key,
		Status:         StatusInProgress,
		OrderID:        orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttlWindow).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal receipt: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(idempotency_key)"),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		var sc smithy.APIError
		if errors.As(err, &cf) || (errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException") {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

// Get retrieves a receipt by key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Receipt, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"idempotency_key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Receipt
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// MarkDone records that the callback was applied and what it resolved to.
func (s *Store) MarkDone(ctx context.Context, key, outcome string) error {
	return s.mark(ctx, key, StatusDone, "outcome", outcome)
}

// MarkFailed records that applying the callback failed, so a redelivery
// will try again.
func (s *Store) MarkFailed(ctx context.Context, key, note string) error {
	return s.mark(ctx, key, StatusFailed, "note", note)
}

func (s *Store) mark(ctx context.Context, key, status, attr, value string) error {
	now := s.nowFunc().UTC()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"idempotency_key": &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression:    awsString("SET #s = :st, #a = :v, updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(idempotency_key)"),
		ExpressionAttributeNames: map[string]string{
			"#s": "status",
			"#a": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":st": &types.AttributeValueMemberS{Value: status},
			":v":  &types.AttributeValueMemberS{Value: value},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return fmt.Errorf("mark %s %s: %w", key, status, ErrNotFound)
		}
		return fmt.Errorf("update item (mark %s): %w", status, err)
	}
	return nil
}

func awsString(s string) *string { return &s }
