package pending

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/storefront-payflow/internal/aws"
)

// item is the row in the pending payments table. DynamoDB TTL is enabled on
// expires_at.
type item struct {
	SessionID string `dynamodbav:"session_id"` // PK
	Marker
	ExpiresAt int64 `dynamodbav:"expires_at"` // epoch seconds
}

// DynamoStore persists markers in DynamoDB so they survive across Lambda
// instances.
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
	retain    time.Duration
}

func NewDynamoStore(client aws.DynamoDBAPI, tableName string, retain time.Duration) *DynamoStore {
	if retain <= 0 {
		retain = DefaultTTL
	}
	return &DynamoStore{client: client, tableName: tableName, retain: retain}
}

func (s *DynamoStore) Put(ctx context.Context, sessionID string, m Marker) error {
	if sessionID == "" {
		return errNoSession
	}
	av, err := attributevalue.MarshalMap(item{
		SessionID: sessionID,
		Marker:    m,
		ExpiresAt: m.CreatedAt().Add(s.retain).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal marker: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: av}); err != nil {
		return fmt.Errorf("put marker: %w", err)
	}
	return nil
}

func (s *DynamoStore) Get(ctx context.Context, sessionID string) (*Marker, error) {
	if sessionID == "" {
		return nil, nil
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            key(sessionID),
		ConsistentRead: sdkaws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get marker: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal marker: %w", err)
	}
	return &it.Marker, nil
}

func (s *DynamoStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if _, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{TableName: &s.tableName, Key: key(sessionID)}); err != nil {
		return fmt.Errorf("delete marker: %w", err)
	}
	return nil
}

func key(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: sessionID},
	}
}
