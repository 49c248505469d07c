// Package cart keeps the server-side cart of a device session.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/storefront-payflow/internal/aws"
)

type Item struct {
	ProductID string  `json:"productId" dynamodbav:"product_id" validate:"required"`
	Name      string  `json:"name" dynamodbav:"name" validate:"required"`
	Price     float64 `json:"price" dynamodbav:"price" validate:"gt=0"`
	Quantity  int     `json:"quantity" dynamodbav:"quantity" validate:"min=1"`
	Size      string  `json:"size,omitempty" dynamodbav:"size,omitempty"`
}

// Store is keyed by session id. Get on an unknown session returns an empty
// cart.
type Store interface {
	Get(ctx context.Context, sessionID string) ([]Item, error)
	Put(ctx context.Context, sessionID string, items []Item) error
	Clear(ctx context.Context, sessionID string) error
}

var errNoSession = errors.New("cart: empty session id")

type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[string][]Item{}}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.carts[sessionID]
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, sessionID string, items []Item) error {
	if sessionID == "" {
		return errNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Item, len(items))
	copy(cp, items)
	s.carts[sessionID] = cp
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}

type record struct {
	SessionID string    `dynamodbav:"session_id"` // PK
	Items     []Item    `dynamodbav:"items"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// DynamoStore stores one item per session in the carts table.
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewDynamoStore(client aws.DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, nowFunc: time.Now}
}

func (s *DynamoStore) Get(ctx context.Context, sessionID string) ([]Item, error) {
	if sessionID == "" {
		return nil, nil
	}
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{TableName: &s.tableName, Key: key(sessionID)})
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return rec.Items, nil
}

func (s *DynamoStore) Put(ctx context.Context, sessionID string, items []Item) error {
	if sessionID == "" {
		return errNoSession
	}
	av, err := attributevalue.MarshalMap(record{SessionID: sessionID, Items: items, UpdatedAt: s.nowFunc().UTC()})
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: av}); err != nil {
		return fmt.Errorf("put cart: %w", err)
	}
	return nil
}

func (s *DynamoStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if _, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{TableName: &s.tableName, Key: key(sessionID)}); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func key(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: sessionID},
	}
}
