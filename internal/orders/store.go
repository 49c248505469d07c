package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/imrishuroy/storefront-payflow/internal/aws"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateOrderID means more than one record carries the same order
	// identifier, which the store treats as a consistency error.
	ErrDuplicateOrderID = errors.New("duplicate order identifier")
	// ErrStatusMismatch is returned when a conditional write is rejected.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
)

// Store is the Order Record Store. DynamoStore is the deployed backend,
// MemoryStore serves local runs and tests.
type Store interface {
	Create(ctx context.Context, order *Order) error
	GetByOrderID(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// ApplyPaymentResult overwrites the payment fields of the order. It is
	// safe to repeat. A failed result never replaces a paid one: that
	// attempt returns ErrStatusMismatch.
	ApplyPaymentResult(ctx context.Context, orderID string, result PaymentResult) error
}

const (
	orderIDIndex = "order_id-index"
	userIDIndex  = "user_id-index"
)

// DynamoStore encapsulates operations on the orders table.
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewDynamoStore creates a new orders store.
func NewDynamoStore(client aws.DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create persists a new order. ID is assigned when empty; CreatedAt and
// UpdatedAt are stamped.
func (s *DynamoStore) Create(ctx context.Context, order *Order) error {
	if order.OrderID == "" {
		return errors.New("create order: empty order id")
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := s.nowFunc().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("create order %s: document id %s already exists: %w", order.OrderID, order.ID, ErrStatusMismatch)
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// GetByOrderID resolves an order by its internal order identifier through
// the order_id GSI.
func (s *DynamoStore) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 awsString(orderIDIndex),
		KeyConditionExpression:    awsString("#oid = :oid"),
		ExpressionAttributeNames:  map[string]string{"#oid": "order_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":oid": &types.AttributeValueMemberS{Value: orderID}},
		Limit:                     awsInt32(2),
	})
	if err != nil {
		return nil, fmt.Errorf("query order %s: %w", orderID, err)
	}
	switch len(out.Items) {
	case 0:
		return nil, ErrNotFound
	case 1:
	default:
		return nil, fmt.Errorf("order %s: %w", orderID, ErrDuplicateOrderID)
	}

	var o Order
	if err := attributevalue.UnmarshalMap(out.Items[0], &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// ListByUser returns every order owned by userID.
func (s *DynamoStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	p := dyn.NewQueryPaginator(s.client, &dyn.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 awsString(userIDIndex),
		KeyConditionExpression:    awsString("#uid = :uid"),
		ExpressionAttributeNames:  map[string]string{"#uid": "user_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":uid": &types.AttributeValueMemberS{Value: userID}},
	})

	var result []Order
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query orders for user %s: %w", userID, err)
		}
		var batch []Order
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		result = append(result, batch...)
	}
	return result, nil
}

func (s *DynamoStore) ApplyPaymentResult(ctx context.Context, orderID string, result PaymentResult) error {
	order, err := s.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	now := s.nowFunc().UTC()
	values := map[string]types.AttributeValue{
		":ps":  &types.AttributeValueMemberS{Value: string(result.PaymentStatus)},
		":st":  &types.AttributeValueMemberS{Value: string(result.Status)},
		":bc":  &types.AttributeValueMemberS{Value: result.BillCode},
		":nt":  &types.AttributeValueMemberS{Value: result.Note},
		":ua":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		":oid": &types.AttributeValueMemberS{Value: orderID},
	}
	updateExpr := "SET #ps = :ps, #s = :st, bill_code = :bc, notes = :nt, updated_at = :ua"
	if result.TransactionID != "" {
		updateExpr += ", transaction_id = :tx"
		values[":tx"] = &types.AttributeValueMemberS{Value: result.TransactionID}
	}

	condition := "attribute_exists(id) AND order_id = :oid"
	if result.PaymentStatus != PaymentPaid {
		condition += " AND #ps <> :paid"
		values[":paid"] = &types.AttributeValueMemberS{Value: string(PaymentPaid)}
	}

	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: order.ID},
		},
		UpdateExpression:          &updateExpr,
		ConditionExpression:       &condition,
		ExpressionAttributeNames:  map[string]string{"#ps": "payment_status", "#s": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func isConditionFailed(err error) bool {
	var cf *types.ConditionalCheckFailedException
	if errors.As(err, &cf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func awsString(s string) *string { return &s }

func awsInt32(v int32) *int32 { return &v }
