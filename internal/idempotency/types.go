package idempotency

import "time"

// Status values for callback receipts
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Receipt is the shape persisted in the callback receipts DynamoDB table.
// One receipt exists per distinct gateway notification.
type Receipt struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK, see Key
	Status         string    `dynamodbav:"status"`
	OrderID        string    `dynamodbav:"order_id,omitempty"`
	Outcome        string    `dynamodbav:"outcome,omitempty"` // succeeded, failed, pending
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note           string    `dynamodbav:"note,omitempty"`
}

// Key identifies a notification by bill, gateway reference and reported
// status. A redelivery of the same notification maps to the same key.
func Key(billCode, refNo, status string) string {
	return billCode + ":" + refNo + ":" + status
}
