package orders

import "time"

type OrderStatus string

// Order statuses. Only pending -> processing and pending -> failed are driven
// by payment reconciliation; later edges belong to fulfillment.
const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusFailed     OrderStatus = "failed"
	StatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

// Payment statuses as stored. A successful payment is recorded as "paid".
const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Public returns the name exposed to clients: pending, success or failed.
func (s PaymentStatus) Public() string {
	if s == PaymentPaid {
		return "success"
	}
	return string(s)
}

// Customer is the contact snapshot captured at checkout time.
type Customer struct {
	Name  string `dynamodbav:"name" json:"name"`
	Email string `dynamodbav:"email" json:"email"`
	Phone string `dynamodbav:"phone" json:"phone"`
}

type LineItem struct {
	ProductID string  `dynamodbav:"product_id" json:"productId"`
	Name      string  `dynamodbav:"name" json:"name"`
	Price     float64 `dynamodbav:"price" json:"price"`
	Quantity  int     `dynamodbav:"quantity" json:"quantity"`
	Size      string  `dynamodbav:"size,omitempty" json:"size,omitempty"`
	Subtotal  float64 `dynamodbav:"subtotal" json:"subtotal"`
}

// Order represents the item stored in the orders DynamoDB table. Items and
// the totals are a snapshot taken at creation and are never recomputed.
type Order struct {
	ID            string        `dynamodbav:"id" json:"id"`                     // PK, storage document id
	OrderID       string        `dynamodbav:"order_id" json:"orderId"`          // GSI order_id-index
	UserID        string        `dynamodbav:"user_id" json:"userId"`            // GSI user_id-index
	Customer      Customer      `dynamodbav:"customer" json:"customer"`
	Items         []LineItem    `dynamodbav:"items" json:"items"`
	Subtotal      float64       `dynamodbav:"subtotal" json:"subtotal"`
	ShippingFee   float64       `dynamodbav:"shipping_fee" json:"shippingFee"`
	Discount      float64       `dynamodbav:"discount" json:"discount"`
	Total         float64       `dynamodbav:"total" json:"total"`
	Status        OrderStatus   `dynamodbav:"status" json:"status"`
	PaymentStatus PaymentStatus `dynamodbav:"payment_status" json:"paymentStatus"`
	BillCode      string        `dynamodbav:"bill_code,omitempty" json:"billCode,omitempty"`
	TransactionID string        `dynamodbav:"transaction_id,omitempty" json:"transactionId,omitempty"`
	PaymentURL    string        `dynamodbav:"payment_url,omitempty" json:"paymentUrl,omitempty"`
	Notes         string        `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time     `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `dynamodbav:"updated_at" json:"updatedAt"`
}

// PaymentResult is the set of fields the callback reconciler writes.
type PaymentResult struct {
	PaymentStatus PaymentStatus
	Status        OrderStatus
	TransactionID string
	BillCode      string
	Note          string
}

// Event is published to the order events queue.
type Event struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	BillCode      string    `json:"bill_code,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

const (
	EventPaymentSucceeded = "order.payment_succeeded"
	EventPaymentFailed    = "order.payment_failed"
	EventBillOrphaned     = "order.bill_orphaned"
)
