package validation

// Customer is the contact snapshot submitted at checkout.
type Customer struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

// Item represents a single checkout line item.
type Item struct {
	ProductID string  `json:"productId" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Price     float64 `json:"price" validate:"gt=0"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
	Size      string  `json:"size,omitempty"`
}

// CheckoutRequest is the payload for POST /checkout. Items may be omitted,
// in which case the session's cart is used.
type CheckoutRequest struct {
	Customer      Customer `json:"customer"`
	Items         []Item   `json:"items,omitempty" validate:"omitempty,dive"`
	ExpectedTotal float64  `json:"expectedTotal,omitempty" validate:"omitempty,gt=0"` // total the client displayed
}

// CartItemsRequest is the payload for PUT /cart/items.
type CartItemsRequest struct {
	Items []Item `json:"items" validate:"dive"`
}

// StatusQueryRequest is the payload for POST /api/payment/status.
type StatusQueryRequest struct {
	BillCode string `json:"billCode" validate:"required"`
}
