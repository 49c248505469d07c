package reconcile

import "strings"

// Callback is the gateway's payment notification. Fields arrive form
// encoded on POST and as query parameters on GET.
type Callback struct {
	RefNo           string `form:"refno" json:"refno" validate:"required"`
	Status          string `form:"status" json:"status" validate:"required"`
	Reason          string `form:"reason" json:"reason,omitempty"`
	BillCode        string `form:"billcode" json:"billcode" validate:"required"`
	OrderID         string `form:"order_id" json:"order_id" validate:"required"`
	Amount          string `form:"amount" json:"amount,omitempty"`
	Signature       string `form:"signature" json:"signature" validate:"required"`
	Msg             string `form:"msg" json:"msg,omitempty"`
	TransactionTime string `form:"transaction_time" json:"transaction_time,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (c *Callback) Normalize() {
	for _, f := range []*string{
		&c.RefNo, &c.Status, &c.Reason, &c.BillCode, &c.OrderID,
		&c.Amount, &c.Signature, &c.Msg, &c.TransactionTime,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// FailureMessage is the gateway's reason for a failed payment.
func (c Callback) FailureMessage() string {
	if c.Msg != "" {
		return c.Msg
	}
	return c.Reason
}

// Ack is the acknowledgment body returned to the gateway.
type Ack struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}
