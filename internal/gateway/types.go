package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL      string
	SecretKey    string
	CategoryCode string
	ReturnURL    string
	CallbackURL  string
	Timeout      time.Duration // per attempt
	Retries      int           // extra attempts on transport errors and 5xx
	HTTPClient   *http.Client
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type Item struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

type BillRequest struct {
	OrderID  string
	Amount   decimal.Decimal // major units; sent as minor units
	Customer Customer
	Items    []Item
}

type Bill struct {
	BillCode   string `json:"billCode"`
	PaymentURL string `json:"paymentUrl"`
}

// Transaction is one record of a bill's transaction ledger. PaymentStatus
// is the gateway's raw code and is not interpreted here.
type Transaction struct {
	BillName            flexString `json:"billName"`
	BillTo              flexString `json:"billTo"`
	BillEmail           flexString `json:"billEmail"`
	PaymentStatus       flexString `json:"billpaymentStatus"`
	PaymentChannel      flexString `json:"billpaymentChannel"`
	PaymentAmount       flexString `json:"billpaymentAmount"`
	InvoiceNo           flexString `json:"billpaymentInvoiceNo"`
	PaymentDate         flexString `json:"billPaymentDate"`
	ExternalReferenceNo flexString `json:"billExternalReferenceNo"`
}

// flexString accepts JSON strings and numbers; the gateway is not
// consistent about which one it sends.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

func (f flexString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(f))), nil
}
