// Package gateway adapts the hosted payment gateway's bill API.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	createBillPath      = "/index.php/api/createBill"
	billTransactionPath = "/index.php/api/getBillTransactions"

	maxBillName        = 30
	maxBillDescription = 100
	billExpiryDays     = "3"
	retryBackoff       = 200 * time.Millisecond
)

// Client talks to the gateway over form-encoded HTTP.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: hc, log: log}
}

// CreateBill registers a bill for the order and returns its code and the
// hosted payment page URL.
func (c *Client) CreateBill(ctx context.Context, req BillRequest) (Bill, error) {
	if c.cfg.BaseURL == "" || c.cfg.SecretKey == "" || c.cfg.CategoryCode == "" {
		return Bill{}, ErrNotConfigured
	}
	if !req.Amount.IsPositive() {
		return Bill{}, fmt.Errorf("create bill for %s: amount must be positive, got %s", req.OrderID, req.Amount)
	}

	form := url.Values{}
	form.Set("userSecretKey", c.cfg.SecretKey)
	form.Set("categoryCode", c.cfg.CategoryCode)
	form.Set("billName", truncate("Order #"+req.OrderID, maxBillName))
	form.Set("billDescription", truncate(Description(req.Items), maxBillDescription))
	form.Set("billPriceSetting", "0")
	form.Set("billPayorInfo", "1")
	form.Set("billAmount", strconv.FormatInt(ToMinorUnits(req.Amount), 10))
	form.Set("billReturnUrl", c.cfg.ReturnURL)
	form.Set("billCallbackUrl", c.cfg.CallbackURL)
	form.Set("billExternalReferenceNo", req.OrderID)
	form.Set("billTo", req.Customer.Name)
	form.Set("billEmail", req.Customer.Email)
	form.Set("billPhone", req.Customer.Phone)
	form.Set("billSplitPayment", "0")
	form.Set("billSplitPaymentArgs", "")
	form.Set("billPaymentChannel", "0")
	form.Set("billContentEmail", "Thank you for your order "+req.OrderID+".")
	form.Set("billChargeToCustomer", "1")
	form.Set("billExpiryDays", billExpiryDays)

	// A timed-out attempt may still have created a bill the retry will not
	// reuse, so retries carry the order for manual cleanup.
	status, body, err := c.post(ctx, "createBill", createBillPath, form,
		"order_id", req.OrderID, "orphaned_bill_risk", true)
	if err != nil {
		return Bill{}, err
	}

	var result []struct {
		BillCode string `json:"BillCode"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return Bill{}, newGatewayError("createBill", status, body, fmt.Errorf("decode response: %w", err))
	}
	if len(result) == 0 || result[0].BillCode == "" {
		return Bill{}, newGatewayError("createBill", status, body, errors.New("response carries no BillCode"))
	}

	code := result[0].BillCode
	return Bill{
		BillCode:   code,
		PaymentURL: c.cfg.BaseURL + "/" + code,
	}, nil
}

// GetBillTransactions returns the bill's transaction ledger as reported by
// the gateway, oldest first.
func (c *Client) GetBillTransactions(ctx context.Context, billCode string) ([]Transaction, error) {
	if c.cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	if billCode == "" {
		return nil, errors.New("get bill transactions: empty bill code")
	}

	form := url.Values{}
	form.Set("billCode", billCode)

	status, body, err := c.post(ctx, "getBillTransactions", billTransactionPath, form)
	if err != nil {
		return nil, err
	}

	var txs []Transaction
	if err := json.Unmarshal(body, &txs); err != nil {
		return nil, newGatewayError("getBillTransactions", status, body, fmt.Errorf("decode response: %w", err))
	}
	return txs, nil
}

// Sign computes the callback signature: hex HMAC-SHA256 of
// refno|status|billcode|order_id|amount keyed with the secret key.
func (c *Client) Sign(refno, status, billCode, orderID, amount string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(strings.Join([]string{refno, status, billCode, orderID, amount}, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallback reports whether signature matches the callback fields. It
// always fails when no secret is configured.
func (c *Client) VerifyCallback(refno, status, billCode, orderID, amount, signature string) bool {
	if c.cfg.SecretKey == "" || signature == "" {
		return false
	}
	expected := c.Sign(refno, status, billCode, orderID, amount)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// post sends form with bounded retries. retryAttrs are added to the log
// record written before each retry.
func (c *Client) post(ctx context.Context, op, path string, form url.Values, retryAttrs ...any) (int, []byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			attrs := append([]any{"op", op, "attempt", attempt + 1, "error", lastErr}, retryAttrs...)
			c.log.Warn("retrying gateway call", attrs...)
			select {
			case <-ctx.Done():
				return 0, nil, newGatewayError(op, 0, nil, ctx.Err())
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		status, body, err := c.postOnce(ctx, path, form)
		switch {
		case err != nil:
			lastErr = newGatewayError(op, 0, nil, err)
			if ctx.Err() != nil {
				return 0, nil, lastErr
			}
			continue
		case status >= 500:
			lastErr = newGatewayError(op, status, body, nil)
			continue
		case status < 200 || status >= 300:
			return status, body, newGatewayError(op, status, body, nil)
		}
		return status, body, nil
	}
	return 0, nil, lastErr
}

func (c *Client) postOnce(ctx context.Context, path string, form url.Values) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// ToMinorUnits converts a major-unit amount to minor units, rounding half
// away from zero. 149.50 becomes 14950.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// Description summarises the items for the bill: "<name> (Qty: <n>)" for a
// single item, "<count> items: <a>, <b>" for two and the same with a
// trailing "..." for more.
func Description(items []Item) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s (Qty: %d)", items[0].Name, items[0].Quantity)
	}
	names := make([]string, 0, 2)
	for _, it := range items[:2] {
		names = append(names, it.Name)
	}
	desc := fmt.Sprintf("%d items: %s", len(items), strings.Join(names, ", "))
	if len(items) > 2 {
		desc += "..."
	}
	return desc
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
