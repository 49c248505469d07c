// Package checkout turns a cart into a pending order and a gateway bill.
package checkout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/storefront-payflow/internal/cart"
	"github.com/imrishuroy/storefront-payflow/internal/gateway"
	"github.com/imrishuroy/storefront-payflow/internal/orders"
	"github.com/imrishuroy/storefront-payflow/internal/pending"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidAmount   = errors.New("order total must be positive")
	ErrUnauthenticated = errors.New("checkout requires a signed-in user")
	// ErrOrderNotPersisted means the gateway bill exists but the order write
	// failed. The bill is orphaned.
	ErrOrderNotPersisted = errors.New("order could not be saved after the bill was created")
)

// BillCreator is the part of gateway.Client checkout needs.
type BillCreator interface {
	CreateBill(ctx context.Context, req gateway.BillRequest) (gateway.Bill, error)
}

type Request struct {
	UserID    string
	SessionID string
	Customer  orders.Customer
	Items     []cart.Item // nil means use the session cart
}

type Result struct {
	OrderID    string
	BillCode   string
	PaymentURL string
	Total      decimal.Decimal
}

// Totals is the order's money breakdown. Total = Subtotal + ShippingFee - Discount.
type Totals struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

type Service struct {
	orders  orders.Store
	gateway BillCreator
	carts   cart.Store
	markers pending.Store
	events  orders.Publisher
	log     *slog.Logger

	now        func() time.Time
	newOrderID func(time.Time) string
}

func NewService(
	store orders.Store,
	gw BillCreator,
	carts cart.Store,
	markers pending.Store,
	events orders.Publisher,
	log *slog.Logger,
) *Service {
	return &Service{
		orders:     store,
		gateway:    gw,
		carts:      carts,
		markers:    markers,
		events:     events,
		log:        log,
		now:        time.Now,
		newOrderID: NewOrderID,
	}
}

// Checkout creates the gateway bill first and only then the order, so a
// rejected bill leaves no local state. The pending-payment marker is
// written last.
func (s *Service) Checkout(ctx context.Context, req Request) (Result, error) {
	if req.UserID == "" {
		return Result{}, ErrUnauthenticated
	}

	items := req.Items
	if items == nil {
		var err error
		items, err = s.carts.Get(ctx, req.SessionID)
		if err != nil {
			return Result{}, fmt.Errorf("load cart: %w", err)
		}
	}
	if len(items) == 0 {
		return Result{}, ErrEmptyCart
	}

	lines, totals := ComputeTotals(items)
	if !totals.Total.IsPositive() {
		return Result{}, ErrInvalidAmount
	}

	now := s.now()
	orderID := s.newOrderID(now)
	log := s.log.With("order_id", orderID, "user_id", req.UserID)

	gwItems := make([]gateway.Item, 0, len(items))
	for _, it := range items {
		gwItems = append(gwItems, gateway.Item{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    decimal.NewFromFloat(it.Price),
		})
	}

	bill, err := s.gateway.CreateBill(ctx, gateway.BillRequest{
		OrderID: orderID,
		Amount:  totals.Total,
		Customer: gateway.Customer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Items: gwItems,
	})
	if err != nil {
		log.Warn("bill creation failed", "error", err)
		return Result{}, fmt.Errorf("create bill: %w", err)
	}
	log = log.With("bill_code", bill.BillCode)

	order := &orders.Order{
		OrderID:       orderID,
		UserID:        req.UserID,
		Customer:      req.Customer,
		Items:         lines,
		Subtotal:      totals.Subtotal.InexactFloat64(),
		ShippingFee:   totals.ShippingFee.InexactFloat64(),
		Discount:      totals.Discount.InexactFloat64(),
		Total:         totals.Total.InexactFloat64(),
		Status:        orders.StatusPending,
		PaymentStatus: orders.PaymentPending,
		BillCode:      bill.BillCode,
		PaymentURL:    bill.PaymentURL,
		CreatedAt:     now.UTC(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		log.Error("order not persisted after bill creation",
			"orphaned_bill", true,
			"amount", totals.Total.StringFixed(2),
			"error", err,
		)
		if perr := s.events.Publish(ctx, orders.Event{
			Type:     orders.EventBillOrphaned,
			OrderID:  orderID,
			BillCode: bill.BillCode,
			Amount:   totals.Total.InexactFloat64(),
			Message:  err.Error(),
		}); perr != nil {
			log.Error("publish orphaned bill event", "error", perr)
		}
		return Result{}, fmt.Errorf("%w: %v", ErrOrderNotPersisted, err)
	}

	if err := s.markers.Put(ctx, req.SessionID, pending.NewMarker(orderID, bill.BillCode, now)); err != nil {
		// the order and bill are fine; only the navigation guard is lost
		log.Warn("pending payment marker not written", "error", err)
	}

	log.Info("checkout started", "total", totals.Total.StringFixed(2))
	return Result{
		OrderID:    orderID,
		BillCode:   bill.BillCode,
		PaymentURL: bill.PaymentURL,
		Total:      totals.Total,
	}, nil
}

// ComputeTotals snapshots the cart into line items. Shipping and discount
// are zero.
func ComputeTotals(items []cart.Item) ([]orders.LineItem, Totals) {
	lines := make([]orders.LineItem, 0, len(items))
	subtotal := decimal.Zero
	for _, it := range items {
		price := decimal.NewFromFloat(it.Price)
		line := price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
		lines = append(lines, orders.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Subtotal:  line.InexactFloat64(),
		})
	}
	t := Totals{
		Subtotal:    subtotal,
		ShippingFee: decimal.Zero,
		Discount:    decimal.Zero,
	}
	t.Total = t.Subtotal.Add(t.ShippingFee).Sub(t.Discount)
	return lines, t
}

// NewOrderID returns "ORD" followed by the 13-digit unix millisecond time
// and four random upper-case hex digits, e.g. ORD1760600000000A1B2.
func NewOrderID(now time.Time) string {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return "ORD" + strconv.FormatInt(now.UnixMilli(), 10) + strings.ToUpper(hex.EncodeToString(b[:]))
}
