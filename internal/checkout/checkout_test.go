package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/storefront-payflow/internal/cart"
	"github.com/imrishuroy/storefront-payflow/internal/gateway"
	"github.com/imrishuroy/storefront-payflow/internal/logging"
	"github.com/imrishuroy/storefront-payflow/internal/orders"
	"github.com/imrishuroy/storefront-payflow/internal/pending"
)

type fakeGateway struct {
	requests []gateway.BillRequest
	err      error
}

func (f *fakeGateway) CreateBill(ctx context.Context, req gateway.BillRequest) (gateway.Bill, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return gateway.Bill{}, f.err
	}
	return gateway.Bill{BillCode: "gcbhict9", PaymentURL: "https://gw.test/gcbhict9"}, nil
}

type failingStore struct {
	orders.Store
	err error
}

func (f failingStore) Create(ctx context.Context, o *orders.Order) error { return f.err }

type recordingPublisher struct{ events []orders.Event }

func (r *recordingPublisher) Publish(ctx context.Context, e orders.Event) error {
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	svc     *Service
	store   *orders.MemoryStore
	gw      *fakeGateway
	carts   *cart.MemoryStore
	markers *pending.MemoryStore
	events  *recordingPublisher
	logs    *bytes.Buffer
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   orders.NewMemoryStore(),
		gw:      &fakeGateway{},
		carts:   cart.NewMemoryStore(),
		markers: pending.NewMemoryStore(pending.DefaultTTL),
		events:  &recordingPublisher{},
		logs:    &bytes.Buffer{},
		now:     time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC),
	}
	log := slog.New(slog.NewJSONHandler(f.logs, nil))
	f.svc = NewService(f.store, f.gw, f.carts, f.markers, f.events, log)
	f.svc.now = func() time.Time { return f.now }
	f.svc.newOrderID = func(time.Time) string { return "ORD1760601600000ABCD" }
	return f
}

func customer() orders.Customer {
	return orders.Customer{Name: "Aina", Email: "aina@example.com", Phone: "0123456789"}
}

func TestComputeTotals(t *testing.T) {
	lines, totals := ComputeTotals([]cart.Item{
		{ProductID: "p-1", Name: "Shirt", Price: 19.99, Quantity: 3},
		{ProductID: "p-2", Name: "Cap", Price: 0.1, Quantity: 7},
		{ProductID: "p-3", Name: "Socks", Price: 5, Quantity: 1, Size: "L"},
	})

	assert.True(t, totals.Subtotal.Equal(decimal.RequireFromString("65.67")), totals.Subtotal.String())
	assert.True(t, totals.Total.Equal(totals.Subtotal), "shipping and discount are zero")
	require.Len(t, lines, 3)
	assert.Equal(t, 59.97, lines[0].Subtotal)
	assert.Equal(t, 0.7, lines[1].Subtotal)
	assert.Equal(t, "L", lines[2].Size)
}

func TestCheckout_CreatesBillOrderAndMarker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Checkout(ctx, Request{
		UserID:    "user-1",
		SessionID: "sid-1",
		Customer:  customer(),
		Items: []cart.Item{
			{ProductID: "p-1", Name: "Linen Shirt", Price: 149.50, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "ORD1760601600000ABCD", res.OrderID)
	assert.Equal(t, "https://gw.test/gcbhict9", res.PaymentURL)
	require.Len(t, f.gw.requests, 1)
	assert.Equal(t, int64(14950), gateway.ToMinorUnits(f.gw.requests[0].Amount))
	assert.Equal(t, "ORD1760601600000ABCD", f.gw.requests[0].OrderID)

	o, err := f.store.GetByOrderID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.Equal(t, orders.PaymentPending, o.PaymentStatus)
	assert.Equal(t, "gcbhict9", o.BillCode)
	assert.Equal(t, "https://gw.test/gcbhict9", o.PaymentURL)
	assert.Equal(t, 149.50, o.Total)
	assert.Equal(t, o.Subtotal+o.ShippingFee-o.Discount, o.Total)

	m, err := f.markers.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, pending.Marker{OrderID: res.OrderID, BillCode: "gcbhict9", Timestamp: f.now.UnixMilli()}, *m)
	assert.Empty(t, f.events.events)
}

func TestCheckout_UsesSessionCartWhenNoItemsGiven(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.carts.Put(ctx, "sid-1", []cart.Item{
		{ProductID: "p-1", Name: "Shirt", Price: 100, Quantity: 2},
	}))

	res, err := f.svc.Checkout(ctx, Request{UserID: "user-1", SessionID: "sid-1", Customer: customer()})
	require.NoError(t, err)
	assert.True(t, res.Total.Equal(decimal.NewFromInt(200)))

	o, err := f.store.GetByOrderID(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, o.Subtotal)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
}

func TestCheckout_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, Request{SessionID: "sid-1", Customer: customer(), Items: []cart.Item{{Name: "x", Price: 1, Quantity: 1}}})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.Checkout(ctx, Request{UserID: "user-1", SessionID: "sid-1", Customer: customer()})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.svc.Checkout(ctx, Request{UserID: "user-1", SessionID: "sid-1", Customer: customer(), Items: []cart.Item{{Name: "x", Price: 0, Quantity: 1}}})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Empty(t, f.gw.requests, "no gateway call on invalid input")
}

func TestCheckout_BillFailureCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gw.err = &gateway.GatewayError{Op: "createBill", StatusCode: 200, Body: `[{"msg":"Invalid category"}]`}

	_, err := f.svc.Checkout(ctx, Request{
		UserID: "user-1", SessionID: "sid-1", Customer: customer(),
		Items: []cart.Item{{ProductID: "p-1", Name: "Shirt", Price: 10, Quantity: 1}},
	})
	var gerr *gateway.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "Invalid category", gerr.Message())

	list, err := f.store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)
	m, _ := f.markers.Get(ctx, "sid-1")
	assert.Nil(t, m)
}

func TestCheckout_PersistFailureAfterBillIsOrphan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.orders = failingStore{Store: f.store, err: errors.New("dynamodb unavailable")}

	_, err := f.svc.Checkout(ctx, Request{
		UserID: "user-1", SessionID: "sid-1", Customer: customer(),
		Items: []cart.Item{{ProductID: "p-1", Name: "Shirt", Price: 10, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrOrderNotPersisted)

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, orders.EventBillOrphaned, ev.Type)
	assert.Equal(t, "gcbhict9", ev.BillCode)
	assert.Equal(t, "ORD1760601600000ABCD", ev.OrderID)

	var found bool
	dec := json.NewDecoder(f.logs)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		if rec["level"] == "ERROR" && rec["orphaned_bill"] == true {
			found = true
			assert.Equal(t, "gcbhict9", rec["bill_code"])
			assert.Equal(t, "ORD1760601600000ABCD", rec["order_id"])
		}
	}
	assert.True(t, found, "orphaned bill must be logged at ERROR")

	m, _ := f.markers.Get(ctx, "sid-1")
	assert.Nil(t, m, "no marker for an order that does not exist")
}

func TestNewOrderID(t *testing.T) {
	at := time.UnixMilli(1760600000000)
	id := NewOrderID(at)
	assert.Regexp(t, regexp.MustCompile(`^ORD1760600000000[0-9A-F]{4}$`), id)
	assert.Len(t, "Order #"+id, 27)
}

func TestCheckout_DiscardLoggerStillWorks(t *testing.T) {
	store := orders.NewMemoryStore()
	svc := NewService(store, &fakeGateway{}, cart.NewMemoryStore(), pending.NewMemoryStore(0), orders.NopPublisher{}, logging.Discard())
	res, err := svc.Checkout(context.Background(), Request{
		UserID: "user-1", SessionID: "sid", Customer: customer(),
		Items: []cart.Item{{ProductID: "p", Name: "n", Price: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = store.GetByOrderID(context.Background(), res.OrderID)
	require.NoError(t, err)
}
