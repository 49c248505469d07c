// Package reconcile applies gateway payment callbacks to orders. It is the
// only writer of an order's payment state.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/storefront-payflow/internal/idempotency"
	"github.com/imrishuroy/storefront-payflow/internal/orders"
	"github.com/imrishuroy/storefront-payflow/internal/payment"
)

var (
	ErrInvalidCallback = errors.New("callback is missing required fields")
	ErrBadSignature    = errors.New("callback signature is invalid")
)

// Verifier checks a callback signature. gateway.Client implements it.
type Verifier interface {
	VerifyCallback(refno, status, billCode, orderID, amount, signature string) bool
}

type Reconciler struct {
	orders   orders.Store
	receipts idempotency.Ledger
	verifier Verifier
	events   orders.Publisher
	validate *validatorv10.Validate
	log      *slog.Logger
}

func New(
	store orders.Store,
	receipts idempotency.Ledger,
	verifier Verifier,
	events orders.Publisher,
	validate *validatorv10.Validate,
	log *slog.Logger,
) *Reconciler {
	return &Reconciler{
		orders:   store,
		receipts: receipts,
		verifier: verifier,
		events:   events,
		validate: validate,
		log:      log,
	}
}

// Handle authenticates cb and applies it. The only errors returned are
// ErrInvalidCallback and ErrBadSignature; storage problems are logged and
// still acknowledged so the gateway does not retry indefinitely.
func (r *Reconciler) Handle(ctx context.Context, cb Callback) (Ack, error) {
	cb.Normalize()
	if err := r.validate.Struct(cb); err != nil {
		return Ack{}, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	if !r.verifier.VerifyCallback(cb.RefNo, cb.Status, cb.BillCode, cb.OrderID, cb.Amount, cb.Signature) {
		r.log.Warn("callback rejected: bad signature", "order_id", cb.OrderID, "bill_code", cb.BillCode)
		return Ack{}, ErrBadSignature
	}

	log := r.log.With("order_id", cb.OrderID, "bill_code", cb.BillCode, "refno", cb.RefNo, "status", cb.Status)

	outcome := payment.ParseCallbackCode(cb.Status)
	switch outcome {
	case payment.OutcomeSucceeded:
		r.apply(ctx, log, cb, outcome)
		return Ack{
			Success: true,
			Message: "Payment processed successfully",
			Data:    map[string]any{"orderId": cb.OrderID, "transactionId": cb.RefNo},
		}, nil
	case payment.OutcomeFailed:
		if !r.apply(ctx, log, cb, outcome) {
			return Ack{
				Success: true,
				Message: "Callback acknowledged",
				Data:    map[string]any{"orderId": cb.OrderID, "status": payment.DisplayFailed},
			}, nil
		}
		return Ack{
			Success: false,
			Message: "Payment failed",
			Data:    map[string]any{"orderId": cb.OrderID, "status": payment.DisplayFailed, "reason": cb.FailureMessage()},
		}, nil
	case payment.OutcomePending:
		log.Info("payment pending, order left unchanged")
		return Ack{
			Success: true,
			Message: "Payment pending",
			Data:    map[string]any{"orderId": cb.OrderID, "status": payment.DisplayPending},
		}, nil
	case payment.OutcomeUnknown:
		log.Warn("unknown payment status in callback, order left unchanged")
		return Ack{
			Success: false,
			Message: "Unknown payment status",
			Data:    map[string]any{"orderId": cb.OrderID, "status": cb.Status},
		}, nil
	default:
		panic(fmt.Sprintf("reconcile: unhandled outcome %v", outcome))
	}
}

// Acknowledge answers a query-parameter notification. It never mutates.
func (r *Reconciler) Acknowledge(cb Callback) Ack {
	cb.Normalize()
	r.log.Info("GET callback acknowledged without mutation",
		"order_id", cb.OrderID, "bill_code", cb.BillCode, "status", cb.Status)
	return Ack{
		Success: true,
		Message: "Callback received",
		Data: map[string]any{
			"orderId": cb.OrderID,
			"status":  payment.ParseCallbackCode(cb.Status).String(),
		},
	}
}

// apply records the callback against its order. It reports false only when
// the order does not exist.
func (r *Reconciler) apply(ctx context.Context, log *slog.Logger, cb Callback, outcome payment.Outcome) bool {
	key := idempotency.Key(cb.BillCode, cb.RefNo, cb.Status)
	if r.seen(ctx, log, key, cb.OrderID) {
		log.Info("duplicate callback, already applied")
		return true
	}

	current, err := r.orders.GetByOrderID(ctx, cb.OrderID)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		log.Warn("callback for unknown order")
		r.markFailed(ctx, log, key, "order not found")
		return false
	case err != nil:
		log.Error("lookup order for callback", "error", err)
		r.markFailed(ctx, log, key, err.Error())
		return true
	}

	result := paymentResult(cb, outcome)
	if current.PaymentStatus == orders.PaymentPaid && result.PaymentStatus != orders.PaymentPaid {
		r.logRegression(log)
		r.markDone(ctx, log, key, "rejected")
		return true
	}
	if current.PaymentStatus == orders.PaymentFailed && result.PaymentStatus == orders.PaymentPaid {
		log.Warn("payment succeeded after a recorded failure", "anomaly", "payment_status_recovered")
	}

	err = r.orders.ApplyPaymentResult(ctx, cb.OrderID, result)
	switch {
	case errors.Is(err, orders.ErrStatusMismatch):
		// a success landed between the read and the write
		r.logRegression(log)
		r.markDone(ctx, log, key, "rejected")
		return true
	case err != nil:
		log.Error("persist payment result", "error", err)
		r.markFailed(ctx, log, key, err.Error())
		return true
	}

	log.Info("order payment updated", "payment_status", result.PaymentStatus, "order_status", result.Status)
	r.markDone(ctx, log, key, outcome.String())
	r.publish(ctx, log, cb, outcome)
	return true
}

// seen reports whether the receipt ledger says this exact callback was
// already applied. Ledger trouble counts as not seen.
func (r *Reconciler) seen(ctx context.Context, log *slog.Logger, key, orderID string) bool {
	created, err := r.receipts.CreateIfNotExists(ctx, key, orderID)
	if err != nil {
		log.Warn("receipt ledger unavailable", "error", err)
		return false
	}
	if created {
		return false
	}
	rec, err := r.receipts.Get(ctx, key)
	if err != nil {
		log.Warn("read callback receipt", "error", err)
		return false
	}
	return rec != nil && rec.Status == idempotency.StatusDone
}

func (r *Reconciler) markDone(ctx context.Context, log *slog.Logger, key, outcome string) {
	if err := r.receipts.MarkDone(ctx, key, outcome); err != nil {
		log.Warn("mark callback receipt done", "error", err)
	}
}

func (r *Reconciler) markFailed(ctx context.Context, log *slog.Logger, key, note string) {
	if err := r.receipts.MarkFailed(ctx, key, note); err != nil {
		log.Warn("mark callback receipt failed", "error", err)
	}
}

func (r *Reconciler) logRegression(log *slog.Logger) {
	log.Error("failed callback for an order already paid, order left unchanged",
		"anomaly", "payment_status_regression")
}

func (r *Reconciler) publish(ctx context.Context, log *slog.Logger, cb Callback, outcome payment.Outcome) {
	e := orders.Event{
		OrderID:       cb.OrderID,
		BillCode:      cb.BillCode,
		TransactionID: cb.RefNo,
	}
	if amt, err := decimal.NewFromString(cb.Amount); err == nil {
		e.Amount = amt.InexactFloat64()
	}
	if outcome == payment.OutcomeSucceeded {
		e.Type = orders.EventPaymentSucceeded
	} else {
		e.Type = orders.EventPaymentFailed
		e.Message = cb.FailureMessage()
	}
	if err := r.events.Publish(ctx, e); err != nil {
		log.Warn("publish payment event", "error", err)
	}
}

func paymentResult(cb Callback, outcome payment.Outcome) orders.PaymentResult {
	if outcome == payment.OutcomeSucceeded {
		return orders.PaymentResult{
			PaymentStatus: orders.PaymentPaid,
			Status:        orders.StatusProcessing,
			TransactionID: cb.RefNo,
			BillCode:      cb.BillCode,
			Note:          fmt.Sprintf("Payment successful. Transaction time: %s. Amount: %s", orDash(cb.TransactionTime), orDash(cb.Amount)),
		}
	}
	msg := cb.FailureMessage()
	if msg == "" {
		msg = "no reason given"
	}
	return orders.PaymentResult{
		PaymentStatus: orders.PaymentFailed,
		Status:        orders.StatusFailed,
		TransactionID: cb.RefNo,
		BillCode:      cb.BillCode,
		Note:          "Payment failed: " + msg,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
