package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/storefront-payflow/internal/auth"
	"github.com/imrishuroy/storefront-payflow/internal/cart"
	"github.com/imrishuroy/storefront-payflow/internal/payment"
	"github.com/imrishuroy/storefront-payflow/internal/pending"
	"github.com/imrishuroy/storefront-payflow/internal/validation"
)

// statusHandler serves the post-redirect status page and the status query
// API. It reads gateway truth and never writes orders.
type statusHandler struct {
	tx       TransactionQuerier
	carts    cart.Store
	markers  pending.Store
	validate *validatorv10.Validate
	log      *slog.Logger
}

// StatusView is what the status page renders.
type StatusView struct {
	Status    payment.DisplayStatus `json:"status"`
	OrderID   string                `json:"orderId,omitempty"`
	BillCode  string                `json:"billCode,omitempty"`
	Reference string                `json:"reference,omitempty"`
	Message   string                `json:"message"`
	NextSteps []string              `json:"nextSteps,omitempty"`
}

func (h *statusHandler) page(c *gin.Context) {
	ctx := c.Request.Context()
	sid := auth.SessionID(c)

	// before anything else, so the guard cannot loop back here
	if err := h.markers.Clear(ctx, sid); err != nil {
		h.log.Warn("clear pending payment marker", "error", err)
	}

	billCode := c.Query("billcode")
	code := c.Query("status")
	if code == "" {
		code = c.Query("status_id")
	}
	orderID := c.Query("order_id")

	var view StatusView
	switch {
	case billCode != "":
		view = h.fromGateway(ctx, billCode)
	case code != "" && orderID != "":
		view = StatusView{Status: payment.DisplayFromTransactionCode(code)}
	default:
		c.Redirect(http.StatusFound, "/cart")
		return
	}
	if view.OrderID == "" {
		view.OrderID = orderID
	}
	if view.BillCode == "" {
		view.BillCode = billCode
	}

	if err := h.carts.Clear(ctx, sid); err != nil {
		h.log.Warn("clear cart after payment", "error", err)
	}

	describe(&view, c.Query("msg"))
	c.JSON(http.StatusOK, view)
}

func (h *statusHandler) fromGateway(ctx context.Context, billCode string) StatusView {
	txs, err := h.tx.GetBillTransactions(ctx, billCode)
	if err != nil {
		h.log.Warn("status page gateway query failed", "bill_code", billCode, "error", err)
		return StatusView{Status: payment.DisplayError}
	}
	if len(txs) == 0 {
		return StatusView{Status: payment.DisplayUnknown}
	}
	latest := txs[len(txs)-1]
	return StatusView{
		Status:    payment.DisplayFromTransactionCode(latest.PaymentStatus.String()),
		OrderID:   latest.ExternalReferenceNo.String(),
		Reference: latest.InvoiceNo.String(),
	}
}

func describe(v *StatusView, reason string) {
	switch v.Status {
	case payment.DisplaySuccess:
		v.Message = "Payment successful. Your order is being processed."
		v.NextSteps = []string{"View your orders", "Continue shopping"}
	case payment.DisplayPending:
		v.Message = "Your payment is being confirmed by the bank."
		v.NextSteps = []string{"Check this page again in a few minutes", "View your orders"}
	case payment.DisplayFailed:
		v.Message = "Payment was not completed."
		if reason != "" {
			v.Message = "Payment was not completed: " + reason
		}
		v.NextSteps = []string{"Try the payment again from your orders", "Contact support with your order id"}
	case payment.DisplayUnknown:
		v.Message = "We could not find a payment for this bill yet."
		v.NextSteps = []string{"Check this page again in a few minutes", "Contact support with your order id"}
	default:
		v.Message = "We could not check your payment right now."
		v.NextSteps = []string{"Check this page again in a few minutes", "Contact support with your order id"}
	}
}

func (h *statusHandler) queryGet(c *gin.Context) {
	billCode := c.Query("billcode")
	if billCode == "" {
		respond(c, http.StatusBadRequest, false, "billcode is required", nil)
		return
	}
	h.query(c, billCode)
}

func (h *statusHandler) queryPost(c *gin.Context) {
	var req validation.StatusQueryRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	h.query(c, req.BillCode)
}

func (h *statusHandler) query(c *gin.Context, billCode string) {
	txs, err := h.tx.GetBillTransactions(c.Request.Context(), billCode)
	if err != nil {
		h.log.Warn("status query gateway call failed", "bill_code", billCode, "error", err)
		respond(c, http.StatusBadGateway, false, "Could not reach the payment gateway", nil)
		return
	}

	data := gin.H{
		"billCode":        billCode,
		"status":          payment.DisplayPending,
		"transaction":     nil,
		"allTransactions": txs,
	}
	if len(txs) > 0 {
		latest := txs[len(txs)-1]
		data["status"] = payment.DisplayFromTransactionCode(latest.PaymentStatus.String())
		data["transaction"] = latest
	}
	respond(c, http.StatusOK, true, "Payment status retrieved", data)
}
