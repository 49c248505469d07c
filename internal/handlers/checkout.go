package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/storefront-payflow/internal/auth"
	"github.com/imrishuroy/storefront-payflow/internal/cart"
	"github.com/imrishuroy/storefront-payflow/internal/checkout"
	"github.com/imrishuroy/storefront-payflow/internal/gateway"
	"github.com/imrishuroy/storefront-payflow/internal/orders"
	"github.com/imrishuroy/storefront-payflow/internal/validation"
)

type checkoutHandler struct {
	svc      CheckoutService
	validate *validatorv10.Validate
	log      *slog.Logger
}

func (h *checkoutHandler) post(c *gin.Context) {
	var req validation.CheckoutRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	in := checkout.Request{
		UserID:    auth.UserID(c),
		SessionID: auth.SessionID(c),
		Customer: orders.Customer{
			Name:  strings.TrimSpace(req.Customer.Name),
			Email: strings.TrimSpace(req.Customer.Email),
			Phone: strings.TrimSpace(req.Customer.Phone),
		},
	}
	if len(req.Items) > 0 {
		in.Items = make([]cart.Item, 0, len(req.Items))
		for _, it := range req.Items {
			in.Items = append(in.Items, cart.Item{
				ProductID: it.ProductID,
				Name:      it.Name,
				Price:     it.Price,
				Quantity:  it.Quantity,
				Size:      it.Size,
			})
		}
	}

	res, err := h.svc.Checkout(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}

	if wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, res.PaymentURL)
		return
	}
	respond(c, http.StatusOK, true, "Bill created", gin.H{
		"orderId":    res.OrderID,
		"billCode":   res.BillCode,
		"paymentUrl": res.PaymentURL,
		"total":      res.Total.StringFixed(2),
	})
}

func (h *checkoutHandler) fail(c *gin.Context, err error) {
	var gerr *gateway.GatewayError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrInvalidAmount):
		respond(c, http.StatusBadRequest, false, err.Error(), nil)
	case errors.Is(err, checkout.ErrUnauthenticated):
		respond(c, http.StatusUnauthorized, false, err.Error(), nil)
	case errors.Is(err, gateway.ErrNotConfigured):
		h.log.Error("checkout unavailable", "error", err)
		respond(c, http.StatusServiceUnavailable, false, "Payments are temporarily unavailable", nil)
	case errors.As(err, &gerr):
		respond(c, http.StatusBadGateway, false, gerr.Message(), nil)
	case errors.Is(err, checkout.ErrOrderNotPersisted):
		respond(c, http.StatusInternalServerError, false, "Your order could not be saved. Please contact support before paying.", nil)
	default:
		h.log.Error("checkout failed", "error", err)
		respond(c, http.StatusInternalServerError, false, "Checkout failed", nil)
	}
}

// wantsHTML reports whether the client is a browser navigation rather than
// an API call.
func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
