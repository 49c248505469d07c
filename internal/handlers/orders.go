package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/storefront-payflow/internal/auth"
	"github.com/imrishuroy/storefront-payflow/internal/orders"
)

type ordersHandler struct {
	orders orders.Store
	log    *slog.Logger
}

// orderView is an order as exposed to its owner.
type orderView struct {
	orders.Order
	PaymentStatus string `json:"paymentStatus"`
}

func viewOf(o orders.Order) orderView {
	return orderView{Order: o, PaymentStatus: o.PaymentStatus.Public()}
}

func (h *ordersHandler) get(c *gin.Context) {
	o, err := h.orders.GetByOrderID(c.Request.Context(), c.Param("orderId"))
	switch {
	case errors.Is(err, orders.ErrNotFound):
		respond(c, http.StatusNotFound, false, "Order not found", nil)
		return
	case err != nil:
		h.log.Error("get order", "order_id", c.Param("orderId"), "error", err)
		respond(c, http.StatusInternalServerError, false, "Could not load order", nil)
		return
	}
	// other users' orders look missing
	if o.UserID != auth.UserID(c) {
		respond(c, http.StatusNotFound, false, "Order not found", nil)
		return
	}
	respond(c, http.StatusOK, true, "Order retrieved", viewOf(*o))
}

func (h *ordersHandler) list(c *gin.Context) {
	list, err := h.orders.ListByUser(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.log.Error("list orders", "error", err)
		respond(c, http.StatusInternalServerError, false, "Could not load orders", nil)
		return
	}
	views := make([]orderView, 0, len(list))
	for _, o := range list {
		views = append(views, viewOf(o))
	}
	respond(c, http.StatusOK, true, "Orders retrieved", views)
}
