package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/storefront-payflow/internal/auth"
	"github.com/imrishuroy/storefront-payflow/internal/cart"
	"github.com/imrishuroy/storefront-payflow/internal/checkout"
	"github.com/imrishuroy/storefront-payflow/internal/validation"
)

type cartHandler struct {
	carts    cart.Store
	validate *validatorv10.Validate
	log      *slog.Logger
}

func (h *cartHandler) get(c *gin.Context) {
	items, err := h.carts.Get(c.Request.Context(), auth.SessionID(c))
	if err != nil {
		h.log.Error("get cart", "error", err)
		respond(c, http.StatusInternalServerError, false, "Could not load cart", nil)
		return
	}
	respond(c, http.StatusOK, true, "Cart retrieved", cartBody(items))
}

func (h *cartHandler) putItems(c *gin.Context) {
	var req validation.CartItemsRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	items := make([]cart.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, cart.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Size:      it.Size,
		})
	}
	if err := h.carts.Put(c.Request.Context(), auth.SessionID(c), items); err != nil {
		h.log.Error("put cart", "error", err)
		respond(c, http.StatusInternalServerError, false, "Could not save cart", nil)
		return
	}
	respond(c, http.StatusOK, true, "Cart updated", cartBody(items))
}

func cartBody(items []cart.Item) gin.H {
	if items == nil {
		items = []cart.Item{}
	}
	_, totals := checkout.ComputeTotals(items)
	return gin.H{"items": items, "subtotal": totals.Subtotal.StringFixed(2)}
}
