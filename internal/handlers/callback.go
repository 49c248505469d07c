package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/storefront-payflow/internal/reconcile"
)

type callbackHandler struct {
	rec CallbackReconciler
	log *slog.Logger
}

func (h *callbackHandler) post(c *gin.Context) {
	defer func() {
		if p := recover(); p != nil {
			h.log.Error("callback handler panic", "panic", fmt.Sprint(p))
			respond(c, http.StatusInternalServerError, false, "Internal error", nil)
		}
	}()

	var cb reconcile.Callback
	if err := c.ShouldBind(&cb); err != nil {
		h.log.Error("parse callback body", "error", err)
		respond(c, http.StatusInternalServerError, false, "Could not parse callback", nil)
		return
	}

	ack, err := h.rec.Handle(c.Request.Context(), cb)
	switch {
	case errors.Is(err, reconcile.ErrInvalidCallback):
		respond(c, http.StatusBadRequest, false, "Missing required fields", nil)
		return
	case errors.Is(err, reconcile.ErrBadSignature):
		respond(c, http.StatusBadRequest, false, "Invalid signature", nil)
		return
	case err != nil:
		h.log.Error("handle callback", "error", err)
		respond(c, http.StatusInternalServerError, false, "Internal error", nil)
		return
	}
	c.JSON(http.StatusOK, ack)
}

func (h *callbackHandler) get(c *gin.Context) {
	var cb reconcile.Callback
	if err := c.ShouldBindQuery(&cb); err != nil {
		respond(c, http.StatusBadRequest, false, "Could not parse callback", nil)
		return
	}
	c.JSON(http.StatusOK, h.rec.Acknowledge(cb))
}
