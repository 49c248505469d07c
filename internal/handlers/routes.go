// Package handlers exposes the storefront payment flow over HTTP.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/storefront-payflow/internal/auth"
	"github.com/imrishuroy/storefront-payflow/internal/cart"
	"github.com/imrishuroy/storefront-payflow/internal/checkout"
	"github.com/imrishuroy/storefront-payflow/internal/gateway"
	"github.com/imrishuroy/storefront-payflow/internal/orders"
	"github.com/imrishuroy/storefront-payflow/internal/pending"
	"github.com/imrishuroy/storefront-payflow/internal/reconcile"
)

type CheckoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (checkout.Result, error)
}

type CallbackReconciler interface {
	Handle(ctx context.Context, cb reconcile.Callback) (reconcile.Ack, error)
	Acknowledge(cb reconcile.Callback) reconcile.Ack
}

type TransactionQuerier interface {
	GetBillTransactions(ctx context.Context, billCode string) ([]gateway.Transaction, error)
}

// HandlerConfig groups dependencies for the HTTP routes.
type HandlerConfig struct {
	Checkout      CheckoutService
	Reconciler    CallbackReconciler
	Transactions  TransactionQuerier
	Orders        orders.Store
	Carts         cart.Store
	Markers       pending.Store
	Auth          *auth.Verifier
	Validate      *validatorv10.Validate
	Log           *slog.Logger
	MarkerTTL     time.Duration
	SecureCookies bool
}

// RegisterRoutes registers every route on r.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	if cfg.MarkerTTL <= 0 {
		cfg.MarkerTTL = pending.DefaultTTL
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// gateway server-to-server: no session, no guard
	cb := &callbackHandler{rec: cfg.Reconciler, log: cfg.Log}
	r.POST("/api/payment/callback", cb.post)
	r.GET("/api/payment/callback", cb.get)

	st := &statusHandler{tx: cfg.Transactions, carts: cfg.Carts, markers: cfg.Markers, validate: cfg.Validate, log: cfg.Log}

	web := r.Group("/")
	web.Use(auth.Session(cfg.SecureCookies))
	web.Use(PendingPaymentGuard(cfg.Markers, cfg.MarkerTTL, cfg.Log))

	web.GET("/payment/status", st.page)
	web.GET("/api/payment/status", st.queryGet)
	web.POST("/api/payment/status", st.queryPost)

	ct := &cartHandler{carts: cfg.Carts, validate: cfg.Validate, log: cfg.Log}
	web.GET("/cart", ct.get)
	web.PUT("/cart/items", ct.putItems)

	co := &checkoutHandler{svc: cfg.Checkout, validate: cfg.Validate, log: cfg.Log}
	od := &ordersHandler{orders: cfg.Orders, log: cfg.Log}
	user := web.Group("/")
	user.Use(cfg.Auth.RequireUser())
	user.POST("/checkout", co.post)
	user.GET("/orders", od.list)
	user.GET("/orders/:orderId", od.get)
}
