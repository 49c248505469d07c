package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/fx"

	"github.com/imrishuroy/storefront-payflow/internal/auth"
	"github.com/imrishuroy/storefront-payflow/internal/aws"
	"github.com/imrishuroy/storefront-payflow/internal/cart"
	"github.com/imrishuroy/storefront-payflow/internal/checkout"
	"github.com/imrishuroy/storefront-payflow/internal/config"
	"github.com/imrishuroy/storefront-payflow/internal/gateway"
	"github.com/imrishuroy/storefront-payflow/internal/handlers"
	"github.com/imrishuroy/storefront-payflow/internal/idempotency"
	"github.com/imrishuroy/storefront-payflow/internal/logging"
	"github.com/imrishuroy/storefront-payflow/internal/orders"
	"github.com/imrishuroy/storefront-payflow/internal/pending"
	"github.com/imrishuroy/storefront-payflow/internal/reconcile"
	"github.com/imrishuroy/storefront-payflow/internal/validation"
)

const receiptRetention = 7 * 24 * time.Hour

// Module wires the API's dependency graph.
var Module = fx.Options(
	fx.Provide(
		provideConfig,
		provideLogger,
		provideAWSClients,
		provideStores,
		providePublisher,
		provideGateway,
		validation.New,
		provideVerifier,
		provideCheckout,
		provideReconciler,
		provideRouter,
	),
)

func provideConfig() (*config.Config, error) {
	return config.Load(os.Getenv("CONFIG_PATH"))
}

func provideLogger(cfg *config.Config) *slog.Logger {
	log := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)
	return log
}

func provideAWSClients(cfg *config.Config) (*aws.Clients, error) {
	return aws.NewClients(context.Background(), cfg.AWS.Region, cfg.AWS.EndpointOverride)
}

// stores are the persistence backends selected together by config.
type stores struct {
	fx.Out

	Orders   orders.Store
	Receipts idempotency.Ledger
	Markers  pending.Store
	Carts    cart.Store
}

func provideStores(cfg *config.Config, clients *aws.Clients, log *slog.Logger) stores {
	backend := cfg.StoreBackend()
	log.Info("store backend selected", "backend", backend, "env", cfg.Env)

	if backend == config.StoreMemory {
		return stores{
			Orders:   orders.NewMemoryStore(),
			Receipts: idempotency.NewMemoryStore(),
			Markers:  pending.NewMemoryStore(cfg.PendingMarkerTTL),
			Carts:    cart.NewMemoryStore(),
		}
	}
	return stores{
		Orders:   orders.NewDynamoStore(clients.DynamoDB, cfg.Tables.Orders),
		Receipts: idempotency.NewStore(clients.DynamoDB, cfg.Tables.CallbackReceipts, receiptRetention),
		Markers:  pending.NewDynamoStore(clients.DynamoDB, cfg.Tables.PendingPayments, cfg.PendingMarkerTTL),
		Carts:    cart.NewDynamoStore(clients.DynamoDB, cfg.Tables.Carts),
	}
}

func providePublisher(cfg *config.Config, clients *aws.Clients, log *slog.Logger) orders.Publisher {
	if cfg.AWS.EventsQueueURL == "" {
		log.Info("order events queue not configured, events are dropped")
		return orders.NopPublisher{}
	}
	return orders.NewQueuePublisher(aws.NewPublisher(clients.SQS, cfg.AWS.EventsQueueURL))
}

func provideGateway(cfg *config.Config, log *slog.Logger) *gateway.Client {
	if cfg.Gateway.SecretKey == "" || cfg.Gateway.CategoryCode == "" {
		log.Warn("payment gateway credentials missing, checkout will be unavailable")
	}
	return gateway.NewClient(gateway.Config{
		BaseURL:      cfg.Gateway.BaseURL,
		SecretKey:    cfg.Gateway.SecretKey,
		CategoryCode: cfg.Gateway.CategoryCode,
		ReturnURL:    cfg.ReturnURL(),
		CallbackURL:  cfg.CallbackURL(),
		Timeout:      cfg.Gateway.Timeout,
		Retries:      cfg.Gateway.Retries,
	}, log.With("component", "gateway"))
}

func provideVerifier(cfg *config.Config) *auth.Verifier {
	return auth.NewVerifier(cfg.Auth.JWTSecret)
}

func provideCheckout(
	store orders.Store,
	gw *gateway.Client,
	carts cart.Store,
	markers pending.Store,
	events orders.Publisher,
	log *slog.Logger,
) *checkout.Service {
	return checkout.NewService(store, gw, carts, markers, events, log.With("component", "checkout"))
}

func provideReconciler(
	store orders.Store,
	receipts idempotency.Ledger,
	gw *gateway.Client,
	events orders.Publisher,
	v *validatorv10.Validate,
	log *slog.Logger,
) *reconcile.Reconciler {
	return reconcile.New(store, receipts, gw, events, v, log.With("component", "reconcile"))
}

func provideRouter(
	cfg *config.Config,
	co *checkout.Service,
	rec *reconcile.Reconciler,
	gw *gateway.Client,
	store orders.Store,
	carts cart.Store,
	markers pending.Store,
	verifier *auth.Verifier,
	v *validatorv10.Validate,
	log *slog.Logger,
) *gin.Engine {
	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	handlers.RegisterRoutes(r, handlers.HandlerConfig{
		Checkout:      co,
		Reconciler:    rec,
		Transactions:  gw,
		Orders:        store,
		Carts:         carts,
		Markers:       markers,
		Auth:          verifier,
		Validate:      v,
		Log:           log.With("component", "http"),
		MarkerTTL:     cfg.PendingMarkerTTL,
		SecureCookies: cfg.Env != "local",
	})
	return r
}
