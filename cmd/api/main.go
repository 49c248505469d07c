package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/imrishuroy/storefront-payflow/internal/config"
)

func main() {
	// .env is optional; deployed functions get their environment from Lambda
	_ = godotenv.Load()

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		fx.New(
			fx.NopLogger,
			Module,
			fx.Invoke(startServer),
		).Run()
		return
	}

	var r *gin.Engine
	app := fx.New(fx.NopLogger, Module, fx.Populate(&r))
	if err := app.Err(); err != nil {
		log.Fatalf("failed to build api: %v", err)
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func startServer(lc fx.Lifecycle, cfg *config.Config, r *gin.Engine, log *slog.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPServer.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("running local server", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("local server stopped", "error", err)
					os.Exit(1)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping local server")
			return srv.Shutdown(ctx)
		},
	})
}
