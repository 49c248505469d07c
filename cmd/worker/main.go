package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/imrishuroy/storefront-payflow/internal/aws"
	"github.com/imrishuroy/storefront-payflow/internal/config"
	"github.com/imrishuroy/storefront-payflow/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)

	clients, err := aws.NewClients(context.Background(), cfg.AWS.Region, cfg.AWS.EndpointOverride)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}
	p := NewProcessor(aws.NewMetrics(clients.CloudWatch, cfg.AWS.MetricsNamespace), logger)

	// If RUN_LOCAL=true, process a single simulated SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"event_id":"local-1","type":"order.bill_orphaned","order_id":"ORD1760600000000A1B2","bill_code":"local-bill"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{MessageId: "local-1", Body: testBody},
			},
		}
		resp, err := p.Handle(context.Background(), event)
		if err != nil || len(resp.BatchItemFailures) > 0 {
			log.Fatalf("local handler error: %v %+v", err, resp.BatchItemFailures)
		}
		return
	}

	lambda.Start(p.Handle)
}
