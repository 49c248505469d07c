package main

import "github.com/imrishuroy/storefront-payflow/internal/orders"

// Metric names recorded per order event type.
const (
	MetricPaymentSucceeded = "PaymentSucceeded"
	MetricPaymentFailed    = "PaymentFailed"
	MetricBillOrphaned     = "BillOrphaned"
)

var metricForEvent = map[string]string{
	orders.EventPaymentSucceeded: MetricPaymentSucceeded,
	orders.EventPaymentFailed:    MetricPaymentFailed,
	orders.EventBillOrphaned:     MetricBillOrphaned,
}
