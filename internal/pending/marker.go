// Package pending holds the Pending-Payment Marker: a short-lived record,
// scoped to one device session, saying the user was sent to the gateway
// and has not yet seen a status page.
package pending

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL is how long a marker keeps redirecting navigation.
const DefaultTTL = time.Hour

// Marker is serialized as {orderId, billCode, timestamp} with timestamp in
// epoch milliseconds.
type Marker struct {
	OrderID   string `json:"orderId" dynamodbav:"order_id"`
	BillCode  string `json:"billCode" dynamodbav:"bill_code"`
	Timestamp int64  `json:"timestamp" dynamodbav:"timestamp"`
}

// NewMarker stamps a marker with now.
func NewMarker(orderID, billCode string, now time.Time) Marker {
	return Marker{OrderID: orderID, BillCode: billCode, Timestamp: now.UnixMilli()}
}

func (m Marker) CreatedAt() time.Time { return time.UnixMilli(m.Timestamp) }

// Store keeps at most one marker per session. Get returns (nil, nil) when
// the session has none.
type Store interface {
	Put(ctx context.Context, sessionID string, m Marker) error
	Get(ctx context.Context, sessionID string) (*Marker, error)
	Clear(ctx context.Context, sessionID string) error
}

var errNoSession = errors.New("pending: empty session id")

type Decision int

const (
	// Allow lets navigation proceed; there is no marker.
	Allow Decision = iota
	// Redirect sends the user to the status page for the marker's payment.
	Redirect
	// Discard drops an abandoned marker and lets navigation proceed.
	Discard
)

func (d Decision) String() string {
	switch d {
	case Redirect:
		return "redirect"
	case Discard:
		return "discard"
	default:
		return "allow"
	}
}

// Decide applies the guard rule: a marker younger than ttl redirects, an
// older one is discarded.
func Decide(m *Marker, now time.Time, ttl time.Duration) Decision {
	if m == nil {
		return Allow
	}
	if now.Sub(m.CreatedAt()) < ttl {
		return Redirect
	}
	return Discard
}
