package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/storefront-payflow/internal/auth"
	"github.com/imrishuroy/storefront-payflow/internal/pending"
)

// PendingPaymentGuard sends page navigations back to the status page while
// a recent pending-payment marker exists for the session.
func PendingPaymentGuard(markers pending.Store, ttl time.Duration, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || guardExempt(c.Request.URL.Path) {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		sid := auth.SessionID(c)

		m, err := markers.Get(ctx, sid)
		if err != nil {
			log.Warn("read pending payment marker", "error", err)
			c.Next()
			return
		}

		switch pending.Decide(m, time.Now(), ttl) {
		case pending.Redirect:
			q := url.Values{}
			q.Set("billcode", m.BillCode)
			q.Set("order_id", m.OrderID)
			c.Redirect(http.StatusFound, "/payment/status?"+q.Encode())
			c.Abort()
		case pending.Discard:
			if err := markers.Clear(ctx, sid); err != nil {
				log.Warn("discard stale pending payment marker", "error", err)
			}
			c.Next()
		case pending.Allow:
			c.Next()
		}
	}
}

func guardExempt(path string) bool {
	return path == "/payment/status" ||
		path == "/health" ||
		strings.HasPrefix(path, "/api/payment/")
}
