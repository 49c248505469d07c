package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrNotConfigured is returned before any network call when credentials or
// the base URL are missing.
var ErrNotConfigured = errors.New("payment gateway is not configured")

const maxErrorBody = 512

// GatewayError reports a non-2xx response, an unparseable body or a
// transport failure. Body holds the raw response, truncated.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func newGatewayError(op string, status int, body []byte, err error) *GatewayError {
	b := string(body)
	if len(b) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(b[cut]) {
			cut--
		}
		b = b[:cut] + "..."
	}
	return &GatewayError{Op: op, StatusCode: status, Body: b, Err: err}
}

func (e *GatewayError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "gateway %s", e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if e.Body != "" {
		fmt.Fprintf(&sb, ": %s", e.Body)
	}
	return sb.String()
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Message extracts the gateway's own failure text when the body carries
// one, for showing to the customer.
func (e *GatewayError) Message() string {
	body := strings.TrimSpace(e.Body)
	var single struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal([]byte(body), &single) == nil && single.Msg != "" {
		return single.Msg
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal([]byte(body), &list) == nil && len(list) > 0 && list[0].Msg != "" {
		return list[0].Msg
	}
	if body != "" && !strings.HasPrefix(body, "<") && len(body) <= 120 {
		return body
	}
	return "The payment gateway could not process the request"
}
