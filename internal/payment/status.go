// Package payment holds the gateway's payment status vocabulary shared by
// the callback reconciler and the status poller.
package payment

// Gateway status codes as sent in callbacks, redirects and transaction
// records.
const (
	CodeSuccess = "1"
	CodePending = "2"
	CodeFailed  = "3"
)

// Outcome is the interpreted result of a callback status code.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSucceeded
	OutcomePending
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "success"
	case OutcomePending:
		return "pending"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseCallbackCode maps a callback status. Codes other than 1, 2 and 3 are
// unknown and must not mutate an order.
func ParseCallbackCode(code string) Outcome {
	switch code {
	case CodeSuccess:
		return OutcomeSucceeded
	case CodePending:
		return OutcomePending
	case CodeFailed:
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}

// DisplayStatus is what the status page and status query report.
type DisplayStatus string

const (
	DisplaySuccess DisplayStatus = "success"
	DisplayPending DisplayStatus = "pending"
	DisplayFailed  DisplayStatus = "failed"
	DisplayUnknown DisplayStatus = "unknown"
	DisplayError   DisplayStatus = "error"
)

// DisplayFromTransactionCode maps a transaction record's status: 1 is
// success, 2 pending, anything else failed.
func DisplayFromTransactionCode(code string) DisplayStatus {
	switch code {
	case CodeSuccess:
		return DisplaySuccess
	case CodePending:
		return DisplayPending
	default:
		return DisplayFailed
	}
}
