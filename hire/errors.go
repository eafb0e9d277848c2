package hire

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("hire: not found")
	ErrBidNotFound  = fmt.Errorf("%w: bid", ErrNotFound)
	ErrGigNotFound  = fmt.Errorf("%w: gig", ErrNotFound)
	ErrUnauthorized = errors.New("hire: only the gig owner can hire for it")
	ErrConflict     = errors.New("hire: gig is already assigned")
	// ErrTransaction covers store failures that survived the retry budget.
	ErrTransaction = errors.New("hire: transaction failed")
	// ErrTransient marks store errors worth retrying from Begin, such as
	// serialization failures and deadlocks. Store implementations wrap it.
	ErrTransient = errors.New("hire: transient store conflict")
)

// Outcome labels used for metrics and logs.
const (
	OutcomeSuccess      = "success"
	OutcomeNotFound     = "not_found"
	OutcomeUnauthorized = "unauthorized"
	OutcomeConflict     = "conflict"
	OutcomeTxFailure    = "tx_failure"
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeTxFailure
	}
}
