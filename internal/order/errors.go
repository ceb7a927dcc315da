package order

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the confirmation and rejection workflows.
// Collisions inside the allocator are never surfaced; they are redrawn.
var (
	ErrNotFound          = errors.New("order not found")
	ErrRaffleNotFound    = errors.New("raffle not found")
	ErrInvalidQuantity   = errors.New("requested quantity must be a positive integer")
	ErrInvalidRequest    = errors.New("invalid reservation request")
	ErrVoucherMissing    = errors.New("payment voucher required before confirmation")
	ErrInvalidTransition = errors.New("order is in a terminal state")
	ErrConfirmInProgress = errors.New("confirmation already in progress for this order")
	ErrStoreFailure      = errors.New("store operation failed")
)

// AllocationExhaustedError reports that the attempt budget ran out before
// the requested count could be claimed. Claimed numbers are released by
// the workflow before this error reaches the caller.
type AllocationExhaustedError struct {
	RaffleID  string
	Requested int
	Claimed   int
}

func (e *AllocationExhaustedError) Error() string {
	return fmt.Sprintf("ticket number space exhausted for raffle %s: claimed %d of %d",
		e.RaffleID, e.Claimed, e.Requested)
}

// IsAllocationExhausted reports whether err wraps an AllocationExhaustedError.
func IsAllocationExhausted(err error) bool {
	var exhausted *AllocationExhaustedError
	return errors.As(err, &exhausted)
}
