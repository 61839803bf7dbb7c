package engine

import "errors"

var (
	// ErrInvalidOrder is returned by Submit when price or quantity is
	// non-positive, and by OrderBook.Add on a precondition violation.
	// Modify reports a non-positive price or quantity by returning false.
	ErrInvalidOrder = errors.New("engine: invalid order (price and quantity must be positive)")

	// ErrUnknownOrder names the case where cancel, modify, or get
	// references an order id the engine has no record of. Cancel,
	// Modify and Get report that case by returning false; no function
	// in this package returns this error.
	ErrUnknownOrder = errors.New("engine: unknown order id")

	// ErrNotModifiable names the case where modify targets an order
	// whose status is not PENDING; once a fill has occurred, callers
	// must cancel and resubmit explicitly. Modify reports that case by
	// returning false; no function in this package returns this error.
	ErrNotModifiable = errors.New("engine: order is not modifiable (already filled or partially filled)")
)
