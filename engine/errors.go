package engine

import "errors"

var (
	// ErrInvalidOrder rejects submissions with a non-positive quantity or,
	// for limit orders, a non-positive price.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrNoLiquidity rejects a market order submitted against an empty
	// opposite side.
	ErrNoLiquidity = errors.New("no liquidity")
	// ErrOrderNotFound rejects a cancellation whose target is not resting on
	// the book.
	ErrOrderNotFound = errors.New("order not found")
	// ErrAlreadyTerminal rejects a lifecycle transition on a filled or
	// cancelled order.
	ErrAlreadyTerminal = errors.New("order already terminal")
	// ErrInvalidFillQuantity rejects a fill that is non-positive or exceeds
	// the order's remaining quantity.
	ErrInvalidFillQuantity = errors.New("invalid fill quantity")
)
