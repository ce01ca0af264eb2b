package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tickbook/ledger"
)

// Order is a single order request: immutable identity plus mutable fill
// state. Only the matching loop and explicit cancellation mutate it.
type Order struct {
	ID      uint64
	Account ledger.AccountID
	Side    Side
	Kind    OrderKind
	// Price is the limit price in quote asset per unit of base. Zero for
	// market orders.
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Remaining decimal.Decimal
	// Sequence defines FIFO order among same-price orders.
	Sequence  uint64
	Status    OrderStatus
	CreatedAt time.Time
}

// Fill reduces the order's remaining quantity by qty, moving the status to
// Filled when nothing remains and PartiallyFilled otherwise.
func (o *Order) Fill(qty decimal.Decimal) error {
	if o.Status.Terminal() {
		return fmt.Errorf("fill order %d: %w", o.ID, ErrAlreadyTerminal)
	}
	if !qty.IsPositive() || qty.GreaterThan(o.Remaining) {
		return fmt.Errorf("fill order %d with %s of %s remaining: %w",
			o.ID, qty, o.Remaining, ErrInvalidFillQuantity)
	}

	o.Remaining = o.Remaining.Sub(qty)
	if o.Remaining.IsZero() {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
	return nil
}

// Cancel moves an open or partially filled order to Cancelled.
func (o *Order) Cancel() error {
	if o.Status.Terminal() {
		return fmt.Errorf("cancel order %d: %w", o.ID, ErrAlreadyTerminal)
	}
	o.Status = Cancelled
	return nil
}

// FilledQuantity reports how much of the original quantity has traded.
func (o *Order) FilledQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.Remaining)
}
