package bots

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tickbook/engine"
	"tickbook/ledger"
)

// ThrottledClient wraps an order book with basic rate limiting on behalf of
// one account.
type ThrottledClient struct {
	book     *engine.OrderBook
	account  ledger.AccountID
	step     decimal.Decimal
	refPrice decimal.Decimal
	throttle <-chan time.Time
}

// NewThrottledClient builds a client trading as account. throttle may be nil
// to submit at full speed.
func NewThrottledClient(book *engine.OrderBook, account ledger.AccountID, step, refPrice decimal.Decimal, throttle <-chan time.Time) *ThrottledClient {
	return &ThrottledClient{
		book:     book,
		account:  account,
		step:     step,
		refPrice: refPrice,
		throttle: throttle,
	}
}

func (c *ThrottledClient) waitThrottle(ctx context.Context) error {
	if c.throttle == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.throttle:
		return nil
	}
}

func (c *ThrottledClient) SubmitLimit(ctx context.Context, side engine.Side, price, quantity decimal.Decimal) (engine.SubmitResult, error) {
	if err := c.waitThrottle(ctx); err != nil {
		return engine.SubmitResult{}, err
	}
	return c.book.SubmitLimitOrder(c.account, side, price, quantity)
}

func (c *ThrottledClient) SubmitMarket(ctx context.Context, side engine.Side, quantity decimal.Decimal) (engine.SubmitResult, error) {
	if err := c.waitThrottle(ctx); err != nil {
		return engine.SubmitResult{}, err
	}
	return c.book.SubmitMarketOrder(c.account, side, quantity)
}

func (c *ThrottledClient) Cancel(ctx context.Context, orderID uint64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return c.book.CancelOrder(orderID)
}

func (c *ThrottledClient) Snapshot(ctx context.Context) (engine.BookView, error) {
	select {
	case <-ctx.Done():
		return engine.BookView{}, ctx.Err()
	default:
	}
	return c.book.Snapshot(), nil
}

func (c *ThrottledClient) Account() ledger.AccountID {
	return c.account
}

func (c *ThrottledClient) PriceStep() decimal.Decimal {
	return c.step
}

func (c *ThrottledClient) ReferencePrice() decimal.Decimal {
	return c.refPrice
}
