package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"tickbook/ledger"
)

// Side represents the direction of an order.
type Side int

const (
	// Buy indicates a bid order.
	Buy Side = iota
	// Sell indicates an ask order.
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderKind represents the execution style for an order.
type OrderKind int

const (
	// Limit orders rest on the book until filled or cancelled.
	Limit OrderKind = iota
	// Market orders consume available liquidity immediately and never rest.
	Market
)

func (k OrderKind) String() string {
	if k == Limit {
		return "limit"
	}
	return "market"
}

// OrderStatus tracks an order through its lifecycle.
type OrderStatus int

const (
	Open OrderStatus = iota
	PartiallyFilled
	Filled
	Cancelled
)

func (s OrderStatus) String() string {
	switch s {
	case Open:
		return "open"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == Filled || s == Cancelled
}

// Fill captures one executed trade between an incoming and a resting order.
// The price is always the resting order's price.
type Fill struct {
	BuyOrderID  uint64
	SellOrderID uint64
	Buyer       ledger.AccountID
	Seller      ledger.AccountID
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Timestamp   time.Time
}

// Quote is one side's best price with the aggregate quantity resting there.
type Quote struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Level is one price level in a depth listing.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// BookView summarizes top-of-book state.
type BookView struct {
	BestBid *Quote
	BestAsk *Quote
}

// DepthView lists price levels best-first on both sides.
type DepthView struct {
	Bids []Level
	Asks []Level
}

// Config controls book parameters.
type Config struct {
	// Pair is the traded asset pair; quantities are in Pair.Base, prices in
	// Pair.Quote per unit of base.
	Pair ledger.Pair
	// RequestBuffer sizes the submission queue feeding the worker loop.
	RequestBuffer int
	// TradeBuffer sizes the Trades and BookUpdates streams.
	TradeBuffer int
}

func (c Config) withDefaults() Config {
	if c.Pair.Base == "" {
		c.Pair.Base = "OSMO"
	}
	if c.Pair.Quote == "" {
		c.Pair.Quote = "USD"
	}
	if c.RequestBuffer <= 0 {
		c.RequestBuffer = 64
	}
	if c.TradeBuffer <= 0 {
		c.TradeBuffer = 64
	}
	return c
}
