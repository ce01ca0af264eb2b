package bots

import (
	"context"

	"github.com/shopspring/decimal"

	"tickbook/engine"
	"tickbook/ledger"
)

// Bot represents a trading agent that can be run under a supervisor.
type Bot interface {
	Start(ctx context.Context, client EngineClient)
}

// EngineClient abstracts the minimal surface bots need from the matching
// engine. Each client trades on behalf of one funded ledger account.
type EngineClient interface {
	SubmitLimit(ctx context.Context, side engine.Side, price, quantity decimal.Decimal) (engine.SubmitResult, error)
	SubmitMarket(ctx context.Context, side engine.Side, quantity decimal.Decimal) (engine.SubmitResult, error)
	Cancel(ctx context.Context, orderID uint64) error
	Snapshot(ctx context.Context) (engine.BookView, error)
	Account() ledger.AccountID
	// PriceStep is the price increment bots quote in.
	PriceStep() decimal.Decimal
	// ReferencePrice anchors quoting when the book is still empty.
	ReferencePrice() decimal.Decimal
}
