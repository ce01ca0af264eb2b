package bots

import (
	"github.com/shopspring/decimal"

	"tickbook/engine"
)

// midPrice estimates a quoting anchor from the current top of book, falling
// back to the client's reference price while the book is still empty.
func midPrice(view engine.BookView, fallback decimal.Decimal) decimal.Decimal {
	switch {
	case view.BestBid != nil && view.BestAsk != nil:
		return view.BestBid.Price.Add(view.BestAsk.Price).Div(decimal.NewFromInt(2))
	case view.BestBid != nil:
		return view.BestBid.Price
	case view.BestAsk != nil:
		return view.BestAsk.Price
	default:
		return fallback
	}
}
