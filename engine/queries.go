package engine

import (
	"sort"

	"tickbook/ledger"
)

// Read-only query surface. Every query runs inside the worker loop so it
// only ever observes fully committed state.

func (b *OrderBook) runQuery(fn func()) {
	req := bookRequest{typ: requestQuery, query: fn, resp: make(chan error, 1)}
	b.reqCh <- req
	<-req.resp
}

// Snapshot returns the best bid and ask with their aggregate quantities.
func (b *OrderBook) Snapshot() BookView {
	var view BookView
	b.runQuery(func() {
		view = b.snapshotView()
	})
	return view
}

// BestBid returns the highest bid level, if any.
func (b *OrderBook) BestBid() (Quote, bool) {
	view := b.Snapshot()
	if view.BestBid == nil {
		return Quote{}, false
	}
	return *view.BestBid, true
}

// BestAsk returns the lowest ask level, if any.
func (b *OrderBook) BestAsk() (Quote, bool) {
	view := b.Snapshot()
	if view.BestAsk == nil {
		return Quote{}, false
	}
	return *view.BestAsk, true
}

// Depth lists up to n price levels per side, best-first. n <= 0 lists every
// level.
func (b *OrderBook) Depth(n int) DepthView {
	var view DepthView
	b.runQuery(func() {
		view.Bids = b.bids.levels(n)
		view.Asks = b.asks.levels(n)
	})
	return view
}

// Lookup returns a copy of a live (resting or in-flight) order.
func (b *OrderBook) Lookup(orderID uint64) (Order, bool) {
	var (
		out   Order
		found bool
	)
	b.runQuery(func() {
		if o, ok := b.orders[orderID]; ok {
			out = *o
			found = true
		}
	})
	return out, found
}

// AccountOrders returns copies of the account's resting orders, oldest
// first.
func (b *OrderBook) AccountOrders(account ledger.AccountID) []Order {
	var out []Order
	b.runQuery(func() {
		for _, o := range b.orders {
			if o.Account == account {
				out = append(out, *o)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}
