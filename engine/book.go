package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tickbook/ledger"
)

type requestType int

const (
	requestSubmit requestType = iota
	requestCancel
	requestQuery
	requestStop
)

type submitParams struct {
	account  ledger.AccountID
	side     Side
	kind     OrderKind
	price    decimal.Decimal
	quantity decimal.Decimal
}

// SubmitResult is the outcome of an accepted submission: the order in its
// final post-matching state and the fills it produced, oldest first.
type SubmitResult struct {
	Order Order
	Fills []Fill
}

type bookRequest struct {
	typ      requestType
	submit   submitParams
	cancelID uint64
	query    func()
	result   chan SubmitResult
	resp     chan error
}

// OrderBook maintains bids and asks for a single asset pair under strict
// price-time priority, and keeps the attached ledger consistent with every
// match. All mutations and queries are processed by one worker goroutine,
// and the ledger effects of each request commit as one transaction, so no
// caller, including direct ledger readers, ever observes a half-applied
// trade.
type OrderBook struct {
	cfg    Config
	ledger *ledger.Ledger

	bids *bookSide
	asks *bookSide
	// orders is the arena of live orders keyed by ID; it doubles as the
	// cancellation index since each Order carries its side and price.
	orders map[uint64]*Order

	nextID uint64
	seq    uint64

	reqCh   chan bookRequest
	trades  chan Fill
	updates chan BookView
	now     func() time.Time
}

// NewOrderBook builds an order book over the given ledger and launches the
// worker loop.
func NewOrderBook(cfg Config, l *ledger.Ledger) *OrderBook {
	cfg = cfg.withDefaults()
	b := &OrderBook{
		cfg:     cfg,
		ledger:  l,
		bids:    newBookSide(Buy),
		asks:    newBookSide(Sell),
		orders:  make(map[uint64]*Order),
		reqCh:   make(chan bookRequest, cfg.RequestBuffer),
		trades:  make(chan Fill, cfg.TradeBuffer),
		updates: make(chan BookView, cfg.TradeBuffer),
		now:     time.Now,
	}
	go b.run()
	return b
}

// SubmitLimitOrder places a limit order: funds are reserved up front, the
// order matches against the opposite side, and any unmatched remainder rests
// at its limit price.
func (b *OrderBook) SubmitLimitOrder(account ledger.AccountID, side Side, price, quantity decimal.Decimal) (SubmitResult, error) {
	return b.submit(submitParams{account: account, side: side, kind: Limit, price: price, quantity: quantity})
}

// SubmitMarketOrder places a market order: it matches immediately against
// best-through-worst opposite levels and any unmatched remainder is
// discarded, never rested.
func (b *OrderBook) SubmitMarketOrder(account ledger.AccountID, side Side, quantity decimal.Decimal) (SubmitResult, error) {
	return b.submit(submitParams{account: account, side: side, kind: Market, quantity: quantity})
}

func (b *OrderBook) submit(p submitParams) (SubmitResult, error) {
	req := bookRequest{
		typ:    requestSubmit,
		submit: p,
		result: make(chan SubmitResult, 1),
		resp:   make(chan error, 1),
	}
	b.reqCh <- req
	return <-req.result, <-req.resp
}

// CancelOrder removes a resting order from the book and releases its
// remaining reservation.
func (b *OrderBook) CancelOrder(orderID uint64) error {
	req := bookRequest{typ: requestCancel, cancelID: orderID, resp: make(chan error, 1)}
	b.reqCh <- req
	return <-req.resp
}

// Trades exposes the stream of executed fills.
func (b *OrderBook) Trades() <-chan Fill {
	return b.trades
}

// BookUpdates exposes the stream of top-of-book updates.
func (b *OrderBook) BookUpdates() <-chan BookView {
	return b.updates
}

// Pair returns the traded asset pair.
func (b *OrderBook) Pair() ledger.Pair {
	return b.cfg.Pair
}

// Ledger returns the attached account ledger.
func (b *OrderBook) Ledger() *ledger.Ledger {
	return b.ledger
}

// Stop gracefully terminates the worker loop.
func (b *OrderBook) Stop() {
	b.reqCh <- bookRequest{typ: requestStop}
}

func (b *OrderBook) run() {
	for req := range b.reqCh {
		switch req.typ {
		case requestSubmit:
			res, err := b.processSubmit(req.submit)
			req.result <- res
			req.resp <- err
			if err == nil {
				b.publishView()
			}
		case requestCancel:
			err := b.processCancel(req.cancelID)
			req.resp <- err
			if err == nil {
				b.publishView()
			}
		case requestQuery:
			req.query()
			req.resp <- nil
		case requestStop:
			close(b.trades)
			close(b.updates)
			close(b.reqCh)
			return
		}
	}
}

func (b *OrderBook) processSubmit(p submitParams) (SubmitResult, error) {
	if !p.quantity.IsPositive() {
		return SubmitResult{}, fmt.Errorf("quantity %s: %w", p.quantity, ErrInvalidOrder)
	}

	switch p.kind {
	case Limit:
		return b.processLimit(p)
	case Market:
		return b.processMarket(p)
	}
	return SubmitResult{}, fmt.Errorf("unknown order kind %d: %w", p.kind, ErrInvalidOrder)
}

// Each submission runs as one ledger transaction: every reservation,
// settlement, and history write it causes commits under a single lock
// section, so a concurrent balance or history read never observes a
// half-applied trade.
func (b *OrderBook) processLimit(p submitParams) (SubmitResult, error) {
	if !p.price.IsPositive() {
		return SubmitResult{}, fmt.Errorf("limit price %s: %w", p.price, ErrInvalidOrder)
	}

	var (
		o     *Order
		fills []Fill
	)
	err := b.ledger.Atomic(func(tx *ledger.Txn) error {
		// Reserve the full notional (buy) or quantity (sell) before any book
		// state changes; a failed reservation leaves nothing to undo.
		var err error
		if p.side == Buy {
			err = tx.Reserve(p.account, b.cfg.Pair.Quote, p.price.Mul(p.quantity))
		} else {
			err = tx.Reserve(p.account, b.cfg.Pair.Base, p.quantity)
		}
		if err != nil {
			return err
		}

		o = b.newOrder(tx, p)
		fills = b.match(tx, o)

		if o.Remaining.IsPositive() {
			b.sideFor(o.Side).getOrCreate(o.Price).Add(o)
		} else {
			delete(b.orders, o.ID)
			tx.RecordHistory(o.Account, o.ID, o.Status.String())
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	b.publishFills(fills)
	return SubmitResult{Order: *o, Fills: fills}, nil
}

func (b *OrderBook) processMarket(p submitParams) (SubmitResult, error) {
	if b.sideFor(p.side.Opposite()).empty() {
		return SubmitResult{}, fmt.Errorf("market %s against empty book: %w", p.side, ErrNoLiquidity)
	}

	var (
		o     *Order
		fills []Fill
	)
	err := b.ledger.Atomic(func(tx *ledger.Txn) error {
		// Market orders take no up-front reservation, so the account has to
		// be checked explicitly before any order state exists.
		if !tx.HasAccount(p.account) {
			return fmt.Errorf("market %s: %w: %s", p.side, ledger.ErrNoSuchAccount, p.account)
		}

		o = b.newOrder(tx, p)
		fills = b.match(tx, o)

		// Market remainders never rest: whatever liquidity (or buying power)
		// did not cover is discarded. Reservations were taken per fill, so
		// there is nothing left to release.
		if o.Remaining.IsPositive() {
			if err := o.Cancel(); err != nil {
				panic(fmt.Sprintf("book: discarding market order %d: %v", o.ID, err))
			}
		}
		delete(b.orders, o.ID)
		tx.RecordHistory(o.Account, o.ID, o.Status.String())
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	b.publishFills(fills)
	return SubmitResult{Order: *o, Fills: fills}, nil
}

// publishFills streams fills after the transaction has committed; a blocking
// send here must not hold the ledger lock or a stalled consumer reading
// balances would deadlock the book.
func (b *OrderBook) publishFills(fills []Fill) {
	for _, fill := range fills {
		b.trades <- fill
	}
}

func (b *OrderBook) newOrder(tx *ledger.Txn, p submitParams) *Order {
	b.nextID++
	b.seq++
	o := &Order{
		ID:        b.nextID,
		Account:   p.account,
		Side:      p.side,
		Kind:      p.kind,
		Price:     p.price,
		Quantity:  p.quantity,
		Remaining: p.quantity,
		Sequence:  b.seq,
		Status:    Open,
		CreatedAt: b.now(),
	}
	b.orders[o.ID] = o
	// Both submit paths verified the account before reaching here, limit via
	// its reservation and market via HasAccount.
	if err := tx.TrackOrder(o.Account, o.ID); err != nil {
		panic(fmt.Sprintf("book: track order %d: %v", o.ID, err))
	}
	return o
}

// match walks the opposite side best-through-worst, trading FIFO within each
// level, until the incoming order is exhausted, liquidity runs out, or (for
// limit orders) the best opposite price violates the incoming limit. The
// trade price is always the resting level's price. Fills are returned, not
// streamed; the caller publishes them once the transaction commits.
func (b *OrderBook) match(tx *ledger.Txn, incoming *Order) []Fill {
	opposite := b.sideFor(incoming.Side.Opposite())

	var fills []Fill
	for incoming.Remaining.IsPositive() {
		tick := opposite.best()
		if tick == nil {
			break
		}
		if incoming.Kind == Limit {
			if incoming.Side == Buy && tick.Price().GreaterThan(incoming.Price) {
				break
			}
			if incoming.Side == Sell && tick.Price().LessThan(incoming.Price) {
				break
			}
		}

		frontID, ok := tick.Front()
		if !ok {
			panic(fmt.Sprintf("book: empty tick %s resting on %s side", tick.Price(), opposite.side))
		}
		resting, ok := b.orders[frontID]
		if !ok {
			panic(fmt.Sprintf("book: resting order %d missing from arena", frontID))
		}

		qty := decimal.Min(incoming.Remaining, resting.Remaining)
		price := tick.Price()

		// Market orders have no fixed price to reserve against up front, so
		// each fill's cost is reserved as the walk reaches it. Running out
		// of buying power ends the match the same way as running out of
		// liquidity.
		if incoming.Kind == Market {
			var err error
			if incoming.Side == Buy {
				err = tx.Reserve(incoming.Account, b.cfg.Pair.Quote, price.Mul(qty))
			} else {
				err = tx.Reserve(incoming.Account, b.cfg.Pair.Base, qty)
			}
			if err != nil {
				break
			}
		}

		buyer, seller := incoming, resting
		if incoming.Side == Sell {
			buyer, seller = resting, incoming
		}

		tx.SettleFill(buyer.Account, seller.Account, b.cfg.Pair, price, qty)

		// A limit buy reserved at its own limit; when the resting price is
		// better, the improvement goes back to available immediately.
		if incoming.Kind == Limit && incoming.Side == Buy && incoming.Price.GreaterThan(price) {
			tx.Release(incoming.Account, b.cfg.Pair.Quote, incoming.Price.Sub(price).Mul(qty))
		}

		if err := incoming.Fill(qty); err != nil {
			panic(fmt.Sprintf("book: fill incoming order %d: %v", incoming.ID, err))
		}
		if err := tick.ReduceFront(resting, qty); err != nil {
			panic(fmt.Sprintf("book: fill resting order %d: %v", resting.ID, err))
		}

		ts := b.now()
		fill := Fill{
			BuyOrderID:  buyer.ID,
			SellOrderID: seller.ID,
			Buyer:       buyer.Account,
			Seller:      seller.Account,
			Price:       price,
			Quantity:    qty,
			Timestamp:   ts,
		}
		fills = append(fills, fill)

		tx.RecordFill(buyer.Account, ledger.FillRecord{
			OrderID:        buyer.ID,
			CounterOrderID: seller.ID,
			Counterparty:   seller.Account,
			Price:          price,
			Quantity:       qty,
			Bought:         true,
			Timestamp:      ts,
		})
		tx.RecordFill(seller.Account, ledger.FillRecord{
			OrderID:        seller.ID,
			CounterOrderID: buyer.ID,
			Counterparty:   buyer.Account,
			Price:          price,
			Quantity:       qty,
			Bought:         false,
			Timestamp:      ts,
		})

		if resting.Status == Filled {
			delete(b.orders, resting.ID)
			tx.RecordHistory(resting.Account, resting.ID, resting.Status.String())
		}
		if tick.Empty() {
			opposite.dropLevel(price)
		}
	}
	return fills
}

func (b *OrderBook) processCancel(orderID uint64) error {
	o, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("cancel order %d: %w", orderID, ErrOrderNotFound)
	}

	side := b.sideFor(o.Side)
	tick := side.find(o.Price)
	if tick == nil || !tick.Remove(o.ID, o.Remaining) {
		panic(fmt.Sprintf("book: order %d in arena but not on %s tick %s", o.ID, o.Side, o.Price))
	}
	if tick.Empty() {
		side.dropLevel(o.Price)
	}

	if err := o.Cancel(); err != nil {
		return err
	}
	delete(b.orders, o.ID)

	return b.ledger.Atomic(func(tx *ledger.Txn) error {
		if o.Side == Buy {
			tx.Release(o.Account, b.cfg.Pair.Quote, o.Price.Mul(o.Remaining))
		} else {
			tx.Release(o.Account, b.cfg.Pair.Base, o.Remaining)
		}
		tx.RecordHistory(o.Account, o.ID, o.Status.String())
		return nil
	})
}

func (b *OrderBook) sideFor(side Side) *bookSide {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) snapshotView() BookView {
	view := BookView{}
	if best := b.bids.best(); best != nil {
		view.BestBid = &Quote{Price: best.Price(), Quantity: best.AggregateQty()}
	}
	if best := b.asks.best(); best != nil {
		view.BestAsk = &Quote{Price: best.Price(), Quantity: best.AggregateQty()}
	}
	return view
}

func (b *OrderBook) publishView() {
	view := b.snapshotView()
	select {
	case b.updates <- view:
	default:
	}
}
