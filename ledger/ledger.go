package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance is returned when a reservation cannot be covered
	// by the account's available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNoSuchAccount is returned when an operation targets an unknown account.
	ErrNoSuchAccount = errors.New("no such account")
)

// Asset identifies a single currency or token, e.g. "OSMO" or "USD".
type Asset string

// Pair is the traded asset pair. Quantities are denominated in Base,
// prices and notionals in Quote.
type Pair struct {
	Base  Asset
	Quote Asset
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}

// AccountID is an opaque ledger-issued account identifier.
type AccountID string

// Balance tracks one asset inside one account. Reserved funds are earmarked
// for resting orders and cannot be committed to another order.
type Balance struct {
	Available decimal.Decimal
	Reserved  decimal.Decimal
}

// FillRecord is one side's view of an executed trade, kept in the account's
// append-only history.
type FillRecord struct {
	OrderID        uint64
	CounterOrderID uint64
	Counterparty   AccountID
	Price          decimal.Decimal
	Quantity       decimal.Decimal
	Bought         bool
	Timestamp      time.Time
}

// ClosedOrder records an order that reached a terminal status.
type ClosedOrder struct {
	OrderID  uint64
	Status   string
	ClosedAt time.Time
}

type account struct {
	id       AccountID
	name     string
	balances map[Asset]*Balance
	active   map[uint64]struct{}
	fills    []FillRecord
	closed   []ClosedOrder
}

func (a *account) balance(asset Asset) *Balance {
	b, ok := a.balances[asset]
	if !ok {
		b = &Balance{}
		a.balances[asset] = b
	}
	return b
}

// Ledger holds every participant's balances and order history. All mutations
// happen under one lock; multi-step units grouped with Atomic are never
// observable half-applied.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[AccountID]*account
	now      func() time.Time
}

func New() *Ledger {
	return &Ledger{
		accounts: make(map[AccountID]*account),
		now:      time.Now,
	}
}

// CreateAccount registers a new account and returns its ledger-issued ID.
// The name is for display only and need not be unique.
func (l *Ledger) CreateAccount(name string) AccountID {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := AccountID(uuid.NewString())
	l.accounts[id] = &account{
		id:       id,
		name:     name,
		balances: make(map[Asset]*Balance),
		active:   make(map[uint64]struct{}),
	}
	return id
}

// Atomic runs fn while holding the ledger's write lock. A multi-step unit of
// work, such as settling every fill of one submission, commits as a whole:
// no concurrent reader or writer can interleave between its steps. A non-nil
// error from fn stops the unit; steps already applied stay applied, so
// callers order their fallible steps first.
func (l *Ledger) Atomic(fn func(tx *Txn) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(&Txn{l: l})
}

// Txn exposes the ledger's mutating operations to a caller inside Atomic.
// It must not escape the callback.
type Txn struct {
	l *Ledger
}

// HasAccount reports whether the account exists.
func (tx *Txn) HasAccount(id AccountID) bool {
	_, ok := tx.l.accounts[id]
	return ok
}

func (tx *Txn) Reserve(id AccountID, asset Asset, amount decimal.Decimal) error {
	return tx.l.reserve(id, asset, amount)
}

func (tx *Txn) Release(id AccountID, asset Asset, amount decimal.Decimal) {
	tx.l.release(id, asset, amount)
}

func (tx *Txn) SettleFill(buyer, seller AccountID, pair Pair, price, quantity decimal.Decimal) {
	tx.l.settleFill(buyer, seller, pair, price, quantity)
}

func (tx *Txn) TrackOrder(id AccountID, orderID uint64) error {
	return tx.l.trackOrder(id, orderID)
}

func (tx *Txn) RecordFill(id AccountID, rec FillRecord) {
	tx.l.recordFill(id, rec)
}

func (tx *Txn) RecordHistory(id AccountID, orderID uint64, status string) {
	tx.l.recordHistory(id, orderID, status)
}

// Deposit credits amount of asset to the account's available balance.
func (l *Ledger) Deposit(id AccountID, asset Asset, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[id]
	if !ok {
		return fmt.Errorf("deposit: %w: %s", ErrNoSuchAccount, id)
	}
	b := acct.balance(asset)
	b.Available = b.Available.Add(amount)
	return nil
}

// Reserve moves amount of asset from available to reserved. It fails with
// ErrInsufficientBalance and no partial effect when available funds do not
// cover the full amount.
func (l *Ledger) Reserve(id AccountID, asset Asset, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserve(id, asset, amount)
}

func (l *Ledger) reserve(id AccountID, asset Asset, amount decimal.Decimal) error {
	acct, ok := l.accounts[id]
	if !ok {
		return fmt.Errorf("reserve: %w: %s", ErrNoSuchAccount, id)
	}
	b := acct.balance(asset)
	if b.Available.LessThan(amount) {
		return fmt.Errorf("reserve %s %s for %s: %w", amount, asset, id, ErrInsufficientBalance)
	}
	b.Available = b.Available.Sub(amount)
	b.Reserved = b.Reserved.Add(amount)
	return nil
}

// Release moves amount of asset from reserved back to available. Releasing
// more than is reserved means the caller's bookkeeping is corrupt, so it
// panics rather than continue with bad state.
func (l *Ledger) Release(id AccountID, asset Asset, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release(id, asset, amount)
}

func (l *Ledger) release(id AccountID, asset Asset, amount decimal.Decimal) {
	acct, ok := l.accounts[id]
	if !ok {
		panic(fmt.Sprintf("ledger: release against unknown account %s", id))
	}
	b := acct.balance(asset)
	if b.Reserved.LessThan(amount) {
		panic(fmt.Sprintf("ledger: release %s %s exceeds reserved %s for %s",
			amount, asset, b.Reserved, id))
	}
	b.Reserved = b.Reserved.Sub(amount)
	b.Available = b.Available.Add(amount)
}

// SettleFill applies one trade to both parties atomically: the buyer's
// reserved quote pays the seller, the seller's reserved base is delivered to
// the buyer. Reserved funds must already cover both legs; a shortfall here is
// a matching bug and panics.
func (l *Ledger) SettleFill(buyer, seller AccountID, pair Pair, price, quantity decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settleFill(buyer, seller, pair, price, quantity)
}

func (l *Ledger) settleFill(buyer, seller AccountID, pair Pair, price, quantity decimal.Decimal) {
	buyerAcct, ok := l.accounts[buyer]
	if !ok {
		panic(fmt.Sprintf("ledger: settle against unknown buyer %s", buyer))
	}
	sellerAcct, ok := l.accounts[seller]
	if !ok {
		panic(fmt.Sprintf("ledger: settle against unknown seller %s", seller))
	}

	notional := price.Mul(quantity)

	buyerQuote := buyerAcct.balance(pair.Quote)
	if buyerQuote.Reserved.LessThan(notional) {
		panic(fmt.Sprintf("ledger: buyer %s reserved %s %s short of notional %s",
			buyer, buyerQuote.Reserved, pair.Quote, notional))
	}
	sellerBase := sellerAcct.balance(pair.Base)
	if sellerBase.Reserved.LessThan(quantity) {
		panic(fmt.Sprintf("ledger: seller %s reserved %s %s short of quantity %s",
			seller, sellerBase.Reserved, pair.Base, quantity))
	}

	buyerQuote.Reserved = buyerQuote.Reserved.Sub(notional)
	sellerBase.Reserved = sellerBase.Reserved.Sub(quantity)

	buyerAcct.balance(pair.Base).Available = buyerAcct.balance(pair.Base).Available.Add(quantity)
	sellerAcct.balance(pair.Quote).Available = sellerAcct.balance(pair.Quote).Available.Add(notional)
}

// TrackOrder adds an order to the account's active set.
func (l *Ledger) TrackOrder(id AccountID, orderID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trackOrder(id, orderID)
}

func (l *Ledger) trackOrder(id AccountID, orderID uint64) error {
	acct, ok := l.accounts[id]
	if !ok {
		return fmt.Errorf("track order: %w: %s", ErrNoSuchAccount, id)
	}
	acct.active[orderID] = struct{}{}
	return nil
}

// RecordFill appends one side's view of a trade to the account's history.
func (l *Ledger) RecordFill(id AccountID, rec FillRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordFill(id, rec)
}

func (l *Ledger) recordFill(id AccountID, rec FillRecord) {
	acct, ok := l.accounts[id]
	if !ok {
		panic(fmt.Sprintf("ledger: fill recorded against unknown account %s", id))
	}
	acct.fills = append(acct.fills, rec)
}

// RecordHistory moves an order from the account's active set to its closed
// history once it reaches a terminal status.
func (l *Ledger) RecordHistory(id AccountID, orderID uint64, status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordHistory(id, orderID, status)
}

func (l *Ledger) recordHistory(id AccountID, orderID uint64, status string) {
	acct, ok := l.accounts[id]
	if !ok {
		panic(fmt.Sprintf("ledger: history recorded against unknown account %s", id))
	}
	delete(acct.active, orderID)
	acct.closed = append(acct.closed, ClosedOrder{
		OrderID:  orderID,
		Status:   status,
		ClosedAt: l.now(),
	})
}

// ---- read-only queries ----

// Balance returns the account's balance for one asset. Unknown accounts and
// untouched assets read as zero.
func (l *Ledger) Balance(id AccountID, asset Asset) Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[id]
	if !ok {
		return Balance{Available: decimal.Zero, Reserved: decimal.Zero}
	}
	b, ok := acct.balances[asset]
	if !ok {
		return Balance{Available: decimal.Zero, Reserved: decimal.Zero}
	}
	return *b
}

// Balances returns a copy of every asset balance held by the account.
func (l *Ledger) Balances(id AccountID) map[Asset]Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[Asset]Balance)
	acct, ok := l.accounts[id]
	if !ok {
		return out
	}
	for asset, b := range acct.balances {
		out[asset] = *b
	}
	return out
}

// ActiveOrders returns the IDs of the account's currently open orders.
func (l *Ledger) ActiveOrders(id AccountID) []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[id]
	if !ok {
		return nil
	}
	out := make([]uint64, 0, len(acct.active))
	for orderID := range acct.active {
		out = append(out, orderID)
	}
	return out
}

// Fills returns a copy of the account's trade history, oldest first.
func (l *Ledger) Fills(id AccountID) []FillRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[id]
	if !ok {
		return nil
	}
	out := make([]FillRecord, len(acct.fills))
	copy(out, acct.fills)
	return out
}

// ClosedOrders returns the account's terminal orders, oldest first.
func (l *Ledger) ClosedOrders(id AccountID) []ClosedOrder {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[id]
	if !ok {
		return nil
	}
	out := make([]ClosedOrder, len(acct.closed))
	copy(out, acct.closed)
	return out
}

// AccountName returns the display name given at creation.
func (l *Ledger) AccountName(id AccountID) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[id]
	if !ok {
		return ""
	}
	return acct.name
}
