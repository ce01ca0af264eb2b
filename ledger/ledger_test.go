package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPair = Pair{Base: "OSMO", Quote: "USD"}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDepositAndBalance(t *testing.T) {
	l := New()
	acct := l.CreateAccount("alice")

	require.NoError(t, l.Deposit(acct, "USD", d("500")))
	require.NoError(t, l.Deposit(acct, "USD", d("250")))

	bal := l.Balance(acct, "USD")
	assert.True(t, bal.Available.Equal(d("750")))
	assert.True(t, bal.Reserved.IsZero())

	// Untouched assets and unknown accounts read as zero.
	assert.True(t, l.Balance(acct, "OSMO").Available.IsZero())
	assert.True(t, l.Balance("nope", "USD").Available.IsZero())
}

func TestDepositUnknownAccount(t *testing.T) {
	l := New()
	err := l.Deposit("nope", "USD", d("1"))
	require.ErrorIs(t, err, ErrNoSuchAccount)
}

func TestReserveMovesAvailableToReserved(t *testing.T) {
	l := New()
	acct := l.CreateAccount("alice")
	require.NoError(t, l.Deposit(acct, "USD", d("1000")))

	require.NoError(t, l.Reserve(acct, "USD", d("400")))

	bal := l.Balance(acct, "USD")
	assert.True(t, bal.Available.Equal(d("600")))
	assert.True(t, bal.Reserved.Equal(d("400")))
}

func TestReserveInsufficientBalance(t *testing.T) {
	l := New()
	acct := l.CreateAccount("alice")
	require.NoError(t, l.Deposit(acct, "USD", d("100")))

	err := l.Reserve(acct, "USD", d("101"))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// No partial effect.
	bal := l.Balance(acct, "USD")
	assert.True(t, bal.Available.Equal(d("100")))
	assert.True(t, bal.Reserved.IsZero())
}

func TestReleaseReturnsReservedFunds(t *testing.T) {
	l := New()
	acct := l.CreateAccount("alice")
	require.NoError(t, l.Deposit(acct, "USD", d("1000")))
	require.NoError(t, l.Reserve(acct, "USD", d("400")))

	l.Release(acct, "USD", d("150"))

	bal := l.Balance(acct, "USD")
	assert.True(t, bal.Available.Equal(d("750")))
	assert.True(t, bal.Reserved.Equal(d("250")))
}

func TestReleaseBeyondReservedPanics(t *testing.T) {
	l := New()
	acct := l.CreateAccount("alice")
	require.NoError(t, l.Deposit(acct, "USD", d("100")))
	require.NoError(t, l.Reserve(acct, "USD", d("50")))

	require.Panics(t, func() { l.Release(acct, "USD", d("51")) })
}

func TestSettleFill(t *testing.T) {
	l := New()
	buyer := l.CreateAccount("buyer")
	seller := l.CreateAccount("seller")
	require.NoError(t, l.Deposit(buyer, "USD", d("1000")))
	require.NoError(t, l.Deposit(seller, "OSMO", d("50")))

	require.NoError(t, l.Reserve(buyer, "USD", d("300")))
	require.NoError(t, l.Reserve(seller, "OSMO", d("3")))

	l.SettleFill(buyer, seller, testPair, d("100"), d("3"))

	assert.True(t, l.Balance(buyer, "USD").Available.Equal(d("700")))
	assert.True(t, l.Balance(buyer, "USD").Reserved.IsZero())
	assert.True(t, l.Balance(buyer, "OSMO").Available.Equal(d("3")))

	assert.True(t, l.Balance(seller, "OSMO").Available.Equal(d("47")))
	assert.True(t, l.Balance(seller, "OSMO").Reserved.IsZero())
	assert.True(t, l.Balance(seller, "USD").Available.Equal(d("300")))

	// Per-asset totals across both parties are unchanged by settlement.
	usd := l.Balance(buyer, "USD").Available.Add(l.Balance(buyer, "USD").Reserved).
		Add(l.Balance(seller, "USD").Available).Add(l.Balance(seller, "USD").Reserved)
	assert.True(t, usd.Equal(d("1000")))
	osmo := l.Balance(buyer, "OSMO").Available.Add(l.Balance(buyer, "OSMO").Reserved).
		Add(l.Balance(seller, "OSMO").Available).Add(l.Balance(seller, "OSMO").Reserved)
	assert.True(t, osmo.Equal(d("50")))
}

func TestSettleFillSelfTradeIsWash(t *testing.T) {
	l := New()
	acct := l.CreateAccount("self")
	require.NoError(t, l.Deposit(acct, "USD", d("1000")))
	require.NoError(t, l.Deposit(acct, "OSMO", d("10")))
	require.NoError(t, l.Reserve(acct, "USD", d("500")))
	require.NoError(t, l.Reserve(acct, "OSMO", d("5")))

	l.SettleFill(acct, acct, testPair, d("100"), d("5"))

	assert.True(t, l.Balance(acct, "USD").Available.Equal(d("1000")))
	assert.True(t, l.Balance(acct, "USD").Reserved.IsZero())
	assert.True(t, l.Balance(acct, "OSMO").Available.Equal(d("10")))
	assert.True(t, l.Balance(acct, "OSMO").Reserved.IsZero())
}

func TestSettleFillUnderReservedPanics(t *testing.T) {
	l := New()
	buyer := l.CreateAccount("buyer")
	seller := l.CreateAccount("seller")
	require.NoError(t, l.Deposit(buyer, "USD", d("100")))
	require.NoError(t, l.Deposit(seller, "OSMO", d("10")))
	require.NoError(t, l.Reserve(buyer, "USD", d("100")))

	// Seller never reserved the base quantity: caller bookkeeping bug.
	require.Panics(t, func() {
		l.SettleFill(buyer, seller, testPair, d("10"), d("5"))
	})
}

func TestOrderHistoryLifecycle(t *testing.T) {
	l := New()
	l.now = func() time.Time { return time.Unix(100, 0) }
	acct := l.CreateAccount("alice")

	require.NoError(t, l.TrackOrder(acct, 7))
	require.NoError(t, l.TrackOrder(acct, 8))
	assert.ElementsMatch(t, []uint64{7, 8}, l.ActiveOrders(acct))

	l.RecordFill(acct, FillRecord{
		OrderID:        7,
		CounterOrderID: 9,
		Counterparty:   "bob",
		Price:          d("100"),
		Quantity:       d("2"),
		Bought:         true,
		Timestamp:      time.Unix(100, 0),
	})

	l.RecordHistory(acct, 7, "filled")

	assert.ElementsMatch(t, []uint64{8}, l.ActiveOrders(acct))

	fills := l.Fills(acct)
	require.Len(t, fills, 1)
	assert.Equal(t, uint64(7), fills[0].OrderID)

	closed := l.ClosedOrders(acct)
	require.Len(t, closed, 1)
	assert.Equal(t, uint64(7), closed[0].OrderID)
	assert.Equal(t, "filled", closed[0].Status)
	assert.Equal(t, time.Unix(100, 0), closed[0].ClosedAt)
}

func TestBalancesSnapshotIsACopy(t *testing.T) {
	l := New()
	acct := l.CreateAccount("alice")
	require.NoError(t, l.Deposit(acct, "USD", d("100")))

	snap := l.Balances(acct)
	snap["USD"] = Balance{Available: d("1"), Reserved: d("1")}

	assert.True(t, l.Balance(acct, "USD").Available.Equal(d("100")),
		"mutating the snapshot must not touch the ledger")
}

func TestAccountName(t *testing.T) {
	l := New()
	acct := l.CreateAccount("alice")
	assert.Equal(t, "alice", l.AccountName(acct))
	assert.Equal(t, "", l.AccountName("nope"))
}

func TestAtomicGroupsMutations(t *testing.T) {
	l := New()
	buyer := l.CreateAccount("buyer")
	seller := l.CreateAccount("seller")
	require.NoError(t, l.Deposit(buyer, testPair.Quote, d("1000")))
	require.NoError(t, l.Deposit(seller, testPair.Base, d("5")))

	err := l.Atomic(func(tx *Txn) error {
		require.True(t, tx.HasAccount(buyer))
		require.False(t, tx.HasAccount("ghost"))

		if err := tx.Reserve(buyer, testPair.Quote, d("300")); err != nil {
			return err
		}
		if err := tx.Reserve(seller, testPair.Base, d("3")); err != nil {
			return err
		}
		tx.SettleFill(buyer, seller, testPair, d("100"), d("3"))
		return nil
	})
	require.NoError(t, err)

	assert.True(t, l.Balance(buyer, testPair.Base).Available.Equal(d("3")))
	assert.True(t, l.Balance(buyer, testPair.Quote).Available.Equal(d("700")))
	assert.True(t, l.Balance(seller, testPair.Quote).Available.Equal(d("300")))
	assert.True(t, l.Balance(seller, testPair.Base).Available.Equal(d("2")))
}

func TestAtomicPropagatesError(t *testing.T) {
	l := New()
	acct := l.CreateAccount("alice")
	require.NoError(t, l.Deposit(acct, "USD", d("10")))

	err := l.Atomic(func(tx *Txn) error {
		return tx.Reserve(acct, "USD", d("50"))
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.True(t, l.Balance(acct, "USD").Available.Equal(d("10")))
}
