package main

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbook/engine"
	"tickbook/ledger"
)

func newTestSession(t *testing.T) *session {
	t.Helper()
	l := ledger.New()
	b := engine.NewOrderBook(engine.Config{}, l)
	t.Cleanup(b.Stop)

	user := l.CreateAccount("user")
	require.NoError(t, l.Deposit(user, "OSMO", decimal.NewFromInt(1000)))
	require.NoError(t, l.Deposit(user, "USD", decimal.NewFromInt(10000)))

	return &session{
		book:    b,
		ledger:  l,
		account: user,
		pair:    b.Pair(),
		out:     bufio.NewWriter(&bytes.Buffer{}),
	}
}

func TestSubmitCommandGrammar(t *testing.T) {
	s := newTestSession(t)

	require.NoError(t, s.dispatch("buy osmo limit 10 5"))

	orders := s.book.AccountOrders(s.account)
	require.Len(t, orders, 1)
	assert.Equal(t, engine.Buy, orders[0].Side)
	assert.True(t, orders[0].Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, orders[0].Price.Equal(decimal.NewFromInt(5)))

	require.NoError(t, s.dispatch("sell osmo limit 7 9"))
	orders = s.book.AccountOrders(s.account)
	require.Len(t, orders, 2)
}

func TestSubmitMarketCommandGrammar(t *testing.T) {
	s := newTestSession(t)

	seller := s.ledger.CreateAccount("counterparty")
	require.NoError(t, s.ledger.Deposit(seller, "OSMO", decimal.NewFromInt(10)))
	_, err := s.book.SubmitLimitOrder(seller, engine.Sell, decimal.NewFromInt(100), decimal.NewFromInt(5))
	require.NoError(t, err)

	require.NoError(t, s.dispatch("buy osmo market 2"))

	bal := s.ledger.Balance(s.account, "OSMO")
	assert.True(t, bal.Available.Equal(decimal.NewFromInt(1002)))
}

func TestSubmitCommandRejectsBadInput(t *testing.T) {
	s := newTestSession(t)

	// Quantity before asset is the wrong field order.
	require.Error(t, s.dispatch("buy 10 osmo limit 5"))
	require.Error(t, s.dispatch("buy osmo limit 10"))
	require.Error(t, s.dispatch("buy atom limit 10 5"))
	require.Error(t, s.dispatch("buy osmo stop 10 5"))

	assert.Empty(t, s.book.AccountOrders(s.account))
}
