package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestOrder(qty string) *Order {
	return &Order{
		ID:        1,
		Account:   "acct",
		Side:      Buy,
		Kind:      Limit,
		Price:     d("100"),
		Quantity:  d(qty),
		Remaining: d(qty),
		Status:    Open,
	}
}

func TestOrderFillPartial(t *testing.T) {
	o := newTestOrder("10")

	require.NoError(t, o.Fill(d("4")))
	assert.Equal(t, PartiallyFilled, o.Status)
	assert.True(t, o.Remaining.Equal(d("6")), "remaining %s", o.Remaining)
	assert.True(t, o.FilledQuantity().Equal(d("4")))
}

func TestOrderFillToCompletion(t *testing.T) {
	o := newTestOrder("10")

	require.NoError(t, o.Fill(d("10")))
	assert.Equal(t, Filled, o.Status)
	assert.True(t, o.Remaining.IsZero())
}

func TestOrderFillRejectsOutOfRange(t *testing.T) {
	o := newTestOrder("5")

	err := o.Fill(d("6"))
	require.ErrorIs(t, err, ErrInvalidFillQuantity)

	err = o.Fill(decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidFillQuantity)

	err = o.Fill(d("-1"))
	require.ErrorIs(t, err, ErrInvalidFillQuantity)

	// Nothing above should have mutated the order.
	assert.Equal(t, Open, o.Status)
	assert.True(t, o.Remaining.Equal(d("5")))
}

func TestOrderFillAfterTerminal(t *testing.T) {
	o := newTestOrder("5")
	require.NoError(t, o.Fill(d("5")))

	err := o.Fill(d("1"))
	require.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestOrderCancel(t *testing.T) {
	o := newTestOrder("5")
	require.NoError(t, o.Cancel())
	assert.Equal(t, Cancelled, o.Status)

	// Cancelling again fails the same way every time.
	require.ErrorIs(t, o.Cancel(), ErrAlreadyTerminal)
	require.ErrorIs(t, o.Cancel(), ErrAlreadyTerminal)
}

func TestOrderCancelPartiallyFilled(t *testing.T) {
	o := newTestOrder("5")
	require.NoError(t, o.Fill(d("2")))
	require.NoError(t, o.Cancel())
	assert.Equal(t, Cancelled, o.Status)
	assert.True(t, o.Remaining.Equal(d("3")))
}
