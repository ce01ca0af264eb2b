package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickOrder(id uint64, qty string) *Order {
	return &Order{
		ID:        id,
		Account:   "acct",
		Side:      Sell,
		Kind:      Limit,
		Price:     d("100"),
		Quantity:  d(qty),
		Remaining: d(qty),
		Status:    Open,
	}
}

func TestTickAddKeepsFIFOAndAggregate(t *testing.T) {
	tick := NewTick(d("100"))

	tick.Add(tickOrder(1, "5"))
	tick.Add(tickOrder(2, "3"))

	front, ok := tick.Front()
	require.True(t, ok)
	assert.Equal(t, uint64(1), front)
	assert.Equal(t, 2, tick.Len())
	assert.True(t, tick.AggregateQty().Equal(d("8")))
}

func TestTickAddRejectsPriceMismatch(t *testing.T) {
	tick := NewTick(d("100"))
	o := tickOrder(1, "5")
	o.Price = d("101")

	require.Panics(t, func() { tick.Add(o) })
}

func TestTickReduceFrontPopsFilledOrder(t *testing.T) {
	tick := NewTick(d("100"))
	first := tickOrder(1, "5")
	second := tickOrder(2, "3")
	tick.Add(first)
	tick.Add(second)

	require.NoError(t, tick.ReduceFront(first, d("5")))

	front, ok := tick.Front()
	require.True(t, ok)
	assert.Equal(t, uint64(2), front, "filled front should be popped")
	assert.True(t, tick.AggregateQty().Equal(d("3")))
	assert.Equal(t, Filled, first.Status)
}

func TestTickReduceFrontPartial(t *testing.T) {
	tick := NewTick(d("100"))
	first := tickOrder(1, "5")
	tick.Add(first)

	require.NoError(t, tick.ReduceFront(first, d("2")))

	front, ok := tick.Front()
	require.True(t, ok)
	assert.Equal(t, uint64(1), front, "partially filled front stays queued")
	assert.True(t, tick.AggregateQty().Equal(d("3")))
	assert.Equal(t, PartiallyFilled, first.Status)
}

func TestTickReduceFrontWrongOrderPanics(t *testing.T) {
	tick := NewTick(d("100"))
	tick.Add(tickOrder(1, "5"))

	require.Panics(t, func() {
		_ = tick.ReduceFront(tickOrder(2, "3"), d("1"))
	})
}

func TestTickRemove(t *testing.T) {
	tick := NewTick(d("100"))
	tick.Add(tickOrder(1, "5"))
	tick.Add(tickOrder(2, "3"))
	tick.Add(tickOrder(3, "2"))

	require.True(t, tick.Remove(2, d("3")))
	assert.Equal(t, 2, tick.Len())
	assert.True(t, tick.AggregateQty().Equal(d("7")))

	// FIFO order of the survivors is untouched.
	front, _ := tick.Front()
	assert.Equal(t, uint64(1), front)

	require.False(t, tick.Remove(2, d("3")), "second removal finds nothing")
}

func TestTickRemoveLastSignalsEmpty(t *testing.T) {
	tick := NewTick(d("100"))
	tick.Add(tickOrder(1, "5"))

	require.True(t, tick.Remove(1, d("5")))
	assert.True(t, tick.Empty())
	assert.True(t, tick.AggregateQty().IsZero())
}
