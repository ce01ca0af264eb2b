package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tick is the FIFO queue of all resting orders at one exact price on one
// side of the book. It caches the aggregate remaining quantity of its
// members; the cache diverging from the members' sum is a matching bug.
// Orders are referenced by ID, the book's arena owns the Order values.
type Tick struct {
	price     decimal.Decimal
	orderIDs  []uint64
	aggregate decimal.Decimal
}

// NewTick creates an empty price level.
func NewTick(price decimal.Decimal) *Tick {
	return &Tick{price: price, aggregate: decimal.Zero}
}

func (t *Tick) Price() decimal.Decimal { return t.price }

// AggregateQty is the cached sum of remaining quantities at this level.
func (t *Tick) AggregateQty() decimal.Decimal { return t.aggregate }

func (t *Tick) Len() int { return len(t.orderIDs) }

// Empty reports whether the level holds no orders. An empty Tick must be
// dropped from the book, never kept as a dangling level.
func (t *Tick) Empty() bool { return len(t.orderIDs) == 0 }

// Add appends an order to the FIFO tail. The order's price must match the
// level's price exactly.
func (t *Tick) Add(o *Order) {
	if !o.Price.Equal(t.price) {
		panic(fmt.Sprintf("tick %s: add order %d priced %s", t.price, o.ID, o.Price))
	}
	t.orderIDs = append(t.orderIDs, o.ID)
	t.aggregate = t.aggregate.Add(o.Remaining)
}

// Front returns the oldest resting order ID without removing it.
func (t *Tick) Front() (uint64, bool) {
	if len(t.orderIDs) == 0 {
		return 0, false
	}
	return t.orderIDs[0], true
}

// ReduceFront applies a fill of qty to the front order. front must be the
// resolved Order for the current front ID; it is popped automatically when
// fully filled.
func (t *Tick) ReduceFront(front *Order, qty decimal.Decimal) error {
	id, ok := t.Front()
	if !ok || front.ID != id {
		panic(fmt.Sprintf("tick %s: reduce with order %d, front is %d", t.price, front.ID, id))
	}
	if err := front.Fill(qty); err != nil {
		return err
	}
	t.aggregate = t.aggregate.Sub(qty)
	t.checkAggregate()
	if front.Status == Filled {
		t.orderIDs = t.orderIDs[1:]
	}
	return nil
}

// Remove deletes a specific order from the level, wherever it sits in the
// queue. remaining must be the order's current remaining quantity. It
// reports whether the order was present.
func (t *Tick) Remove(orderID uint64, remaining decimal.Decimal) bool {
	for i, id := range t.orderIDs {
		if id != orderID {
			continue
		}
		t.orderIDs = append(t.orderIDs[:i], t.orderIDs[i+1:]...)
		t.aggregate = t.aggregate.Sub(remaining)
		t.checkAggregate()
		return true
	}
	return false
}

func (t *Tick) checkAggregate() {
	if t.aggregate.IsNegative() {
		panic(fmt.Sprintf("tick %s: aggregate quantity went negative (%s)", t.price, t.aggregate))
	}
	if len(t.orderIDs) == 0 && !t.aggregate.IsZero() {
		panic(fmt.Sprintf("tick %s: empty but aggregate is %s", t.price, t.aggregate))
	}
}
