package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// bookSide keeps one side's price levels sorted best-first: descending
// prices for bids, ascending for asks.
type bookSide struct {
	side  Side
	ticks []*Tick
}

func newBookSide(side Side) *bookSide {
	return &bookSide{side: side}
}

func (s *bookSide) empty() bool {
	return len(s.ticks) == 0
}

// best returns the highest bid or lowest ask level, or nil when the side is
// empty.
func (s *bookSide) best() *Tick {
	if len(s.ticks) == 0 {
		return nil
	}
	return s.ticks[0]
}

// insertPos is the index at which a level priced price belongs.
func (s *bookSide) insertPos(price decimal.Decimal) int {
	return sort.Search(len(s.ticks), func(i int) bool {
		if s.side == Buy {
			return s.ticks[i].Price().LessThanOrEqual(price)
		}
		return s.ticks[i].Price().GreaterThanOrEqual(price)
	})
}

func (s *bookSide) find(price decimal.Decimal) *Tick {
	i := s.insertPos(price)
	if i < len(s.ticks) && s.ticks[i].Price().Equal(price) {
		return s.ticks[i]
	}
	return nil
}

// getOrCreate returns the level at price, creating it lazily the first time
// a limit order rests there.
func (s *bookSide) getOrCreate(price decimal.Decimal) *Tick {
	i := s.insertPos(price)
	if i < len(s.ticks) && s.ticks[i].Price().Equal(price) {
		return s.ticks[i]
	}
	t := NewTick(price)
	s.ticks = append(s.ticks, nil)
	copy(s.ticks[i+1:], s.ticks[i:])
	s.ticks[i] = t
	return t
}

// dropLevel removes the level at price. Dropping a level that still holds
// orders is a matching bug.
func (s *bookSide) dropLevel(price decimal.Decimal) {
	i := s.insertPos(price)
	if i >= len(s.ticks) || !s.ticks[i].Price().Equal(price) {
		return
	}
	if !s.ticks[i].Empty() {
		panic("book side: dropping non-empty price level")
	}
	s.ticks = append(s.ticks[:i], s.ticks[i+1:]...)
}

// levels lists up to n price levels best-first. n <= 0 lists every level.
func (s *bookSide) levels(n int) []Level {
	if n <= 0 || n > len(s.ticks) {
		n = len(s.ticks)
	}
	out := make([]Level, 0, n)
	for _, t := range s.ticks[:n] {
		out = append(out, Level{Price: t.Price(), Quantity: t.AggregateQty()})
	}
	return out
}
