package bots

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"tickbook/engine"
)

// MarketTakerBot crosses the spread with small market orders to keep trades
// flowing.
type MarketTakerBot struct {
	Interval    time.Duration
	QuantityMax int64
	rand        *rand.Rand
}

func NewMarketTakerBot() *MarketTakerBot {
	return &MarketTakerBot{
		Interval:    500 * time.Millisecond,
		QuantityMax: 3,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *MarketTakerBot) Start(ctx context.Context, client EngineClient) {
	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			side := engine.Side(b.rand.Intn(2))
			qty := decimal.NewFromInt(b.rand.Int63n(b.QuantityMax) + 1)
			// NoLiquidity and exhausted funds are routine under load.
			_, _ = client.SubmitMarket(ctx, side, qty)
		}
	}
}
