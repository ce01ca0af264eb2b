package bots

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"tickbook/engine"
)

// RandomAskBot places short-lived limit asks around the mid price.
type RandomAskBot struct {
	Interval    time.Duration
	Lifetime    time.Duration
	QuantityMax int64
	RangeSteps  int64
	rand        *rand.Rand
}

func NewRandomAskBot() *RandomAskBot {
	return &RandomAskBot{
		Interval:    200 * time.Millisecond,
		Lifetime:    2 * time.Second,
		QuantityMax: 5,
		RangeSteps:  5,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *RandomAskBot) Start(ctx context.Context, client EngineClient) {
	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.placeAsk(ctx, client)
		}
	}
}

func (b *RandomAskBot) placeAsk(ctx context.Context, client EngineClient) {
	view, err := client.Snapshot(ctx)
	if err != nil {
		return
	}
	mid := midPrice(view, client.ReferencePrice())
	if !mid.IsPositive() {
		return
	}

	delta := client.PriceStep().Mul(decimal.NewFromInt(b.rand.Int63n(b.RangeSteps + 1)))
	price := mid.Add(delta)
	qty := decimal.NewFromInt(b.rand.Int63n(b.QuantityMax) + 1)

	res, err := client.SubmitLimit(ctx, engine.Sell, price, qty)
	if err != nil {
		return
	}
	if res.Order.Status.Terminal() {
		return
	}

	go b.cancelAfter(ctx, client, res.Order.ID)
}

func (b *RandomAskBot) cancelAfter(ctx context.Context, client EngineClient, orderID uint64) {
	timer := time.NewTimer(b.Lifetime)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		_ = client.Cancel(context.Background(), orderID)
	}
}
