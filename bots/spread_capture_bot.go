package bots

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tickbook/engine"
)

// SpreadCaptureBot maintains paired bids/asks and re-prices when the spread
// moves.
type SpreadCaptureBot struct {
	Interval       time.Duration
	Lifetime       time.Duration
	ThresholdSteps int64
	Quantity       decimal.Decimal
}

type pairedOrders struct {
	buyID     uint64
	sellID    uint64
	anchorMid decimal.Decimal
	placedAt  time.Time
}

func NewSpreadCaptureBot() *SpreadCaptureBot {
	return &SpreadCaptureBot{
		Interval:       300 * time.Millisecond,
		Lifetime:       3 * time.Second,
		ThresholdSteps: 3,
		Quantity:       decimal.NewFromInt(1),
	}
}

func (b *SpreadCaptureBot) Start(ctx context.Context, client EngineClient) {
	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	var pair *pairedOrders
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			view, err := client.Snapshot(ctx)
			if err != nil {
				continue
			}
			pair = b.refreshPair(ctx, client, view, pair)
		}
	}
}

func (b *SpreadCaptureBot) refreshPair(ctx context.Context, client EngineClient, view engine.BookView, pair *pairedOrders) *pairedOrders {
	bid := view.BestBid
	ask := view.BestAsk
	if bid == nil || ask == nil {
		return b.cancelPair(ctx, client, pair)
	}
	mid := bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2))
	threshold := client.PriceStep().Mul(decimal.NewFromInt(b.ThresholdSteps))

	if pair != nil {
		if time.Since(pair.placedAt) > b.Lifetime {
			pair = b.cancelPair(ctx, client, pair)
		} else if mid.Sub(pair.anchorMid).Abs().GreaterThanOrEqual(threshold) {
			pair = b.cancelPair(ctx, client, pair)
		}
	}
	if pair != nil {
		return pair
	}

	buyPrice := bid.Price
	if mid.Sub(client.PriceStep()).IsPositive() {
		buyPrice = mid.Sub(client.PriceStep())
	}
	sellPrice := ask.Price
	if sellPrice.LessThanOrEqual(buyPrice) {
		sellPrice = buyPrice.Add(client.PriceStep())
	}

	buyRes, err := client.SubmitLimit(ctx, engine.Buy, buyPrice, b.Quantity)
	if err != nil {
		return nil
	}
	sellRes, err := client.SubmitLimit(ctx, engine.Sell, sellPrice, b.Quantity)
	if err != nil {
		if !buyRes.Order.Status.Terminal() {
			_ = client.Cancel(ctx, buyRes.Order.ID)
		}
		return nil
	}

	return &pairedOrders{
		buyID:     buyRes.Order.ID,
		sellID:    sellRes.Order.ID,
		anchorMid: mid,
		placedAt:  time.Now(),
	}
}

func (b *SpreadCaptureBot) cancelPair(ctx context.Context, client EngineClient, pair *pairedOrders) *pairedOrders {
	if pair == nil {
		return nil
	}
	_ = client.Cancel(ctx, pair.buyID)
	_ = client.Cancel(ctx, pair.sellID)
	return nil
}
