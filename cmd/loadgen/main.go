package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime/pprof"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"tickbook/engine"
	"tickbook/ledger"
)

func main() {
	totalOrders := flag.Int("orders", 500000, "number of orders to submit")
	priceLevels := flag.Int64("price-levels", 200, "unique price levels around the mid")
	basePrice := flag.Int64("base-price", 10000, "mid price used for randomization")
	accounts := flag.Int("accounts", 16, "number of funded trading accounts")
	cancelEvery := flag.Int("cancel-every", 0, "cancel a random resting order every N submissions")
	marketRatio := flag.Int("market-ratio", 5, "1 in N orders will be market instead of limit")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for deterministic random streams")
	cpuProfile := flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile := flag.String("memprofile", "", "write heap profile to file")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			panic(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			panic(err)
		}
		defer pprof.StopCPUProfile()
	}

	l := ledger.New()
	book := engine.NewOrderBook(engine.Config{RequestBuffer: 2048, TradeBuffer: 2048}, l)
	pair := book.Pair()

	// Every account holds enough of both assets that reservations rarely
	// reject an order, so throughput measures the book and not the funding.
	funding := decimal.NewFromInt(*basePrice).Mul(decimal.NewFromInt(int64(*totalOrders)))
	traders := make([]ledger.AccountID, *accounts)
	for i := range traders {
		traders[i] = l.CreateAccount(fmt.Sprintf("loadgen-%d", i))
		if err := l.Deposit(traders[i], pair.Base, funding); err != nil {
			panic(err)
		}
		if err := l.Deposit(traders[i], pair.Quote, funding); err != nil {
			panic(err)
		}
	}

	var matches int64
	done := make(chan struct{})
	go func() {
		for range book.Trades() {
			atomic.AddInt64(&matches, 1)
		}
		close(done)
	}()

	var submitted, rejected int
	var lastID uint64
	start := time.Now()
	for i := 0; i < *totalOrders; i++ {
		account := traders[rng.Intn(len(traders))]
		side := engine.Buy
		if rng.Intn(2) == 1 {
			side = engine.Sell
		}
		qty := decimal.NewFromInt(rng.Int63n(5) + 1)

		var res engine.SubmitResult
		var err error
		if *marketRatio > 0 && rng.Intn(*marketRatio) == 0 {
			res, err = book.SubmitMarketOrder(account, side, qty)
		} else {
			price := randomPrice(rng, side, *basePrice, *priceLevels)
			res, err = book.SubmitLimitOrder(account, side, price, qty)
		}
		switch {
		case errors.Is(err, engine.ErrNoLiquidity):
			rejected++
		case err != nil:
			fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
		default:
			submitted++
			lastID = res.Order.ID
		}

		if *cancelEvery > 0 && i > 0 && i%*cancelEvery == 0 && lastID > 0 {
			_ = book.CancelOrder(uint64(rng.Int63n(int64(lastID))) + 1)
		}
	}
	elapsed := time.Since(start)

	book.Stop()
	<-done

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err == nil {
			defer f.Close()
			_ = pprof.WriteHeapProfile(f)
		}
	}

	ordersPerSec := float64(submitted) / elapsed.Seconds()
	tradesPerSec := float64(matches) / elapsed.Seconds()

	fmt.Printf("submitted %d orders in %s (%.0f orders/s), %d rejected\n", submitted, elapsed.Truncate(time.Millisecond), ordersPerSec, rejected)
	fmt.Printf("matched %d trades (%.0f trades/s)\n", matches, tradesPerSec)
	fmt.Printf("config: accounts=%d price-levels=%d market-ratio=1/%d seed=%d\n", *accounts, *priceLevels, *marketRatio, *seed)
}

func randomPrice(rng *rand.Rand, side engine.Side, mid, width int64) decimal.Decimal {
	if side == engine.Buy {
		return decimal.NewFromInt(mid + rng.Int63n(width))
	}
	offset := rng.Int63n(width)
	if mid > offset {
		return decimal.NewFromInt(mid - offset)
	}
	return decimal.NewFromInt(1)
}
