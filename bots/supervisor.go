package bots

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tickbook/engine"
	"tickbook/ledger"
)

// SupervisorConfig shapes the bot swarm.
type SupervisorConfig struct {
	// OrderInterval throttles submissions across the whole swarm.
	OrderInterval time.Duration
	// PriceStep and ReferencePrice anchor bot quoting.
	PriceStep      decimal.Decimal
	ReferencePrice decimal.Decimal
	// FundBase/FundQuote are deposited into each bot's account at start.
	FundBase  decimal.Decimal
	FundQuote decimal.Decimal
}

type supervised struct {
	name   string
	bot    Bot
	client *ThrottledClient
}

// Supervisor runs a swarm of bots, each trading its own funded account, and
// periodically reports their balances.
type Supervisor struct {
	book     *engine.OrderBook
	ledger   *ledger.Ledger
	cfg      SupervisorConfig
	bots     []supervised
	throttle *time.Ticker
	log      *slog.Logger
}

// NewSupervisor builds the default swarm: two passive quoters per side, one
// spread capturer, and one market taker.
func NewSupervisor(book *engine.OrderBook, l *ledger.Ledger, cfg SupervisorConfig, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	s := &Supervisor{
		book:     book,
		ledger:   l,
		cfg:      cfg,
		throttle: time.NewTicker(cfg.OrderInterval),
		log:      log,
	}

	for name, bot := range map[string]Bot{
		"bid-1":   NewRandomBidBot(),
		"bid-2":   NewRandomBidBot(),
		"ask-1":   NewRandomAskBot(),
		"ask-2":   NewRandomAskBot(),
		"spread":  NewSpreadCaptureBot(),
		"taker-1": NewMarketTakerBot(),
	} {
		s.bots = append(s.bots, supervised{
			name:   name,
			bot:    bot,
			client: s.newClient(name),
		})
	}
	return s
}

func (s *Supervisor) newClient(name string) *ThrottledClient {
	account := s.ledger.CreateAccount("bot-" + name)
	if err := s.ledger.Deposit(account, s.book.Pair().Base, s.cfg.FundBase); err != nil {
		panic(err)
	}
	if err := s.ledger.Deposit(account, s.book.Pair().Quote, s.cfg.FundQuote); err != nil {
		panic(err)
	}
	return NewThrottledClient(s.book, account, s.cfg.PriceStep, s.cfg.ReferencePrice, s.throttle.C)
}

// Start launches all bots and balance reporting until the context is
// canceled. The caller owns the book's trade stream; the supervisor never
// reads it.
func (s *Supervisor) Start(ctx context.Context) {
	reportTicker := time.NewTicker(2 * time.Second)
	defer reportTicker.Stop()
	defer s.throttle.Stop()

	for _, entry := range s.bots {
		e := entry
		go e.bot.Start(ctx, e.client)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-reportTicker.C:
			s.reportBalances()
		}
	}
}

func (s *Supervisor) reportBalances() {
	pair := s.book.Pair()
	for _, entry := range s.bots {
		acct := entry.client.Account()
		base := s.ledger.Balance(acct, pair.Base)
		quote := s.ledger.Balance(acct, pair.Quote)
		s.log.Info("bot balances",
			"bot", entry.name,
			"base_available", base.Available,
			"base_reserved", base.Reserved,
			"quote_available", quote.Available,
			"quote_reserved", quote.Reserved)
	}
}
