package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"tickbook/bots"
	"tickbook/config"
	"tickbook/engine"
	"tickbook/ledger"
)

const prompt = "> "

type session struct {
	book    *engine.OrderBook
	ledger  *ledger.Ledger
	account ledger.AccountID
	pair    ledger.Pair
	out     *bufio.Writer
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	quiet := flag.Bool("quiet", false, "suppress bot balance reports")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level, *quiet)
	slog.SetDefault(logger)

	pair := ledger.Pair{Base: ledger.Asset(cfg.Pair.Base), Quote: ledger.Asset(cfg.Pair.Quote)}
	accounts := ledger.New()
	book := engine.NewOrderBook(engine.Config{
		Pair:          pair,
		RequestBuffer: cfg.Engine.RequestBuffer,
		TradeBuffer:   cfg.Engine.TradeBuffer,
	}, accounts)
	defer book.Stop()

	user := accounts.CreateAccount("user")
	mustDeposit(accounts, user, pair.Base, cfg.Funding.UserBase)
	mustDeposit(accounts, user, pair.Quote, cfg.Funding.UserQuote)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	swarm := bots.NewSupervisor(book, accounts, bots.SupervisorConfig{
		OrderInterval:  cfg.BotOrderInterval(),
		PriceStep:      decimal.NewFromInt(1),
		ReferencePrice: decimal.NewFromInt(100),
		FundBase:       decimal.RequireFromString(cfg.Funding.BotBase),
		FundQuote:      decimal.RequireFromString(cfg.Funding.BotQuote),
	}, logger)
	go swarm.Start(ctx)

	s := &session{
		book:    book,
		ledger:  accounts,
		account: user,
		pair:    pair,
		out:     bufio.NewWriter(os.Stdout),
	}

	go s.announceFills(book.Trades(), user)

	fmt.Printf("trading %s, type 'help' for commands\n", pair)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print(prompt)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			break
		}
		if line != "" {
			if err := s.dispatch(line); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		}
		fmt.Print(prompt)
	}
}

func (s *session) dispatch(line string) error {
	fields := strings.Fields(strings.ToLower(line))
	switch fields[0] {
	case "help":
		s.printHelp()
	case "buy", "sell":
		if err := s.submit(fields); err != nil {
			return err
		}
	case "cancel":
		if err := s.cancel(fields); err != nil {
			return err
		}
	case "book":
		s.printBook()
	case "balances":
		s.printBalances()
	case "orders":
		s.printOrders()
	case "history":
		s.printHistory()
	default:
		return fmt.Errorf("unknown command %q, type 'help'", fields[0])
	}
	return s.out.Flush()
}

func (s *session) printHelp() {
	fmt.Fprintln(s.out, "commands:")
	fmt.Fprintf(s.out, "  buy %s limit <qty> <price>   place a limit buy\n", s.pair.Base)
	fmt.Fprintf(s.out, "  sell %s limit <qty> <price>  place a limit sell\n", s.pair.Base)
	fmt.Fprintf(s.out, "  buy %s market <qty>          place a market buy\n", s.pair.Base)
	fmt.Fprintf(s.out, "  sell %s market <qty>         place a market sell\n", s.pair.Base)
	fmt.Fprintln(s.out, "  cancel <order-id>              cancel a resting order")
	fmt.Fprintln(s.out, "  book                           show top of book and depth")
	fmt.Fprintln(s.out, "  balances                       show your balances")
	fmt.Fprintln(s.out, "  orders                         show your open orders")
	fmt.Fprintln(s.out, "  history                        show your fills and closed orders")
	fmt.Fprintln(s.out, "  quit                           leave")
}

// submit parses "<side> <asset> <kind> <amount> [<price>]", e.g.
// "buy osmo limit 10 5" or "sell osmo market 3".
func (s *session) submit(fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("usage: %s %s limit <qty> <price> | %s %s market <qty>",
			fields[0], strings.ToLower(string(s.pair.Base)), fields[0], strings.ToLower(string(s.pair.Base)))
	}

	side := engine.Buy
	if fields[0] == "sell" {
		side = engine.Sell
	}

	if !strings.EqualFold(fields[1], string(s.pair.Base)) {
		return fmt.Errorf("only %s is traded here", s.pair.Base)
	}
	qty, err := decimal.NewFromString(fields[3])
	if err != nil {
		return fmt.Errorf("bad quantity %q", fields[3])
	}

	var res engine.SubmitResult
	switch fields[2] {
	case "limit":
		if len(fields) < 5 {
			return fmt.Errorf("limit orders need a price")
		}
		price, err := decimal.NewFromString(fields[4])
		if err != nil {
			return fmt.Errorf("bad price %q", fields[4])
		}
		res, err = s.book.SubmitLimitOrder(s.account, side, price, qty)
		if err != nil {
			return err
		}
	case "market":
		res, err = s.book.SubmitMarketOrder(s.account, side, qty)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("order kind must be limit or market, got %q", fields[2])
	}

	order := res.Order
	fmt.Fprintf(s.out, "order %d %s: filled %s of %s\n",
		order.ID, order.Status, order.FilledQuantity(), order.Quantity)
	if order.Status == engine.Open || order.Status == engine.PartiallyFilled {
		fmt.Fprintf(s.out, "resting %s at %s\n", order.Remaining, order.Price)
	}
	return nil
}

func (s *session) cancel(fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("usage: cancel <order-id>")
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("bad order id %q", fields[1])
	}
	if err := s.book.CancelOrder(id); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "order %d cancelled\n", id)
	return nil
}

func (s *session) printBook() {
	depth := s.book.Depth(5)
	fmt.Fprintf(s.out, "%s book\n", s.pair)
	fmt.Fprintln(s.out, "  asks:")
	for i := len(depth.Asks) - 1; i >= 0; i-- {
		fmt.Fprintf(s.out, "    %s x %s\n", depth.Asks[i].Price, depth.Asks[i].Quantity)
	}
	fmt.Fprintln(s.out, "  bids:")
	for _, lvl := range depth.Bids {
		fmt.Fprintf(s.out, "    %s x %s\n", lvl.Price, lvl.Quantity)
	}
}

func (s *session) printBalances() {
	for _, asset := range []ledger.Asset{s.pair.Base, s.pair.Quote} {
		bal := s.ledger.Balance(s.account, asset)
		fmt.Fprintf(s.out, "%s: %s available, %s reserved\n", asset, bal.Available, bal.Reserved)
	}
}

func (s *session) printOrders() {
	orders := s.book.AccountOrders(s.account)
	if len(orders) == 0 {
		fmt.Fprintln(s.out, "no open orders")
		return
	}
	for _, o := range orders {
		fmt.Fprintf(s.out, "order %d: %s %s %s at %s, %s remaining (%s)\n",
			o.ID, o.Side, o.Quantity, s.pair.Base, o.Price, o.Remaining, o.Status)
	}
}

func (s *session) printHistory() {
	fills := s.ledger.Fills(s.account)
	if len(fills) == 0 {
		fmt.Fprintln(s.out, "no fills yet")
	}
	for _, f := range fills {
		verb := "sold"
		if f.Bought {
			verb = "bought"
		}
		fmt.Fprintf(s.out, "%s %s %s %s at %s (order %d vs %d)\n",
			f.Timestamp.Format("15:04:05"), verb, f.Quantity, s.pair.Base, f.Price, f.OrderID, f.CounterOrderID)
	}
	for _, c := range s.ledger.ClosedOrders(s.account) {
		fmt.Fprintf(s.out, "%s order %d closed: %s\n", c.ClosedAt.Format("15:04:05"), c.OrderID, c.Status)
	}
}

// announceFills prints the user's side of every trade as it happens.
func (s *session) announceFills(trades <-chan engine.Fill, user ledger.AccountID) {
	for fill := range trades {
		switch user {
		case fill.Buyer:
			fmt.Printf("\nfilled: bought %s %s at %s\n%s", fill.Quantity, s.pair.Base, fill.Price, prompt)
		case fill.Seller:
			fmt.Printf("\nfilled: sold %s %s at %s\n%s", fill.Quantity, s.pair.Base, fill.Price, prompt)
		}
	}
}

func mustDeposit(l *ledger.Ledger, account ledger.AccountID, asset ledger.Asset, amount string) {
	if err := l.Deposit(account, asset, decimal.RequireFromString(amount)); err != nil {
		panic(err)
	}
}

func newLogger(level string, quiet bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if quiet {
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
