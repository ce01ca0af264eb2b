package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"tickbook/bots"
	"tickbook/config"
	"tickbook/engine"
	"tickbook/ledger"
)

// marketd exposes a read-only view of the book over HTTP: a depth
// snapshot plus websocket streams for trades and top-of-book updates.
// Orders enter only through the in-process bot swarm.
type server struct {
	book       *engine.OrderBook
	tradeHub   *hub[engine.Fill]
	bookHub    *hub[engine.BookView]
	upgrader   websocket.Upgrader
	corsOrigin string
	depthLimit int
	log        *slog.Logger
}

type levelJSON struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type depthResponse struct {
	Pair string      `json:"pair"`
	Bids []levelJSON `json:"bids"`
	Asks []levelJSON `json:"asks"`
}

type quoteJSON struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type topOfBookJSON struct {
	BestBid *quoteJSON `json:"bestBid,omitempty"`
	BestAsk *quoteJSON `json:"bestAsk,omitempty"`
}

type tradeJSON struct {
	Pair        string          `json:"pair"`
	BuyOrderID  uint64          `json:"buyOrderId"`
	SellOrderID uint64          `json:"sellOrderId"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	ExecutedAt  time.Time       `json:"executedAt"`
}

type outboundMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	pair := ledger.Pair{Base: ledger.Asset(cfg.Pair.Base), Quote: ledger.Asset(cfg.Pair.Quote)}
	accounts := ledger.New()
	book := engine.NewOrderBook(engine.Config{
		Pair:          pair,
		RequestBuffer: cfg.Engine.RequestBuffer,
		TradeBuffer:   cfg.Engine.TradeBuffer,
	}, accounts)
	defer book.Stop()

	swarm := bots.NewSupervisor(book, accounts, bots.SupervisorConfig{
		OrderInterval:  cfg.BotOrderInterval(),
		PriceStep:      decimal.NewFromInt(1),
		ReferencePrice: decimal.NewFromInt(100),
		FundBase:       decimal.RequireFromString(cfg.Funding.BotBase),
		FundQuote:      decimal.RequireFromString(cfg.Funding.BotQuote),
	}, logger)
	go swarm.Start(context.Background())

	srv := newServer(book, cfg, logger)

	logger.Info("listening", "addr", cfg.Server.ListenAddr, "pair", pair.String())
	if err := http.ListenAndServe(cfg.Server.ListenAddr, srv.routes()); err != nil {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}

func newServer(book *engine.OrderBook, cfg config.Config, logger *slog.Logger) *server {
	s := &server{
		book:       book,
		tradeHub:   newHub[engine.Fill](),
		bookHub:    newHub[engine.BookView](),
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		corsOrigin: cfg.Server.CORSOrigin,
		depthLimit: cfg.Server.DepthLimit,
		log:        logger,
	}

	go s.consumeTrades()
	go s.consumeBookUpdates()
	return s
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/book", s.withCORS(http.HandlerFunc(s.handleDepth)))
	mux.Handle("/ws/trades", s.withCORS(http.HandlerFunc(s.handleTradeStream)))
	mux.Handle("/ws/book", s.withCORS(http.HandlerFunc(s.handleBookStream)))
	return mux
}

func (s *server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleDepth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	depth := s.book.Depth(s.depthLimit)
	writeJSON(w, http.StatusOK, depthResponse{
		Pair: s.book.Pair().String(),
		Bids: toLevels(depth.Bids),
		Asks: toLevels(depth.Asks),
	})
}

func (s *server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.tradeHub.Subscribe(32)
	defer s.tradeHub.Unsubscribe(sub)
	s.log.Debug("trade stream opened", "remote", r.RemoteAddr, "subscribers", s.tradeHub.Subscribers())

	for fill := range sub.ch {
		msg := outboundMessage{Type: "trade", Data: toTradeJSON(s.book.Pair(), fill)}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (s *server) handleBookStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.bookHub.Subscribe(32)
	defer s.bookHub.Unsubscribe(sub)
	s.log.Debug("book stream opened", "remote", r.RemoteAddr, "subscribers", s.bookHub.Subscribers())

	for view := range sub.ch {
		msg := outboundMessage{Type: "book", Data: topOfBookJSON{
			BestBid: toQuoteJSON(view.BestBid),
			BestAsk: toQuoteJSON(view.BestAsk),
		}}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (s *server) consumeTrades() {
	for fill := range s.book.Trades() {
		s.tradeHub.Broadcast(fill)
	}
}

func (s *server) consumeBookUpdates() {
	for view := range s.book.BookUpdates() {
		s.bookHub.Broadcast(view)
	}
}

func toLevels(levels []engine.Level) []levelJSON {
	out := make([]levelJSON, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, levelJSON{Price: lvl.Price, Quantity: lvl.Quantity})
	}
	return out
}

func toQuoteJSON(q *engine.Quote) *quoteJSON {
	if q == nil {
		return nil
	}
	return &quoteJSON{Price: q.Price, Quantity: q.Quantity}
}

func toTradeJSON(pair ledger.Pair, fill engine.Fill) tradeJSON {
	return tradeJSON{
		Pair:        pair.String(),
		BuyOrderID:  fill.BuyOrderID,
		SellOrderID: fill.SellOrderID,
		Price:       fill.Price,
		Quantity:    fill.Quantity,
		ExecutedAt:  fill.Timestamp,
	}
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
