// Package paper is an in-memory exchange.Gateway for dry runs and tests.
// Orders are recorded but never matched; the balance stays where it was set.
package paper

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"scalpbot/internal/gateway/exchange"
	"scalpbot/internal/market"
)

const Name = "paper"

type Config struct {
	Asset      market.AssetInfo
	QuoteAsset string
	Balance    float64
	Candles    []market.Candle
	// Window is the number of candles returned per FetchCandles call. Each
	// call advances one candle through Candles until the end is reached.
	Window int
}

type Gateway struct {
	mu       sync.Mutex
	cfg      Config
	cursor   int
	leverage int
	orders   []market.Order
	seq      int
	now      func() time.Time
}

var _ exchange.Gateway = (*Gateway)(nil)

func New(cfg Config) *Gateway {
	if cfg.Window <= 0 || cfg.Window > len(cfg.Candles) {
		cfg.Window = len(cfg.Candles)
	}
	return &Gateway{cfg: cfg, cursor: cfg.Window, now: time.Now}
}

func (g *Gateway) Name() string { return Name }

func (g *Gateway) FetchCandles(context.Context) ([]market.Candle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.cfg.Candles) == 0 {
		return nil, exchange.Wrap(Name, "klines", fmt.Errorf("no candles loaded"))
	}
	out := make([]market.Candle, g.cfg.Window)
	copy(out, g.cfg.Candles[g.cursor-g.cfg.Window:g.cursor])
	if g.cursor < len(g.cfg.Candles) {
		g.cursor++
	}
	return out, nil
}

func (g *Gateway) FetchAssetInfo(context.Context) (market.AssetInfo, error) {
	if g.cfg.Asset.Symbol == "" && g.cfg.Asset.Asset == "" {
		return market.AssetInfo{}, exchange.Wrap(Name, "exchangeInfo", fmt.Errorf("asset info not configured"))
	}
	return g.cfg.Asset, nil
}

func (g *Gateway) FetchAvailableBalance(_ context.Context, quote string) (float64, error) {
	if g.cfg.QuoteAsset != "" && quote != g.cfg.QuoteAsset {
		return 0, exchange.Wrap(Name, "account", fmt.Errorf("asset %s not in account", quote))
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Balance, nil
}

// SetBalance replaces the simulated available balance.
func (g *Gateway) SetBalance(v float64) {
	g.mu.Lock()
	g.cfg.Balance = v
	g.mu.Unlock()
}

func (g *Gateway) SetLeverage(_ context.Context, leverage int) (exchange.Ack, error) {
	if leverage <= 0 {
		return exchange.Ack{}, exchange.Wrap(Name, "leverage", fmt.Errorf("leverage must be positive"))
	}
	g.mu.Lock()
	g.leverage = leverage
	g.mu.Unlock()
	return exchange.Ack{Symbol: g.cfg.Asset.Symbol, Leverage: leverage}, nil
}

func (g *Gateway) Leverage() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.leverage
}

func (g *Gateway) SubmitMarketOrder(_ context.Context, side market.Side, quantity float64) (exchange.OrderAck, error) {
	return g.record(market.Order{Side: side, Kind: "MARKET", Quantity: quantity}), nil
}

func (g *Gateway) SubmitConditionalOrder(_ context.Context, req exchange.ConditionalOrder) (exchange.OrderAck, error) {
	return g.record(market.Order{
		Side:         req.Side,
		Kind:         string(req.Kind),
		Quantity:     req.Quantity,
		TriggerPrice: req.TriggerPrice,
		Conditional:  req.Kind,
	}), nil
}

// Orders returns a copy of every order submitted so far.
func (g *Gateway) Orders() []market.Order {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]market.Order, len(g.orders))
	copy(out, g.orders)
	return out
}

func (g *Gateway) record(o market.Order) exchange.OrderAck {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	o.ID = "paper-" + strconv.Itoa(g.seq)
	o.Symbol = g.cfg.Asset.Symbol
	o.Simulated = true
	o.SubmittedAt = g.now()
	g.orders = append(g.orders, o)
	return exchange.OrderAck{
		OrderID:     o.ID,
		Symbol:      o.Symbol,
		Side:        o.Side,
		Kind:        o.Kind,
		Quantity:    o.Quantity,
		Price:       o.TriggerPrice,
		Status:      "NEW",
		SubmittedAt: o.SubmittedAt,
	}
}
