// Package gateway maps the configured exchange name to a Gateway constructor.
package gateway

import (
	"fmt"
	"sort"
	"strings"

	brcfg "scalpbot/internal/config"
	"scalpbot/internal/gateway/binance"
	"scalpbot/internal/gateway/exchange"
	"scalpbot/internal/gateway/paper"
	"scalpbot/internal/market"
)

// Deps is what a constructor may draw on besides the config.
type Deps struct {
	// Candles seed the paper gateway, usually the backtest file.
	Candles []market.Candle
}

type Constructor func(cfg *brcfg.Config, deps Deps) (exchange.Gateway, error)

type Registry struct {
	ctors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

func (r *Registry) Register(name string, ctor Constructor) {
	r.ctors[strings.ToLower(strings.TrimSpace(name))] = ctor
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the gateway named by cfg.Exchange.Name.
func (r *Registry) New(cfg *brcfg.Config, deps Deps) (exchange.Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Exchange.Name))
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, fmt.Errorf("unsupported exchange: %q (known: %s)", cfg.Exchange.Name, strings.Join(r.Names(), ", "))
	}
	return ctor(cfg, deps)
}

// DefaultRegistry knows binance and paper.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(binance.Name, newBinance)
	r.Register(paper.Name, newPaper)
	return r
}

func newBinance(cfg *brcfg.Config, _ Deps) (exchange.Gateway, error) {
	b := cfg.Exchange.Binance
	return binance.New(binance.Config{
		APIKey:       b.APIKey,
		SecretKey:    b.APISecret,
		RESTBaseURL:  b.BaseURL,
		HTTPTimeout:  b.HTTPTimeout(),
		Asset:        cfg.Trading.Asset,
		CounterAsset: cfg.Trading.CounterAsset,
		Interval:     b.Interval,
		Limit:        b.Limit,
		DropUnclosed: b.DropUnclosed,
		ProxyEnabled: b.Proxy.Enabled,
		RESTProxyURL: b.Proxy.RESTURL,
	})
}

func newPaper(cfg *brcfg.Config, deps Deps) (exchange.Gateway, error) {
	p := cfg.Exchange.Paper
	return paper.New(paper.Config{
		Asset: market.AssetInfo{
			Asset:             strings.ToUpper(cfg.Trading.Asset),
			Symbol:            cfg.Trading.Symbol(),
			PricePrecision:    p.PricePrecision,
			QuantityPrecision: p.QuantityPrecision,
			MinQty:            p.MinQty,
			MinNotional:       p.MinNotional,
		},
		QuoteAsset: strings.ToUpper(cfg.Trading.CounterAsset),
		Balance:    p.Balance,
		Candles:    deps.Candles,
		Window:     p.Window,
	}), nil
}
