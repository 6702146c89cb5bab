// Package binance implements exchange.Gateway on Binance USDⓈ-M futures.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"scalpbot/internal/gateway/exchange"
	"scalpbot/internal/logger"
	"scalpbot/internal/market"
	"scalpbot/internal/pkg/numeric"
	"scalpbot/internal/pkg/symbol"
	"scalpbot/internal/scheduler"
)

const Name = "binance"

type Gateway struct {
	cfg    Config
	symbol string
	client *futures.Client
	now    func() time.Time
	log    *logger.Component

	mu    sync.RWMutex
	asset *market.AssetInfo
}

var _ exchange.Gateway = (*Gateway)(nil)

func New(cfg Config) (*Gateway, error) {
	final := cfg.withDefaults()
	if final.Asset == "" {
		return nil, fmt.Errorf("binance: asset is required")
	}
	pair, err := symbol.NewPair(final.Asset, final.CounterAsset)
	if err != nil {
		return nil, fmt.Errorf("binance: %w", err)
	}
	if _, ok := scheduler.ParseIntervalDuration(final.Interval); !ok {
		return nil, fmt.Errorf("binance: unsupported kline interval %q", final.Interval)
	}
	client := futures.NewClient(final.APIKey, final.SecretKey)
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Gateway{
		cfg:    final,
		symbol: pair.Futures(),
		client: client,
		now:    time.Now,
		log:    logger.Named("binance").With("symbol", pair.Futures()),
	}, nil
}

func (g *Gateway) Name() string { return Name }

func (g *Gateway) Symbol() string { return g.symbol }

func (g *Gateway) FetchCandles(ctx context.Context) ([]market.Candle, error) {
	kls, err := g.client.NewKlinesService().
		Symbol(g.symbol).
		Interval(g.cfg.Interval).
		Limit(g.cfg.Limit).
		Do(ctx)
	if err != nil {
		return nil, exchange.Wrap(Name, "klines", err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime: kl.OpenTime,
			Open:     parseFloat(kl.Open),
			High:     parseFloat(kl.High),
			Low:      parseFloat(kl.Low),
			Close:    parseFloat(kl.Close),
			Volume:   parseFloat(kl.Volume),
		})
	}
	if g.cfg.DropUnclosed {
		if dur, ok := scheduler.ParseIntervalDuration(g.cfg.Interval); ok {
			out = scheduler.DropUnclosedKline(out, dur, g.now())
		}
	}
	return out, nil
}

func (g *Gateway) FetchAssetInfo(ctx context.Context) (market.AssetInfo, error) {
	info, err := g.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return market.AssetInfo{}, exchange.Wrap(Name, "exchangeInfo", err)
	}
	for _, s := range info.Symbols {
		if s.Symbol != g.symbol {
			continue
		}
		asset := market.AssetInfo{
			Asset:             g.cfg.Asset,
			Symbol:            s.Symbol,
			PricePrecision:    s.PricePrecision,
			QuantityPrecision: s.QuantityPrecision,
			MinQty:            filterValue(s.Filters, "LOT_SIZE", "minQty"),
			MinNotional:       filterValue(s.Filters, "MIN_NOTIONAL", "notional"),
		}
		g.mu.Lock()
		g.asset = &asset
		g.mu.Unlock()
		g.log.Infof("asset info price_precision=%d qty_precision=%d min_qty=%v min_notional=%v",
			asset.PricePrecision, asset.QuantityPrecision, asset.MinQty, asset.MinNotional)
		return asset, nil
	}
	return market.AssetInfo{}, exchange.Wrap(Name, "exchangeInfo", fmt.Errorf("symbol not found: %s", g.symbol))
}

func (g *Gateway) FetchAvailableBalance(ctx context.Context, quote string) (float64, error) {
	acct, err := g.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, exchange.Wrap(Name, "account", err)
	}
	for _, a := range acct.Assets {
		if a != nil && a.Asset == quote {
			return parseFloat(a.AvailableBalance), nil
		}
	}
	return 0, exchange.Wrap(Name, "account", fmt.Errorf("asset %s not in account", quote))
}

func (g *Gateway) SetLeverage(ctx context.Context, leverage int) (exchange.Ack, error) {
	res, err := g.client.NewChangeLeverageService().Symbol(g.symbol).Leverage(leverage).Do(ctx)
	if err != nil {
		return exchange.Ack{}, exchange.Wrap(Name, "leverage", err)
	}
	g.log.Infof("leverage set to %dx", res.Leverage)
	return exchange.Ack{Symbol: res.Symbol, Leverage: res.Leverage}, nil
}

func (g *Gateway) SubmitMarketOrder(ctx context.Context, side market.Side, quantity float64) (exchange.OrderAck, error) {
	res, err := g.client.NewCreateOrderService().
		Symbol(g.symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(g.formatQuantity(quantity)).
		Do(ctx)
	if err != nil {
		return exchange.OrderAck{}, exchange.Wrap(Name, "market order", err)
	}
	return g.ack(res, side, string(futures.OrderTypeMarket), quantity, 0), nil
}

func (g *Gateway) SubmitConditionalOrder(ctx context.Context, req exchange.ConditionalOrder) (exchange.OrderAck, error) {
	var orderType futures.OrderType
	switch req.Kind {
	case market.ConditionalStop:
		orderType = futures.OrderTypeStopMarket
	case market.ConditionalTakeProfit:
		orderType = futures.OrderTypeTakeProfitMarket
	default:
		return exchange.OrderAck{}, fmt.Errorf("binance: unsupported conditional kind %q", req.Kind)
	}
	res, err := g.client.NewCreateOrderService().
		Symbol(g.symbol).
		Side(futures.SideType(req.Side)).
		Type(orderType).
		Quantity(g.formatQuantity(req.Quantity)).
		StopPrice(g.formatPrice(req.TriggerPrice)).
		ReduceOnly(true).
		TimeInForce(futures.TimeInForceTypeGTC).
		Do(ctx)
	if err != nil {
		return exchange.OrderAck{}, exchange.Wrap(Name, string(orderType)+" order", err)
	}
	return g.ack(res, req.Side, string(orderType), req.Quantity, req.TriggerPrice), nil
}

func (g *Gateway) ack(res *futures.CreateOrderResponse, side market.Side, kind string, qty, price float64) exchange.OrderAck {
	ack := exchange.OrderAck{
		Symbol:      g.symbol,
		Side:        side,
		Kind:        kind,
		Quantity:    qty,
		Price:       price,
		SubmittedAt: g.now(),
	}
	if res != nil {
		ack.OrderID = strconv.FormatInt(res.OrderID, 10)
		ack.Status = string(res.Status)
		if res.UpdateTime > 0 {
			ack.SubmittedAt = time.UnixMilli(res.UpdateTime)
		}
	}
	return ack
}

func (g *Gateway) precision() (price, qty int, ok bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.asset == nil {
		return 0, 0, false
	}
	return g.asset.PricePrecision, g.asset.QuantityPrecision, true
}

func (g *Gateway) formatQuantity(v float64) string {
	if _, qty, ok := g.precision(); ok {
		return numeric.Fixed(v, qty)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (g *Gateway) formatPrice(v float64) string {
	if price, _, ok := g.precision(); ok {
		return numeric.Fixed(v, price)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
