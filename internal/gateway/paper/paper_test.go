package paper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalpbot/internal/gateway/exchange"
	"scalpbot/internal/market"
)

func candles(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{OpenTime: int64(i+1) * 60_000, Close: float64(i + 1)}
	}
	return out
}

func TestFetchCandlesSlides(t *testing.T) {
	g := New(Config{Candles: candles(5), Window: 3})
	ctx := context.Background()

	first, err := g.FetchCandles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, first[len(first)-1].Close)

	second, _ := g.FetchCandles(ctx)
	assert.Equal(t, 4.0, second[len(second)-1].Close)

	g.FetchCandles(ctx)
	last, _ := g.FetchCandles(ctx)
	assert.Equal(t, 5.0, last[len(last)-1].Close)
	assert.Len(t, last, 3)
}

func TestEmptyGatewayFails(t *testing.T) {
	g := New(Config{})
	_, err := g.FetchCandles(context.Background())
	assert.ErrorIs(t, err, exchange.ErrGatewayFailure)
	_, err = g.FetchAssetInfo(context.Background())
	assert.ErrorIs(t, err, exchange.ErrGatewayFailure)
}

func TestOrdersAreRecorded(t *testing.T) {
	g := New(Config{Asset: market.AssetInfo{Symbol: "DOGEUSDT"}, QuoteAsset: "USDT", Balance: 100})
	ctx := context.Background()

	bal, err := g.FetchAvailableBalance(ctx, "USDT")
	require.NoError(t, err)
	assert.Equal(t, 100.0, bal)
	_, err = g.FetchAvailableBalance(ctx, "BTC")
	assert.Error(t, err)

	_, err = g.SetLeverage(ctx, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, g.Leverage())

	ack, err := g.SubmitMarketOrder(ctx, market.SideBuy, 50)
	require.NoError(t, err)
	assert.Equal(t, "paper-1", ack.OrderID)
	_, err = g.SubmitConditionalOrder(ctx, exchange.ConditionalOrder{Side: market.SideSell, Quantity: 50, Kind: market.ConditionalStop, TriggerPrice: 0.09})
	require.NoError(t, err)

	orders := g.Orders()
	require.Len(t, orders, 2)
	assert.True(t, orders[1].Simulated)
	assert.Equal(t, market.ConditionalStop, orders[1].Conditional)
	assert.Equal(t, "DOGEUSDT", orders[1].Symbol)
}
