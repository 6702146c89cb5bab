package trader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalpbot/internal/market"
)

func dogeAsset() *market.AssetInfo {
	return &market.AssetInfo{
		Asset:             "DOGE",
		Symbol:            "DOGEUSDT",
		PricePrecision:    5,
		QuantityPrecision: 0,
		MinQty:            1,
		MinNotional:       5,
	}
}

func TestQuantityToTrade(t *testing.T) {
	qty, err := QuantityToTrade(0.1, 100, 15, 0.02, dogeAsset())
	require.NoError(t, err)
	assert.Equal(t, 300.0, qty)
}

func TestQuantityToTradeMinNotionalOverridesMinQty(t *testing.T) {
	// 0.02 / 2 rounds to 0, floored to minQty 1; 1*2 < 5 so 5/2 rounds to 3.
	qty, err := QuantityToTrade(2, 1, 1, 0.02, dogeAsset())
	require.NoError(t, err)
	assert.Equal(t, 3.0, qty)
}

func TestQuantityToTradeMinQtyFloor(t *testing.T) {
	asset := dogeAsset()
	asset.MinNotional = 0
	qty, err := QuantityToTrade(2, 1, 1, 0.02, asset)
	require.NoError(t, err)
	assert.Equal(t, 1.0, qty)
}

func TestQuantityToTradeErrors(t *testing.T) {
	_, err := QuantityToTrade(0.1, 0, 15, 0.02, dogeAsset())
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = QuantityToTrade(0.1, -3, 15, 0.02, dogeAsset())
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = QuantityToTrade(0.1, 100, 15, 0.02, nil)
	assert.ErrorIs(t, err, ErrConfigurationMissing)
}

func TestProtectivePrices(t *testing.T) {
	assert.Equal(t, 98.77, StopLossPrice(market.SideBuy, 100, 1.23456, 2))
	assert.Equal(t, 101.23, TakeProfitPrice(market.SideBuy, 100, 1.23456, 2))
	assert.Equal(t, 101.23, StopLossPrice(market.SideSell, 100, 1.23456, 2))
	assert.Equal(t, 98.77, TakeProfitPrice(market.SideSell, 100, 1.23456, 2))
}

func TestProfitLoss(t *testing.T) {
	assert.Equal(t, 20.0, ProfitLoss(market.SideBuy, 100, 110, 2))
	assert.Equal(t, -20.0, ProfitLoss(market.SideSell, 100, 110, 2))
	// decimal arithmetic keeps this exact
	assert.Equal(t, 0.3, ProfitLoss(market.SideBuy, 0.1, 0.2, 3))
}
