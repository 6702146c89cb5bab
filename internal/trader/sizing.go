package trader

import (
	"fmt"

	"scalpbot/internal/market"
	"scalpbot/internal/pkg/numeric"
)

// tradeValuePlaces is the precision of the risked notional before dividing by price.
const tradeValuePlaces = 6

// QuantityToTrade sizes an entry from the available balance. The minQty floor
// is applied first; the minNotional correction afterwards and may override it.
func QuantityToTrade(lastClose, balance float64, leverage int, riskPercentage float64, asset *market.AssetInfo) (float64, error) {
	if !(balance > 0) {
		return 0, fmt.Errorf("%w: available balance %v", ErrInsufficientBalance, balance)
	}
	if asset == nil {
		return 0, fmt.Errorf("%w: asset info unknown", ErrConfigurationMissing)
	}
	if !(lastClose > 0) {
		return 0, fmt.Errorf("invalid last close %v", lastClose)
	}
	notional := numeric.Mul(balance, float64(leverage))
	tradeValue := numeric.Round(numeric.Mul(notional, riskPercentage), tradeValuePlaces)
	qty := numeric.Round(numeric.Div(tradeValue, lastClose), asset.QuantityPrecision)
	if qty < asset.MinQty {
		qty = asset.MinQty
	}
	if numeric.Mul(qty, lastClose) < asset.MinNotional {
		qty = numeric.Round(numeric.Div(asset.MinNotional, lastClose), asset.QuantityPrecision)
	}
	return qty, nil
}

// StopLossPrice places the stop below a BUY entry and above a SELL entry.
func StopLossPrice(side market.Side, entry, distance float64, pricePrecision int) float64 {
	if side == market.SideBuy {
		return numeric.Round(numeric.Sub(entry, distance), pricePrecision)
	}
	return numeric.Round(numeric.Add(entry, distance), pricePrecision)
}

// TakeProfitPrice places the target above a BUY entry and below a SELL entry.
func TakeProfitPrice(side market.Side, entry, distance float64, pricePrecision int) float64 {
	if side == market.SideBuy {
		return numeric.Round(numeric.Add(entry, distance), pricePrecision)
	}
	return numeric.Round(numeric.Sub(entry, distance), pricePrecision)
}

// ProfitLoss is (exit-entry)*qty for a BUY and the mirror for a SELL.
func ProfitLoss(side market.Side, entry, exit, qty float64) float64 {
	if side == market.SideBuy {
		return numeric.Mul(numeric.Sub(exit, entry), qty)
	}
	return numeric.Mul(numeric.Sub(entry, exit), qty)
}
