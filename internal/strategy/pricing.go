package strategy

import "scalpbot/internal/market"

// StopLossHit reports whether price trades through the stop of a position
// opened on side.
func StopLossHit(side market.Side, price, stop float64) bool {
	if stop <= 0 || price <= 0 {
		return false
	}
	switch side {
	case market.SideBuy:
		return price <= stop
	case market.SideSell:
		return price >= stop
	default:
		return false
	}
}

// TakeProfitHit reports whether price reached the target of a position opened
// on side.
func TakeProfitHit(side market.Side, price, target float64) bool {
	if target <= 0 || price <= 0 {
		return false
	}
	switch side {
	case market.SideBuy:
		return price >= target
	case market.SideSell:
		return price <= target
	default:
		return false
	}
}
