// Package strategy turns a candle window into a trade signal and the ATR-based
// stop/target distances used to protect the entry.
package strategy

import (
	"errors"
	"fmt"

	"scalpbot/internal/market"
)

// ErrInvalidConfig is returned when a strategy is built with unusable settings.
var ErrInvalidConfig = errors.New("invalid strategy config")

// Strategy is the capability set every variant implements.
type Strategy interface {
	Name() string
	// Signal evaluates the last candle of w.
	Signal(w market.Window) (market.Signal, error)
	// Distances returns absolute price offsets for stop-loss and take-profit.
	Distances(w market.Window) (Distances, error)
	// Lookback is the shortest window all indicators of the variant accept.
	Lookback() int
}

// Distances are absolute price offsets from the entry price.
type Distances struct {
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// Ratios scale the ATR into stop-loss and take-profit distances.
type Ratios struct {
	StopLoss   float64 `json:"stop_loss_ratio" toml:"stop_loss_ratio"`
	TakeProfit float64 `json:"take_profit_ratio" toml:"take_profit_ratio"`
}

func (r Ratios) validate() error {
	if r.StopLoss <= 0 {
		return fmt.Errorf("%w: stop_loss_ratio must be > 0 (got %v)", ErrInvalidConfig, r.StopLoss)
	}
	if r.TakeProfit <= 0 {
		return fmt.Errorf("%w: take_profit_ratio must be > 0 (got %v)", ErrInvalidConfig, r.TakeProfit)
	}
	return nil
}
