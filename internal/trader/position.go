package trader

import (
	"time"

	"scalpbot/internal/market"
	"scalpbot/internal/strategy"
)

// State is the engine's position state.
type State int

const (
	StateFlat State = iota
	StateInPosition
)

func (s State) String() string {
	if s == StateInPosition {
		return "in_position"
	}
	return "flat"
}

// Position is the single open position owned by the engine.
type Position struct {
	ID              string      `json:"id"`
	OpenedAt        time.Time   `json:"opened_at"`
	Side            market.Side `json:"side"`
	Quantity        float64     `json:"quantity"`
	EntryPrice      float64     `json:"entry_price"`
	StopLossPrice   *float64    `json:"stop_loss_price,omitempty"`
	TakeProfitPrice *float64    `json:"take_profit_price,omitempty"`
}

// EntryPlan is everything needed to open a position, computed without side effects.
type EntryPlan struct {
	Side            market.Side
	Price           float64
	Quantity        float64
	Distances       strategy.Distances
	StopLossPrice   *float64
	TakeProfitPrice *float64
}

// Position materialises the plan as the recorded position.
func (p EntryPlan) Position(id string, openedAt time.Time) Position {
	return Position{
		ID:              id,
		OpenedAt:        openedAt,
		Side:            p.Side,
		Quantity:        p.Quantity,
		EntryPrice:      p.Price,
		StopLossPrice:   p.StopLossPrice,
		TakeProfitPrice: p.TakeProfitPrice,
	}
}

// ProtectiveOrders lists the reduce-only orders placed after the entry, in
// submission order: stop-loss first, then take-profit.
func (p EntryPlan) ProtectiveOrders() []market.Order {
	closing := p.Side.Opposite()
	var out []market.Order
	if p.StopLossPrice != nil {
		out = append(out, market.Order{
			Side:         closing,
			Kind:         string(market.ConditionalStop),
			Quantity:     p.Quantity,
			TriggerPrice: *p.StopLossPrice,
			Conditional:  market.ConditionalStop,
		})
	}
	if p.TakeProfitPrice != nil {
		out = append(out, market.Order{
			Side:         closing,
			Kind:         string(market.ConditionalTakeProfit),
			Quantity:     p.Quantity,
			TriggerPrice: *p.TakeProfitPrice,
			Conditional:  market.ConditionalTakeProfit,
		})
	}
	return out
}

type CloseReason string

const (
	CloseTakeProfit CloseReason = "take_profit"
	CloseStopLoss   CloseReason = "stop_loss"
	CloseNextCandle CloseReason = "next_candle"
)

// Settlement is the outcome of closing a position.
type Settlement struct {
	Position  Position    `json:"position"`
	ExitPrice float64     `json:"exit_price"`
	PnL       float64     `json:"pnl"`
	Reason    CloseReason `json:"reason"`
	ClosedAt  time.Time   `json:"closed_at"`
}

func (s Settlement) Win() bool { return s.PnL > 0 }
