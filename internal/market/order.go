package market

import "time"

// ConditionalKind selects the trigger type of a protective order.
type ConditionalKind string

const (
	ConditionalStop       ConditionalKind = "STOP_MARKET"
	ConditionalTakeProfit ConditionalKind = "TAKE_PROFIT_MARKET"
)

// Order describes one order the engine submitted or simulated.
type Order struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Side         Side            `json:"side"`
	Kind         string          `json:"kind"`
	Quantity     float64         `json:"quantity"`
	TriggerPrice float64         `json:"trigger_price,omitempty"`
	Conditional  ConditionalKind `json:"conditional,omitempty"`
	Simulated    bool            `json:"simulated"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}
