package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type TradeStatus int

const (
	TradeStatusOpen   TradeStatus = 1
	TradeStatusClosed TradeStatus = 2
)

func (s TradeStatus) String() string {
	switch s {
	case TradeStatusOpen:
		return "open"
	case TradeStatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type TradeModel struct {
	ID              int64          `gorm:"column:id;primaryKey"`
	TradeID         string         `gorm:"column:trade_id;uniqueIndex"`
	Mode            string         `gorm:"column:mode;index"`
	Strategy        string         `gorm:"column:strategy"`
	Symbol          string         `gorm:"column:symbol;index"`
	Side            string         `gorm:"column:side"`
	Quantity        float64        `gorm:"column:quantity"`
	EntryPrice      float64        `gorm:"column:entry_price"`
	StopLossPrice   *float64       `gorm:"column:stop_loss_price"`
	TakeProfitPrice *float64       `gorm:"column:take_profit_price"`
	ExitPrice       float64        `gorm:"column:exit_price"`
	PnL             float64        `gorm:"column:pnl"`
	CloseReason     string         `gorm:"column:close_reason"`
	Status          TradeStatus    `gorm:"column:status;index"`
	Orders          datatypes.JSON `gorm:"column:orders"`
	OpenedAt        time.Time      `gorm:"column:opened_at"`
	ClosedAt        *time.Time     `gorm:"column:closed_at"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at"`
}

func (TradeModel) TableName() string { return "trades" }

// TradeClose carries the fields written when a trade settles.
type TradeClose struct {
	ExitPrice float64
	PnL       float64
	Reason    string
	ClosedAt  time.Time
}

// EncodeOrders serialises submitted orders for the orders column.
func EncodeOrders(orders any) datatypes.JSON {
	raw, err := json.Marshal(orders)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}
