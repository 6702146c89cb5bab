package livehttp

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"scalpbot/internal/store/model"
	"scalpbot/internal/trader"
)

const (
	defaultTradeLimit = 50
	maxTradeLimit     = 500
)

type StatusProvider interface {
	Snapshot() trader.Snapshot
}

// TradeLister is the read side of the trade journal.
type TradeLister interface {
	ListRecent(ctx context.Context, limit int) ([]model.TradeModel, error)
}

type Router struct {
	status StatusProvider
	trades TradeLister
}

func NewRouter(status StatusProvider, trades TradeLister) *Router {
	return &Router{status: status, trades: trades}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/trades", r.handleTrades)
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.status.Snapshot())
}

// TradeView is the JSON shape of a journal row.
type TradeView struct {
	TradeID         string     `json:"trade_id"`
	Mode            string     `json:"mode"`
	Strategy        string     `json:"strategy"`
	Symbol          string     `json:"symbol"`
	Side            string     `json:"side"`
	Status          string     `json:"status"`
	Quantity        float64    `json:"quantity"`
	EntryPrice      float64    `json:"entry_price"`
	StopLossPrice   *float64   `json:"stop_loss_price,omitempty"`
	TakeProfitPrice *float64   `json:"take_profit_price,omitempty"`
	ExitPrice       float64    `json:"exit_price,omitempty"`
	PnL             float64    `json:"pnl"`
	CloseReason     string     `json:"close_reason,omitempty"`
	OpenedAt        time.Time  `json:"opened_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

func (r *Router) handleTrades(c *gin.Context) {
	if r.trades == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade journal disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultTradeLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if limit > maxTradeLimit {
		limit = maxTradeLimit
	}
	rows, err := r.trades.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]TradeView, 0, len(rows))
	for _, row := range rows {
		out = append(out, TradeView{
			TradeID:         row.TradeID,
			Mode:            row.Mode,
			Strategy:        row.Strategy,
			Symbol:          row.Symbol,
			Side:            row.Side,
			Status:          row.Status.String(),
			Quantity:        row.Quantity,
			EntryPrice:      row.EntryPrice,
			StopLossPrice:   row.StopLossPrice,
			TakeProfitPrice: row.TakeProfitPrice,
			ExitPrice:       row.ExitPrice,
			PnL:             row.PnL,
			CloseReason:     row.CloseReason,
			OpenedAt:        row.OpenedAt,
			ClosedAt:        row.ClosedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"trades": out, "count": len(out)})
}
