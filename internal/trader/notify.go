package trader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scalpbot/internal/gateway/notifier"
	"scalpbot/internal/market"
	"scalpbot/internal/store/model"
)

func openedMessage(strategyName, symbol string, pos Position, at time.Time) notifier.StructuredMessage {
	icon := "🟢"
	if pos.Side == market.SideSell {
		icon = "🔴"
	}
	return notifier.StructuredMessage{
		Icon:  icon,
		Title: fmt.Sprintf("%s %s opened", strings.ToUpper(symbol), pos.Side),
		Sections: []notifier.MessageSection{{
			Title: "Position",
			Lines: []string{
				fmt.Sprintf("entry: %v", pos.EntryPrice),
				fmt.Sprintf("quantity: %v", pos.Quantity),
				fmt.Sprintf("stop loss: %s", fmtPrice(pos.StopLossPrice)),
				fmt.Sprintf("take profit: %s", fmtPrice(pos.TakeProfitPrice)),
			},
		}},
		Footer:    "strategy: " + strategyName,
		Timestamp: at,
	}
}

func (e *Engine) notify(ctx context.Context, msg notifier.StructuredMessage) {
	if err := e.notifier.SendText(ctx, msg.RenderMarkdown()); err != nil {
		e.log.Warnf("notify failed: %v", err)
	}
}

// Journal writes are best effort; a failing store never blocks trading.
func (e *Engine) journalOpen(ctx context.Context, mode string, pos Position, orders []market.Order) {
	if e.journal == nil {
		return
	}
	trade := &model.TradeModel{
		TradeID:         pos.ID,
		Mode:            mode,
		Strategy:        e.strat.Name(),
		Symbol:          e.settings.Symbol,
		Side:            string(pos.Side),
		Quantity:        pos.Quantity,
		EntryPrice:      pos.EntryPrice,
		StopLossPrice:   pos.StopLossPrice,
		TakeProfitPrice: pos.TakeProfitPrice,
		Status:          model.TradeStatusOpen,
		Orders:          model.EncodeOrders(orders),
		OpenedAt:        pos.OpenedAt,
	}
	if err := e.journal.RecordOpen(ctx, trade); err != nil {
		e.log.Warnf("journal open %s failed: %v", pos.ID, err)
	}
}

func (e *Engine) journalClose(ctx context.Context, s Settlement) {
	if e.journal == nil {
		return
	}
	err := e.journal.RecordClose(ctx, s.Position.ID, model.TradeClose{
		ExitPrice: s.ExitPrice,
		PnL:       s.PnL,
		Reason:    string(s.Reason),
		ClosedAt:  s.ClosedAt,
	})
	if err != nil {
		e.log.Warnf("journal close %s failed: %v", s.Position.ID, err)
	}
}
