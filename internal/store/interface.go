// Package store persists the trade journal. The journal is an audit trail:
// the engine writes to it but never restores position state from it.
package store

import (
	"context"

	"scalpbot/internal/store/model"
)

// TradeJournal records position lifecycle events.
type TradeJournal interface {
	// RecordOpen inserts a new open trade.
	RecordOpen(ctx context.Context, trade *model.TradeModel) error
	// RecordClose marks the trade identified by tradeID as closed.
	RecordClose(ctx context.Context, tradeID string, close model.TradeClose) error
	// ListRecent returns the newest trades first.
	ListRecent(ctx context.Context, limit int) ([]model.TradeModel, error)
	Close() error
}
