// Package exchange defines the capability set the trading engine needs from a
// futures venue. Implementations live in sibling packages (binance, paper).
package exchange

import (
	"context"

	"scalpbot/internal/market"
)

type Gateway interface {
	Name() string

	// FetchCandles returns the most recent closed candles, oldest first.
	FetchCandles(ctx context.Context) ([]market.Candle, error)

	FetchAssetInfo(ctx context.Context) (market.AssetInfo, error)

	FetchAvailableBalance(ctx context.Context, quoteAsset string) (float64, error)

	SetLeverage(ctx context.Context, leverage int) (Ack, error)

	SubmitMarketOrder(ctx context.Context, side market.Side, quantity float64) (OrderAck, error)

	SubmitConditionalOrder(ctx context.Context, req ConditionalOrder) (OrderAck, error)
}
