package scheduler

import (
	"strings"
	"time"

	"scalpbot/internal/market"
)

// DefaultKlineGrace is how long after its nominal close a candle is still
// treated as forming, to absorb exchange clock skew.
const DefaultKlineGrace = 10 * time.Second

const day = 24 * time.Hour

// klineIntervals are the kline periods futures endpoints accept. "m" is
// minutes and "M" a 30 day month.
var klineIntervals = map[string]time.Duration{
	"1m": time.Minute, "3m": 3 * time.Minute, "5m": 5 * time.Minute,
	"15m": 15 * time.Minute, "30m": 30 * time.Minute,
	"1h": time.Hour, "2h": 2 * time.Hour, "4h": 4 * time.Hour, "6h": 6 * time.Hour,
	"8h": 8 * time.Hour, "12h": 12 * time.Hour,
	"1d": day, "3d": 3 * day, "1w": 7 * day, "1M": 30 * day,
}

// ParseIntervalDuration maps a kline interval name to its length.
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	d, ok := klineIntervals[strings.TrimSpace(interval)]
	return d, ok
}

// DropUnclosedKline removes the trailing candle while it is still forming at
// now. Exchanges return the in-progress candle last.
func DropUnclosedKline(klines []market.Candle, interval time.Duration, now time.Time) []market.Candle {
	n := len(klines)
	if n == 0 || interval <= 0 || klines[n-1].OpenTime <= 0 {
		return klines
	}
	if now.Before(klines[n-1].Time().Add(interval + DefaultKlineGrace)) {
		return klines[:n-1]
	}
	return klines
}
