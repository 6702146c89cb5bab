// Package indicator computes technical indicators over a candle window.
// Every function is pure and returns the value at the last candle only.
package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"scalpbot/internal/market"
)

// Bands is the Bollinger envelope at the last candle.
type Bands struct {
	SMA   float64 `json:"sma"`
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// RSI returns the Wilder-smoothed relative strength index, rounded to two
// decimals. The first period deltas seed the averages; every later candle is
// folded in with avg = (avg*(period-1) + value) / period.
//
// A window without any loss has no finite RS. When there was no gain either
// (a flat window) RS is clamped to 0, giving RSI 0; otherwise the index
// saturates at 100.
func RSI(w market.Window, period int) (float64, error) {
	if err := checkPeriod("RSI", period); err != nil {
		return 0, err
	}
	if len(w) <= period {
		return 0, insufficient("RSI", period+1, len(w))
	}
	var gains, losses float64
	for i := 1; i <= period; i++ {
		change := w[i].Close - w[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	p := float64(period)
	avgGain := gains / p
	avgLoss := losses / p
	for i := period + 1; i < len(w); i++ {
		change := w[i].Close - w[i-1].Close
		avgGain = (avgGain*(p-1) + math.Max(change, 0)) / p
		avgLoss = (avgLoss*(p-1) + math.Max(-change, 0)) / p
	}
	var rsi float64
	switch {
	case avgLoss == 0 && avgGain == 0:
		rsi = 0
	case avgLoss == 0:
		rsi = 100
	default:
		rs := avgGain / avgLoss
		rsi = 100 - 100/(1+rs)
	}
	return math.Round(rsi*100) / 100, nil
}

// BollingerBands returns the simple moving average of the trailing period
// closes and the envelope at k population standard deviations.
func BollingerBands(w market.Window, period int, k float64) (Bands, error) {
	if err := checkPeriod("BollingerBands", period); err != nil {
		return Bands{}, err
	}
	if len(w) < period {
		return Bands{}, insufficient("BollingerBands", period, len(w))
	}
	upper, middle, lower := talib.BBands(w.Closes(), period, k, k, talib.SMA)
	last := len(w) - 1
	return Bands{SMA: middle[last], Upper: upper[last], Lower: lower[last]}, nil
}

// AverageVolume is the arithmetic mean of the trailing period volumes.
func AverageVolume(w market.Window, period int) (float64, error) {
	if err := checkPeriod("AverageVolume", period); err != nil {
		return 0, err
	}
	if len(w) < period {
		return 0, insufficient("AverageVolume", period, len(w))
	}
	sma := talib.Sma(w.Volumes(), period)
	return sma[len(sma)-1], nil
}

// ATR is the plain mean of the trailing period true ranges. True range is
// defined from the second candle on, so the window must exceed period.
func ATR(w market.Window, period int) (float64, error) {
	if err := checkPeriod("ATR", period); err != nil {
		return 0, err
	}
	if len(w) <= period {
		return 0, insufficient("ATR", period+1, len(w))
	}
	tr := talib.TRange(w.Highs(), w.Lows(), w.Closes())
	var sum float64
	for _, v := range tr[len(tr)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}

// EMA seeds with the SMA of the first period closes and smooths forward with
// factor 2/(period+1).
func EMA(w market.Window, period int) (float64, error) {
	if err := checkPeriod("EMA", period); err != nil {
		return 0, err
	}
	if len(w) < period {
		return 0, insufficient("EMA", period, len(w))
	}
	series := talib.Ema(w.Closes(), period)
	return series[len(series)-1], nil
}
