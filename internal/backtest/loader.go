package backtest

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"scalpbot/internal/market"
)

// ErrInvalidCandles is returned for unreadable or unordered candle files.
var ErrInvalidCandles = errors.New("invalid candle data")

// LoadCandles reads a JSON array of kline rows
// [openTime, open, high, low, close, volume, ...]. Fields may be strings or
// numbers; extra columns are ignored.
func LoadCandles(path string) ([]market.Candle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candles %s: %w", path, err)
	}
	return ParseCandles(raw)
}

func ParseCandles(raw []byte) ([]market.Candle, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidCandles)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: root must be an array", ErrInvalidCandles)
	}
	rows := root.Array()
	out := make([]market.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidCandles, i, err)
		}
		if n := len(out); n > 0 && c.OpenTime <= out[n-1].OpenTime {
			return nil, fmt.Errorf("%w: row %d: open time %d not after %d", ErrInvalidCandles, i, c.OpenTime, out[n-1].OpenTime)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseRow(row gjson.Result) (market.Candle, error) {
	if !row.IsArray() {
		return market.Candle{}, errors.New("row must be an array")
	}
	fields := row.Array()
	if len(fields) < 6 {
		return market.Candle{}, fmt.Errorf("need 6 fields, have %d", len(fields))
	}
	var vals [6]float64
	for i := range vals {
		v, err := number(fields[i])
		if err != nil {
			return market.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		vals[i] = v
	}
	return market.Candle{
		OpenTime: int64(vals[0]),
		Open:     vals[1],
		High:     vals[2],
		Low:      vals[3],
		Close:    vals[4],
		Volume:   vals[5],
	}, nil
}

func number(r gjson.Result) (float64, error) {
	switch r.Type {
	case gjson.Number:
		return r.Num, nil
	case gjson.String:
		return strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
	default:
		return 0, fmt.Errorf("unexpected %s", r.Type)
	}
}
