package backtest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalpbot/internal/gateway/paper"
	"scalpbot/internal/market"
	"scalpbot/internal/strategy"
	"scalpbot/internal/trader"
)

type scriptedStepper struct {
	results []trader.StepResult
	failAt  int
	windows []market.Window
	balance float64
}

func (s *scriptedStepper) ReplayStep(_ context.Context, w market.Window) (trader.StepResult, error) {
	n := len(s.windows)
	s.windows = append(s.windows, w)
	if s.failAt > 0 && n == s.failAt {
		return trader.StepResult{}, errors.New("boom")
	}
	if n < len(s.results) {
		res := s.results[n]
		if res.Closed != nil {
			s.balance += res.Closed.PnL
		}
		return res, nil
	}
	return trader.StepResult{Signal: market.SignalHold, Evaluated: true}, nil
}

func (s *scriptedStepper) Reset(v float64)  { s.balance = v }
func (s *scriptedStepper) Balance() float64 { return s.balance }

func seqCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{OpenTime: int64(i) * 60_000, Open: 1, High: 1, Low: 1, Close: float64(i), Volume: 1}
	}
	return out
}

func TestRunnerWindows(t *testing.T) {
	st := &scriptedStepper{}
	r, err := NewRunner(st, Config{Strategy: "s", InitialBalance: 100, Lookback: 3})
	require.NoError(t, err)

	rep, err := r.Run(context.Background(), seqCandles(10))
	require.NoError(t, err)
	assert.Equal(t, 7, rep.Steps)
	require.Len(t, st.windows, 7)
	assert.Equal(t, []float64{0, 1, 2}, st.windows[0].Closes())
	// the candle at index i is never part of step i
	assert.Equal(t, []float64{6, 7, 8}, st.windows[6].Closes())
	assert.Equal(t, 3, cap(st.windows[0]))
	assert.Equal(t, map[string]int{"HOLD": 7}, rep.Signals)
}

func TestRunnerCountsTrades(t *testing.T) {
	pos := trader.Position{Side: market.SideBuy, Quantity: 1, EntryPrice: 10, OpenedAt: time.UnixMilli(0)}
	win := trader.Settle(pos, 12, time.UnixMilli(60_000))
	loss := trader.Settle(pos, 9, time.UnixMilli(180_000))
	st := &scriptedStepper{results: []trader.StepResult{
		{Signal: market.SignalBuy, Evaluated: true, Opened: &pos},
		{Signal: market.SignalHold, Closed: &win},
		{Signal: market.SignalBuy, Evaluated: true, Opened: &pos},
		{Signal: market.SignalHold, Closed: &loss},
	}}
	r, err := NewRunner(st, Config{Strategy: "s", InitialBalance: 100, Lookback: 2})
	require.NoError(t, err)

	rep, err := r.Run(context.Background(), seqCandles(8))
	require.NoError(t, err)
	assert.Equal(t, 6, rep.Steps)
	assert.Equal(t, map[string]int{"BUY": 2, "HOLD": 2}, rep.Signals)
	assert.Equal(t, 2, rep.Opened)
	assert.Equal(t, 2, rep.Closed)
	assert.Equal(t, 1, rep.Wins)
	assert.Equal(t, 1, rep.Losses)
	assert.Equal(t, 0.5, rep.WinRate)
	assert.Equal(t, 101.0, rep.FinalBalance)
	assert.Equal(t, 1.0, rep.Profit)
	assert.Equal(t, 102.0, rep.EquityPeak)
	assert.InDelta(t, 1.0/102.0, rep.MaxDrawdownPct, 1e-6)
	require.Len(t, rep.Equity, 2)
	require.Len(t, rep.Trades, 2)
	assert.Equal(t, "next_candle", rep.Trades[0].Reason)
	assert.Len(t, rep.Marks, 4)
}

func TestRunnerStepErrorIsFatal(t *testing.T) {
	st := &scriptedStepper{failAt: 2}
	r, err := NewRunner(st, Config{InitialBalance: 100, Lookback: 2})
	require.NoError(t, err)
	rep, err := r.Run(context.Background(), seqCandles(10))
	assert.Error(t, err)
	assert.Equal(t, 2, rep.Steps)
	assert.Len(t, st.windows, 3)
}

func TestRunnerInputs(t *testing.T) {
	_, err := NewRunner(&scriptedStepper{}, Config{InitialBalance: 0})
	assert.Error(t, err)

	r, err := NewRunner(&scriptedStepper{}, Config{InitialBalance: 1})
	require.NoError(t, err)
	_, err = r.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoCandles)

	rep, err := r.Run(context.Background(), seqCandles(DefaultLookback))
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Steps)
}

// eventCandles oscillates quietly with sell-offs at 40 and 120 and squeezes
// at 80 and 160, each on heavy volume and fully reverted on the next candle.
func eventCandles() []market.Candle {
	out := make([]market.Candle, 200)
	for i := range out {
		price, vol := 100.0, 10.0
		if i%2 == 0 {
			price = 100.2
		}
		switch i {
		case 40, 120:
			price, vol = out[i-1].Close-10, 100
		case 80, 160:
			price, vol = out[i-1].Close+10, 100
		}
		out[i] = market.Candle{OpenTime: int64(i) * 60_000, Open: price, High: price + 0.5, Low: price - 0.5, Close: price, Volume: vol}
	}
	return out
}

func newScalpingRunner(t *testing.T) (*Runner, *paper.Gateway) {
	t.Helper()
	strat, err := strategy.DefaultRegistry().New(strategy.Spec{
		Key:    strategy.KeyScalping,
		Ratios: strategy.Ratios{StopLoss: 1.5, TakeProfit: 2},
	})
	require.NoError(t, err)
	gw := paper.New(paper.Config{
		Asset:      market.AssetInfo{Asset: "DOGE", Symbol: "DOGEUSDT", PricePrecision: 2, QuantityPrecision: 1, MinQty: 0.1, MinNotional: 5},
		QuoteAsset: "USDT",
	})
	engine, err := trader.New(gw, strat, trader.Settings{
		Symbol: "DOGEUSDT", QuoteAsset: "USDT", Leverage: 15, RiskPercentage: 0.02,
	}, trader.Options{})
	require.NoError(t, err)
	require.NoError(t, engine.Configure(context.Background()))

	r, err := NewRunner(engine, Config{Strategy: strat.Name(), Symbol: "DOGEUSDT", InitialBalance: 100, Lookback: 30})
	require.NoError(t, err)
	return r, gw
}

func runScalping(t *testing.T, candles []market.Candle) Report {
	t.Helper()
	r, gw := newScalpingRunner(t)
	rep, err := r.Run(context.Background(), candles)
	require.NoError(t, err)
	assert.Empty(t, gw.Orders())
	return rep
}

func TestRunScalpingDeterministic(t *testing.T) {
	candles := eventCandles()
	a := runScalping(t, candles)
	b := runScalping(t, candles)

	assert.Equal(t, 170, a.Steps)
	assert.Equal(t, 4, a.Opened)
	assert.Equal(t, 4, a.Closed)
	assert.Equal(t, 4, a.Wins)
	assert.Equal(t, map[string]int{"BUY": 2, "SELL": 2, "HOLD": 162}, a.Signals)
	assert.Greater(t, a.FinalBalance, 100.0)

	clearRunMeta(&a, &b)
	assert.Equal(t, a, b)
}

func clearRunMeta(reps ...*Report) {
	for _, r := range reps {
		r.RunID = ""
		r.StartedAt = time.Time{}
		r.FinishedAt = time.Time{}
	}
}

func TestRerunOnSameRunnerStartsFlat(t *testing.T) {
	// the last window ends on the squeeze at 160, so the first run finishes
	// with a position still open
	candles := eventCandles()[:162]
	r, _ := newScalpingRunner(t)

	first, err := r.Run(context.Background(), candles)
	require.NoError(t, err)
	require.Equal(t, first.Closed+1, first.Opened)

	second, err := r.Run(context.Background(), candles)
	require.NoError(t, err)
	assert.Equal(t, first.FinalBalance, second.FinalBalance)
	assert.Equal(t, first.Signals, second.Signals)
	clearRunMeta(&first, &second)
	assert.Equal(t, first, second)
}

func TestReportExports(t *testing.T) {
	candles := eventCandles()
	rep := runScalping(t, candles)
	dir := t.TempDir()

	path, err := WriteYAML(dir, rep)
	require.NoError(t, err)
	back, err := ReadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, back.RunID)
	assert.Equal(t, rep.Signals, back.Signals)
	assert.Equal(t, rep.FinalBalance, back.FinalBalance)
	assert.Len(t, back.Trades, rep.Closed)

	paths, err := WriteCharts(context.Background(), dir, rep, candles, ChartOptions{BollingerPeriod: 7, BollingerK: 2})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	info, err := os.Stat(filepath.Join(dir, "equity.html"))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.Contains(t, rep.Summary(), "steps    : 170")
}
