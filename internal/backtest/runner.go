// Package backtest replays a candle history through the trading engine and
// summarises the outcome.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scalpbot/internal/logger"
	"scalpbot/internal/market"
	"scalpbot/internal/pkg/numeric"
	"scalpbot/internal/trader"
)

// DefaultLookback is the window length fed to each step.
const DefaultLookback = 200

var ErrNoCandles = errors.New("no candles to replay")

// Stepper is the part of the engine the runner drives.
type Stepper interface {
	ReplayStep(ctx context.Context, w market.Window) (trader.StepResult, error)
	// Reset clears any open position and trade history and seeds the balance.
	Reset(balance float64)
	Balance() float64
}

type Config struct {
	Strategy       string
	Symbol         string
	InitialBalance float64
	Lookback       int
}

type Runner struct {
	engine Stepper
	cfg    Config
	now    func() time.Time
	log    *logger.Component
}

func NewRunner(engine Stepper, cfg Config) (*Runner, error) {
	if engine == nil {
		return nil, errors.New("backtest runner requires an engine")
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if !(cfg.InitialBalance > 0) {
		return nil, fmt.Errorf("initial balance must be > 0 (got %v)", cfg.InitialBalance)
	}
	return &Runner{engine: engine, cfg: cfg, now: time.Now, log: logger.Named("backtest")}, nil
}

// Run replays candles with windows candles[i-L:i] for i in [L, len). The first
// step error aborts the run.
func (r *Runner) Run(ctx context.Context, candles []market.Candle) (Report, error) {
	if len(candles) == 0 {
		return Report{}, ErrNoCandles
	}
	rep := Report{
		RunID:          uuid.NewString(),
		Strategy:       r.cfg.Strategy,
		Symbol:         r.cfg.Symbol,
		Lookback:       r.cfg.Lookback,
		Candles:        len(candles),
		Signals:        map[string]int{},
		InitialBalance: r.cfg.InitialBalance,
		Start:          candles[0].Time().UTC(),
		End:            candles[len(candles)-1].Time().UTC(),
		StartedAt:      r.now().UTC(),
	}
	r.log.Infof("backtest %s start=%s end=%s candles=%d balance=%v",
		r.cfg.Strategy, rep.Start.Format(time.RFC3339), rep.End.Format(time.RFC3339), len(candles), r.cfg.InitialBalance)

	r.engine.Reset(r.cfg.InitialBalance)
	curve := newEquityCurve(r.cfg.InitialBalance)
	L := r.cfg.Lookback
	for i := L; i < len(candles); i++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		w := market.Window(candles[i-L : i : i])
		res, err := r.engine.ReplayStep(ctx, w)
		if err != nil {
			return rep, fmt.Errorf("step %d: %w", rep.Steps, err)
		}
		rep.Steps++
		if res.Evaluated {
			rep.Signals[res.Signal.String()]++
		}
		if res.Opened != nil {
			rep.Opened++
			rep.Marks = append(rep.Marks, TradeMark{Time: res.Opened.OpenedAt, Price: res.Opened.EntryPrice, Side: res.Opened.Side})
		}
		if s := res.Closed; s != nil {
			rep.Closed++
			if s.Win() {
				rep.Wins++
			} else {
				rep.Losses++
			}
			rep.Trades = append(rep.Trades, tradeFromSettlement(*s))
			rep.Marks = append(rep.Marks, TradeMark{Time: s.ClosedAt, Price: s.ExitPrice, Side: s.Position.Side, Exit: true})
			curve.add(s.ClosedAt, r.engine.Balance())
		}
	}

	rep.FinalBalance = r.engine.Balance()
	rep.Profit = numeric.Sub(rep.FinalBalance, rep.InitialBalance)
	rep.ReturnPct = numeric.Round(numeric.Div(rep.Profit, rep.InitialBalance), 6)
	if rep.Closed > 0 {
		rep.WinRate = numeric.Round(float64(rep.Wins)/float64(rep.Closed), 6)
	}
	rep.MaxDrawdownPct = numeric.Round(curve.maxDrawdown, 6)
	rep.EquityPeak = curve.peak
	rep.EquityValley = curve.valley
	rep.Equity = curve.points
	rep.FinishedAt = r.now().UTC()

	r.log.Infof("steps %d", rep.Steps)
	r.log.Infof("operations %v", rep.Signals)
	r.log.Infof("total profit %.4f final balance %.4f", rep.Profit, rep.FinalBalance)
	return rep, nil
}

type equityCurve struct {
	points      []EquityPoint
	peak        float64
	valley      float64
	maxDrawdown float64
}

func newEquityCurve(initial float64) *equityCurve {
	return &equityCurve{peak: initial, valley: initial}
}

func (c *equityCurve) add(at time.Time, balance float64) {
	c.points = append(c.points, EquityPoint{Time: at.UTC(), Balance: balance})
	if balance > c.peak {
		c.peak = balance
	}
	if balance < c.valley {
		c.valley = balance
	}
	if c.peak > 0 {
		if dd := (c.peak - balance) / c.peak; dd > c.maxDrawdown {
			c.maxDrawdown = dd
		}
	}
}

func tradeFromSettlement(s trader.Settlement) Trade {
	return Trade{
		Side:            s.Position.Side,
		Quantity:        s.Position.Quantity,
		EntryPrice:      s.Position.EntryPrice,
		ExitPrice:       s.ExitPrice,
		StopLossPrice:   s.Position.StopLossPrice,
		TakeProfitPrice: s.Position.TakeProfitPrice,
		PnL:             s.PnL,
		Reason:          string(s.Reason),
		OpenedAt:        s.Position.OpenedAt.UTC(),
		ClosedAt:        s.ClosedAt.UTC(),
	}
}
