package backtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"scalpbot/internal/analysis/visual"
	"scalpbot/internal/market"
)

type (
	EquityPoint = visual.EquityPoint
	TradeMark   = visual.TradeMark
)

// Trade is one settled position of the run.
type Trade struct {
	Side            market.Side `yaml:"side" json:"side"`
	Quantity        float64     `yaml:"quantity" json:"quantity"`
	EntryPrice      float64     `yaml:"entry_price" json:"entry_price"`
	ExitPrice       float64     `yaml:"exit_price" json:"exit_price"`
	StopLossPrice   *float64    `yaml:"stop_loss_price,omitempty" json:"stop_loss_price,omitempty"`
	TakeProfitPrice *float64    `yaml:"take_profit_price,omitempty" json:"take_profit_price,omitempty"`
	PnL             float64     `yaml:"pnl" json:"pnl"`
	Reason          string      `yaml:"reason" json:"reason"`
	OpenedAt        time.Time   `yaml:"opened_at" json:"opened_at"`
	ClosedAt        time.Time   `yaml:"closed_at" json:"closed_at"`
}

// Report summarises one run. Apart from RunID, StartedAt and FinishedAt it is
// a pure function of the candles and the configuration.
type Report struct {
	RunID          string         `yaml:"run_id" json:"run_id"`
	Strategy       string         `yaml:"strategy" json:"strategy"`
	Symbol         string         `yaml:"symbol" json:"symbol"`
	Lookback       int            `yaml:"lookback" json:"lookback"`
	Candles        int            `yaml:"candles" json:"candles"`
	Steps          int            `yaml:"steps" json:"steps"`
	Signals        map[string]int `yaml:"signals" json:"signals"`
	Opened         int            `yaml:"opened" json:"opened"`
	Closed         int            `yaml:"closed" json:"closed"`
	Wins           int            `yaml:"wins" json:"wins"`
	Losses         int            `yaml:"losses" json:"losses"`
	WinRate        float64        `yaml:"win_rate" json:"win_rate"`
	InitialBalance float64        `yaml:"initial_balance" json:"initial_balance"`
	FinalBalance   float64        `yaml:"final_balance" json:"final_balance"`
	Profit         float64        `yaml:"profit" json:"profit"`
	ReturnPct      float64        `yaml:"return_pct" json:"return_pct"`
	MaxDrawdownPct float64        `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
	EquityPeak     float64        `yaml:"equity_peak" json:"equity_peak"`
	EquityValley   float64        `yaml:"equity_valley" json:"equity_valley"`
	Start          time.Time      `yaml:"start" json:"start"`
	End            time.Time      `yaml:"end" json:"end"`
	StartedAt      time.Time      `yaml:"started_at" json:"started_at"`
	FinishedAt     time.Time      `yaml:"finished_at" json:"finished_at"`
	Trades         []Trade        `yaml:"trades,omitempty" json:"trades,omitempty"`

	Equity []EquityPoint `yaml:"-" json:"-"`
	Marks  []TradeMark   `yaml:"-" json:"-"`
}

// Summary is the multi-line block printed at the end of a run.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run      : %s\n", r.RunID)
	fmt.Fprintf(&b, "strategy : %s\n", r.Strategy)
	fmt.Fprintf(&b, "range    : %s -> %s\n", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	fmt.Fprintf(&b, "steps    : %d\n", r.Steps)
	fmt.Fprintf(&b, "signals  : %v\n", r.Signals)
	fmt.Fprintf(&b, "trades   : %d opened, %d closed (%d wins / %d losses)\n", r.Opened, r.Closed, r.Wins, r.Losses)
	fmt.Fprintf(&b, "winrate  : %.2f%%\n", r.WinRate*100)
	fmt.Fprintf(&b, "maxDD    : %.2f%%\n", r.MaxDrawdownPct*100)
	fmt.Fprintf(&b, "balance  : %.4f -> %.4f\n", r.InitialBalance, r.FinalBalance)
	fmt.Fprintf(&b, "profit   : %.4f (%.2f%%)", r.Profit, r.ReturnPct*100)
	return b.String()
}

// WriteYAML writes the report to dir/report.yaml and returns the path.
func WriteYAML(dir string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	raw, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(dir, "report.yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadYAML loads a report written by WriteYAML.
func ReadYAML(path string) (Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	var r Report
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", path, err)
	}
	return r, nil
}

// ChartOptions controls the chart export.
type ChartOptions struct {
	BollingerPeriod int
	BollingerK      float64
	// PNG additionally screenshots the page with headless Chrome.
	PNG bool
}

// WriteCharts renders dir/equity.html and optionally dir/equity.png. It
// returns the written paths.
func WriteCharts(ctx context.Context, dir string, r Report, candles []market.Candle, o ChartOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	input := visual.BacktestInput{
		Symbol:          r.Symbol,
		Strategy:        r.Strategy,
		Candles:         candles,
		Equity:          r.Equity,
		Trades:          r.Marks,
		BollingerPeriod: o.BollingerPeriod,
		BollingerK:      o.BollingerK,
	}
	html, err := visual.BuildBacktestHTML(input)
	if err != nil {
		return nil, err
	}
	htmlPath := filepath.Join(dir, "equity.html")
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return nil, err
	}
	paths := []string{htmlPath}
	if !o.PNG {
		return paths, nil
	}
	png, err := visual.RenderPNG(ctx, html, 0, visual.PageHeight(input))
	if err != nil {
		return paths, fmt.Errorf("render png: %w", err)
	}
	pngPath := filepath.Join(dir, "equity.png")
	if err := os.WriteFile(pngPath, png, 0o644); err != nil {
		return paths, err
	}
	return append(paths, pngPath), nil
}
