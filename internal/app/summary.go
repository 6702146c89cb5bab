package app

import (
	"fmt"
	"io"
	"strings"

	brcfg "scalpbot/internal/config"
	"scalpbot/internal/gateway/exchange"
	"scalpbot/internal/strategy"
)

// StartupSummary is printed once before the engine is configured.
type StartupSummary struct {
	Mode     Mode
	Symbol   string
	Exchange string
	Strategy StrategySummary
	Trading  TradingSummary
	Live     LiveSummary
	Backtest BacktestSummary
	Journal  string
}

type StrategySummary struct {
	Name     string
	Lookback int
	Params   *strategy.Params
	Ratios   strategy.Ratios
}

type TradingSummary struct {
	Leverage       int
	RiskPercentage float64
}

type LiveSummary struct {
	Interval string
	Cooldown string
	HTTPAddr string
	Notifier string
}

type BacktestSummary struct {
	CandlesFile    string
	InitialBalance float64
	Lookback       int
	ReportDir      string
}

func buildSummary(cfg *brcfg.Config, mode Mode, strat strategy.Strategy, gw exchange.Gateway) *StartupSummary {
	s := &StartupSummary{
		Mode:     mode,
		Symbol:   cfg.Trading.Symbol(),
		Exchange: gw.Name(),
		Strategy: StrategySummary{Name: strat.Name(), Lookback: strat.Lookback()},
		Trading:  TradingSummary{Leverage: cfg.Trading.Leverage, RiskPercentage: cfg.Trading.RiskPercentage},
		Live: LiveSummary{
			Interval: cfg.Live.Interval().String(),
			Cooldown: cfg.Live.Cooldown().String(),
			HTTPAddr: cfg.App.HTTPAddr,
			Notifier: "off",
		},
		Backtest: BacktestSummary{
			CandlesFile:    cfg.Backtest.CandlesFile,
			InitialBalance: cfg.Backtest.InitialBalance,
			Lookback:       cfg.Backtest.LookbackPeriod,
			ReportDir:      cfg.Backtest.ReportDir,
		},
		Journal: "off",
	}
	if br, ok := strat.(*strategy.BandReversion); ok {
		p := br.Params()
		s.Strategy.Params = &p
		s.Strategy.Ratios = br.Ratios()
	}
	if cfg.Notify.Telegram.Enabled {
		s.Live.Notifier = "telegram"
	}
	if cfg.Journal.Enabled {
		s.Journal = cfg.Journal.Path
	}
	return s
}

func (s *StartupSummary) Print(w io.Writer) {
	line := strings.Repeat("=", 72)
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "%*s\n", 36+len("STARTUP SUMMARY")/2, "STARTUP SUMMARY")
	fmt.Fprintln(w, line)

	fmt.Fprintf(w, "  mode      : %s\n", s.Mode)
	fmt.Fprintf(w, "  symbol    : %s on %s\n", s.Symbol, s.Exchange)
	fmt.Fprintf(w, "  leverage  : %dx, risk %.2f%% per entry\n", s.Trading.Leverage, s.Trading.RiskPercentage*100)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[STRATEGY]")
	fmt.Fprintf(w, "  name      : %s (lookback %d)\n", s.Strategy.Name, s.Strategy.Lookback)
	if p := s.Strategy.Params; p != nil {
		fmt.Fprintf(w, "  rsi       : %d (%g / %g)\n", p.RSIPeriod, p.Oversold, p.Overbought)
		fmt.Fprintf(w, "  bollinger : %d x %g\n", p.BollingerPeriod, p.BollingerK)
		fmt.Fprintf(w, "  volume    : %d\n", p.VolumePeriod)
		fmt.Fprintf(w, "  atr       : %d (sl x%g, tp x%g)\n", p.ATRPeriod, s.Strategy.Ratios.StopLoss, s.Strategy.Ratios.TakeProfit)
		if p.EMAFast > 0 && p.EMASlow > 0 {
			fmt.Fprintf(w, "  ema trend : %d / %d\n", p.EMAFast, p.EMASlow)
		}
	}
	fmt.Fprintln(w)

	if s.Mode == ModeBacktest {
		fmt.Fprintln(w, "[BACKTEST]")
		fmt.Fprintf(w, "  candles   : %s\n", s.Backtest.CandlesFile)
		fmt.Fprintf(w, "  balance   : %g\n", s.Backtest.InitialBalance)
		fmt.Fprintf(w, "  lookback  : %d\n", s.Backtest.Lookback)
		fmt.Fprintf(w, "  report    : %s\n", orDash(s.Backtest.ReportDir))
	} else {
		fmt.Fprintln(w, "[LIVE]")
		fmt.Fprintf(w, "  interval  : %s\n", s.Live.Interval)
		fmt.Fprintf(w, "  cooldown  : %s\n", s.Live.Cooldown)
		fmt.Fprintf(w, "  http      : %s\n", orDash(s.Live.HTTPAddr))
		fmt.Fprintf(w, "  notifier  : %s\n", s.Live.Notifier)
	}
	fmt.Fprintf(w, "  journal   : %s\n", s.Journal)
	fmt.Fprintln(w, line)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
