// Package app wires configuration, exchange, strategy and engine together and
// runs either a backtest or the live loop.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"scalpbot/internal/backtest"
	brcfg "scalpbot/internal/config"
	"scalpbot/internal/gateway/exchange"
	"scalpbot/internal/logger"
	"scalpbot/internal/market"
	"scalpbot/internal/scheduler"
	"scalpbot/internal/store"
	"scalpbot/internal/strategy"
	"scalpbot/internal/trader"
	livehttp "scalpbot/internal/transport/http/live"
)

type App struct {
	cfg      *brcfg.Config
	mode     Mode
	engine   *trader.Engine
	strategy strategy.Strategy
	gateway  exchange.Gateway
	journal  store.TradeJournal
	candles  []market.Candle

	runner    *backtest.Runner
	scheduler *scheduler.SerialScheduler
	liveHTTP  *livehttp.Server
	watcher   *brcfg.Watcher

	Summary    *StartupSummary
	LastReport *backtest.Report
}

// NewApp builds the application for mode without starting it.
func NewApp(cfg *brcfg.Config, mode Mode) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, mode)
}

// WatchConfig hot-reloads the log level from path while the app runs.
func (a *App) WatchConfig(path string) error {
	w, err := brcfg.Watch(path, a.cfg)
	if err != nil {
		return err
	}
	w.Subscribe(func(c *brcfg.Config) {
		if logger.SetLevel(c.App.LogLevel) {
			logger.Infof("log level set to %s", c.App.LogLevel)
		}
	})
	a.watcher = w
	return nil
}

func (a *App) Engine() *trader.Engine { return a.engine }

func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.engine == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()
	if a.Summary != nil {
		a.Summary.Print(os.Stdout)
	}
	if err := a.engine.Configure(ctx); err != nil {
		return fmt.Errorf("configure %s: %w", a.gateway.Name(), err)
	}
	if a.mode == ModeBacktest {
		return a.runBacktest(ctx)
	}
	return a.runLive(ctx)
}

func (a *App) runBacktest(ctx context.Context) error {
	rep, err := a.runner.Run(ctx, a.candles)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}
	a.LastReport = &rep
	logger.InfoBlock(rep.Summary())

	dir := strings.TrimSpace(a.cfg.Backtest.ReportDir)
	if dir == "" {
		return nil
	}
	path, err := backtest.WriteYAML(dir, rep)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logger.Infof("report written to %s", path)

	chart := backtest.ChartOptions{PNG: a.cfg.Backtest.RenderPNG}
	if br, ok := a.strategy.(*strategy.BandReversion); ok {
		chart.BollingerPeriod = br.Params().BollingerPeriod
		chart.BollingerK = br.Params().BollingerK
	}
	paths, err := backtest.WriteCharts(ctx, dir, rep, a.candles, chart)
	if err != nil {
		// the html page is still usable when only the screenshot failed
		logger.Warnf("chart export: %v", err)
	}
	for _, p := range paths {
		logger.Infof("chart written to %s", p)
	}
	return nil
}

func (a *App) runLive(ctx context.Context) error {
	logger.Infof("starting live trading on %s", a.gateway.Name())
	group, ctx := errgroup.WithContext(ctx)
	if a.liveHTTP != nil {
		group.Go(func() error {
			logger.Infof("status api listening on %s", a.liveHTTP.Addr())
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.scheduler.Start(ctx, a.liveCycle)
	})
	return group.Wait()
}

func (a *App) liveCycle(ctx context.Context) error {
	_, err := a.engine.LiveCycle(ctx)
	return err
}

// Close releases the journal. It is safe to call more than once.
func (a *App) Close() {
	if a == nil {
		return
	}
	closeJournal(a.journal)
	a.journal = nil
}
