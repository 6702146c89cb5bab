package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"scalpbot/internal/backtest"
	brcfg "scalpbot/internal/config"
	"scalpbot/internal/gateway"
	"scalpbot/internal/gateway/binance"
	"scalpbot/internal/gateway/notifier"
	"scalpbot/internal/gateway/paper"
	"scalpbot/internal/logger"
	"scalpbot/internal/market"
	"scalpbot/internal/pkg/circuit"
	"scalpbot/internal/scheduler"
	"scalpbot/internal/store"
	"scalpbot/internal/store/sqlite"
	"scalpbot/internal/strategy"
	"scalpbot/internal/trader"
	livehttp "scalpbot/internal/transport/http/live"
)

type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModeLive     Mode = "live"
)

type AppBuilder struct {
	cfg  *brcfg.Config
	mode Mode

	strategies *strategy.Registry
	gateways   *gateway.Registry

	candlesFn  func(path string) ([]market.Candle, error)
	journalFn  func(brcfg.JournalConfig) (store.TradeJournal, error)
	notifierFn func(brcfg.NotifyConfig) notifier.TextNotifier
	registry   *prometheus.Registry
}

type AppBuilderOption func(*AppBuilder)

// WithGatewayRegistry replaces the exchange table, mostly for tests.
func WithGatewayRegistry(r *gateway.Registry) AppBuilderOption {
	return func(b *AppBuilder) { b.gateways = r }
}

// WithMetricsRegistry registers the engine collectors on reg instead of a
// fresh registry.
func WithMetricsRegistry(reg *prometheus.Registry) AppBuilderOption {
	return func(b *AppBuilder) { b.registry = reg }
}

func WithJournal(fn func(brcfg.JournalConfig) (store.TradeJournal, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.journalFn = fn }
}

func WithNotifier(fn func(brcfg.NotifyConfig) notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) { b.notifierFn = fn }
}

func NewAppBuilder(cfg *brcfg.Config, mode Mode, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		mode:       mode,
		strategies: strategy.DefaultRegistry(),
		gateways:   gateway.DefaultRegistry(),
		candlesFn:  backtest.LoadCandles,
		journalFn:  openJournal,
		notifierFn: buildNotifier,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg

	strat, err := b.strategies.New(cfg.Strategy.Spec())
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}

	candles, err := b.loadCandles()
	if err != nil {
		return nil, err
	}
	if err := b.checkLookback(strat.Lookback(), len(candles)); err != nil {
		return nil, err
	}

	gw, err := b.gateways.New(cfg, gateway.Deps{Candles: candles})
	if err != nil {
		return nil, fmt.Errorf("exchange: %w", err)
	}

	reg := b.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	metrics := trader.NewMetrics(reg)

	var journal store.TradeJournal
	if cfg.Journal.Enabled {
		if journal, err = b.journalFn(cfg.Journal); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}

	var notify notifier.TextNotifier = notifier.Nop{}
	if b.mode == ModeLive {
		notify = b.notifierFn(cfg.Notify)
	}

	engine, err := trader.New(gw, strat, trader.Settings{
		Symbol:         cfg.Trading.Symbol(),
		QuoteAsset:     strings.ToUpper(cfg.Trading.CounterAsset),
		Leverage:       cfg.Trading.Leverage,
		RiskPercentage: cfg.Trading.RiskPercentage,
		Cooldown:       cfg.Live.Cooldown(),
	}, trader.Options{
		Metrics:  metrics,
		Journal:  journal,
		Notifier: notify,
	})
	if err != nil {
		closeJournal(journal)
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		mode:     b.mode,
		engine:   engine,
		strategy: strat,
		gateway:  gw,
		journal:  journal,
		candles:  candles,
		Summary:  buildSummary(cfg, b.mode, strat, gw),
	}

	switch b.mode {
	case ModeBacktest:
		app.runner, err = backtest.NewRunner(engine, backtest.Config{
			Strategy:       strat.Name(),
			Symbol:         cfg.Trading.Symbol(),
			InitialBalance: cfg.Backtest.InitialBalance,
			Lookback:       cfg.Backtest.LookbackPeriod,
		})
		if err != nil {
			closeJournal(journal)
			return nil, err
		}
	case ModeLive:
		app.scheduler = scheduler.NewSerialScheduler("live-cycle", cfg.Live.Interval())
		app.scheduler.OnResult = func(err error, took time.Duration) {
			if err != nil {
				logger.Debugf("live cycle failed after %s", took)
			}
		}
		if addr := strings.TrimSpace(cfg.App.HTTPAddr); addr != "" {
			srvCfg := livehttp.ServerConfig{Addr: addr, Status: engine, Gatherer: reg}
			if journal != nil {
				srvCfg.Trades = journal
			}
			if app.liveHTTP, err = livehttp.NewServer(srvCfg); err != nil {
				closeJournal(journal)
				return nil, err
			}
		}
	default:
		closeJournal(journal)
		return nil, fmt.Errorf("unknown mode %q", b.mode)
	}
	return app, nil
}

// checkLookback rejects a candle window shorter than the strategy lookback.
func (b *AppBuilder) checkLookback(need, loaded int) error {
	cfg := b.cfg
	if b.mode == ModeBacktest {
		if cfg.Backtest.LookbackPeriod < need {
			return fmt.Errorf("backtest.lookback_period %d is shorter than the %d candles strategy %s needs",
				cfg.Backtest.LookbackPeriod, need, cfg.Strategy.Key)
		}
		return nil
	}
	switch {
	case strings.EqualFold(cfg.Exchange.Name, paper.Name):
		w := cfg.Exchange.Paper.Window
		if w <= 0 || w > loaded {
			w = loaded
		}
		if w < need {
			return fmt.Errorf("exchange.paper.window %d is shorter than the %d candles strategy %s needs",
				w, need, cfg.Strategy.Key)
		}
	case strings.EqualFold(cfg.Exchange.Name, binance.Name):
		got := cfg.Exchange.Binance.Limit
		if got <= 0 {
			return nil
		}
		// the unclosed kline is dropped after the fetch
		if cfg.Exchange.Binance.DropUnclosed {
			got--
		}
		if got < need {
			return fmt.Errorf("exchange.binance.limit %d is shorter than the %d candles strategy %s needs",
				cfg.Exchange.Binance.Limit, need, cfg.Strategy.Key)
		}
	}
	return nil
}

// loadCandles reads the history file for backtests and for the paper feed.
func (b *AppBuilder) loadCandles() ([]market.Candle, error) {
	needed := b.mode == ModeBacktest || strings.EqualFold(b.cfg.Exchange.Name, paper.Name)
	if !needed {
		return nil, nil
	}
	path := strings.TrimSpace(b.cfg.Backtest.CandlesFile)
	if path == "" {
		return nil, fmt.Errorf("backtest.candles_file is required in %s mode", b.mode)
	}
	candles, err := b.candlesFn(path)
	if err != nil {
		return nil, err
	}
	return candles, nil
}

func openJournal(cfg brcfg.JournalConfig) (store.TradeJournal, error) {
	return sqlite.NewJournalStore(cfg.Path)
}

func buildNotifier(cfg brcfg.NotifyConfig) notifier.TextNotifier {
	if !cfg.Telegram.Enabled {
		return notifier.Nop{}
	}
	breaker := circuit.New("telegram", cfg.BreakerThreshold, time.Duration(cfg.BreakerTimeoutSeconds)*time.Second)
	breaker.OnChange(func(name string, from, to circuit.State) {
		logger.Warnf("notifier %s breaker %s -> %s", name, from, to)
	})
	return notifier.NewGuarded(notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID), breaker)
}

func closeJournal(j store.TradeJournal) {
	if j == nil {
		return
	}
	if err := j.Close(); err != nil {
		logger.Warnf("close journal: %v", err)
	}
}

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *brcfg.Config, mode Mode) *AppBuilder {
	return NewAppBuilder(cfg, mode)
}
