package config

import (
	"strings"

	"scalpbot/internal/strategy"
)

const (
	defaultAppLogLevel        = "info"
	defaultAppLogFormat       = "text"
	defaultAppHTTPAddr        = ":9991"
	defaultAsset              = "DOGE"
	defaultCounterAsset       = "USDT"
	defaultLeverage           = 15
	defaultRiskPercentage     = 0.02
	defaultStrategyKey        = strategy.KeyScalping
	defaultStopLossRatio      = 1.5
	defaultTakeProfitRatio    = 2
	defaultExchangeName       = "binance"
	defaultBinanceBaseURL     = "https://fapi.binance.com"
	defaultBinanceInterval    = "1m"
	defaultBinanceLimit       = 500
	defaultBinanceHTTPTimeout = 15
	defaultPaperBalance       = 100
	defaultPaperPricePrec     = 5
	defaultPaperMinQty        = 1
	defaultPaperMinNotional   = 5
	defaultInitialBalance     = 100
	defaultCandlesFile        = "database/dogeusdt1m.json"
	defaultLookbackPeriod     = 200
	defaultLiveInterval       = 3
	defaultLiveCooldown       = 60
	defaultJournalPath        = "data/journal.db"
	defaultBreakerThreshold   = 3
	defaultBreakerTimeout     = 300
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.Live.applyDefaults(keys)
	c.Journal.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
	a.LogLevel = strings.ToLower(strings.TrimSpace(a.LogLevel))
	a.LogFormat = strings.ToLower(strings.TrimSpace(a.LogFormat))
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("trading.asset", &t.Asset, defaultAsset),
		stringFieldDefault("trading.counter_asset", &t.CounterAsset, defaultCounterAsset),
		intFieldDefault("trading.leverage", &t.Leverage, defaultLeverage),
		floatFieldDefault("trading.risk_percentage", &t.RiskPercentage, defaultRiskPercentage),
	)
	t.Asset = strings.ToUpper(strings.TrimSpace(t.Asset))
	t.CounterAsset = strings.ToUpper(strings.TrimSpace(t.CounterAsset))
}

// Ratios are only defaulted when absent so an explicit 0 is rejected when
// the strategy is built.
func (s *StrategyConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("strategy.key", &s.Key, defaultStrategyKey),
		fieldDefault{
			key:   "strategy.stop_loss_ratio",
			apply: func() { s.StopLossRatio = defaultStopLossRatio },
		},
		fieldDefault{
			key:   "strategy.take_profit_ratio",
			apply: func() { s.TakeProfitRatio = defaultTakeProfitRatio },
		},
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("exchange.name", &e.Name, defaultExchangeName),
		stringFieldDefault("exchange.binance.base_url", &e.Binance.BaseURL, defaultBinanceBaseURL),
		stringFieldDefault("exchange.binance.interval", &e.Binance.Interval, defaultBinanceInterval),
		intFieldDefault("exchange.binance.limit", &e.Binance.Limit, defaultBinanceLimit),
		intFieldDefault("exchange.binance.http_timeout_seconds", &e.Binance.HTTPTimeoutSeconds, defaultBinanceHTTPTimeout),
		floatFieldDefault("exchange.paper.balance", &e.Paper.Balance, defaultPaperBalance),
		fieldDefault{
			key:   "exchange.paper.price_precision",
			apply: func() { e.Paper.PricePrecision = defaultPaperPricePrec },
		},
		floatFieldDefault("exchange.paper.min_qty", &e.Paper.MinQty, defaultPaperMinQty),
		floatFieldDefault("exchange.paper.min_notional", &e.Paper.MinNotional, defaultPaperMinNotional),
	)
	e.Name = strings.ToLower(strings.TrimSpace(e.Name))
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("backtest.initial_balance", &b.InitialBalance, defaultInitialBalance),
		stringFieldDefault("backtest.candles_file", &b.CandlesFile, defaultCandlesFile),
		intFieldDefault("backtest.lookback_period", &b.LookbackPeriod, defaultLookbackPeriod),
	)
}

func (l *LiveConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("live.interval_seconds", &l.IntervalSeconds, defaultLiveInterval),
		fieldDefault{
			key:   "live.cooldown_seconds",
			apply: func() { l.CooldownSeconds = defaultLiveCooldown },
		},
	)
}

func (j *JournalConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("journal.path", &j.Path, defaultJournalPath),
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("notify.breaker_threshold", &n.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("notify.breaker_timeout_seconds", &n.BreakerTimeoutSeconds, defaultBreakerTimeout),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}
