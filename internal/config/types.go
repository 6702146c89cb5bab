package config

import (
	"strings"
	"time"

	"scalpbot/internal/strategy"
)

// Config is the single configuration document of the bot.
type Config struct {
	App      AppConfig      `toml:"app"`
	Trading  TradingConfig  `toml:"trading"`
	Strategy StrategyConfig `toml:"strategy"`
	Exchange ExchangeConfig `toml:"exchange"`
	Backtest BacktestConfig `toml:"backtest"`
	Live     LiveConfig     `toml:"live"`
	Journal  JournalConfig  `toml:"journal"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	LogLevel  string `toml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `toml:"log_format" validate:"omitempty,oneof=text json"`
	// HTTPAddr serves the live status API; empty disables it.
	HTTPAddr string `toml:"http_addr"`
}

// TradingConfig describes the single market traded and the risk per entry.
type TradingConfig struct {
	Asset          string  `toml:"asset" validate:"required"`
	CounterAsset   string  `toml:"counter_asset" validate:"required"`
	Leverage       int     `toml:"leverage" validate:"gte=1,lte=125"`
	RiskPercentage float64 `toml:"risk_percentage" validate:"gt=0,lte=1"`
}

// Symbol returns the futures symbol, e.g. DOGEUSDT.
func (t TradingConfig) Symbol() string {
	return strings.ToUpper(t.Asset + t.CounterAsset)
}

type StrategyConfig struct {
	Key             string  `toml:"key"`
	StopLossRatio   float64 `toml:"stop_loss_ratio"`
	TakeProfitRatio float64 `toml:"take_profit_ratio"`
	// Params overrides individual preset values; zero fields keep the preset.
	Params strategy.Params `toml:"params"`
}

func (s StrategyConfig) Spec() strategy.Spec {
	spec := strategy.Spec{
		Key:    s.Key,
		Ratios: strategy.Ratios{StopLoss: s.StopLossRatio, TakeProfit: s.TakeProfitRatio},
	}
	if s.Params != (strategy.Params{}) {
		p := s.Params
		spec.Overrides = &p
	}
	return spec
}

type ExchangeConfig struct {
	Name    string        `toml:"name"`
	Binance BinanceConfig `toml:"binance"`
	Paper   PaperConfig   `toml:"paper"`
}

type BinanceConfig struct {
	APIKey             string      `toml:"api_key"`
	APISecret          string      `toml:"api_secret"`
	BaseURL            string      `toml:"base_url" validate:"omitempty,url"`
	Interval           string      `toml:"interval"`
	Limit              int         `toml:"limit" validate:"gte=0,lte=1500"`
	DropUnclosed       bool        `toml:"drop_unclosed"`
	HTTPTimeoutSeconds int         `toml:"http_timeout_seconds" validate:"gte=0"`
	Proxy              ProxyConfig `toml:"proxy"`
}

func (b BinanceConfig) HTTPTimeout() time.Duration {
	return time.Duration(b.HTTPTimeoutSeconds) * time.Second
}

type ProxyConfig struct {
	Enabled bool   `toml:"enabled"`
	RESTURL string `toml:"rest_url"`
}

// PaperConfig feeds the simulated gateway with static filters and a balance.
type PaperConfig struct {
	Balance           float64 `toml:"balance" validate:"gte=0"`
	PricePrecision    int     `toml:"price_precision" validate:"gte=0"`
	QuantityPrecision int     `toml:"quantity_precision" validate:"gte=0"`
	MinQty            float64 `toml:"min_qty" validate:"gte=0"`
	MinNotional       float64 `toml:"min_notional" validate:"gte=0"`
	// Window is the number of candles returned per fetch.
	Window int `toml:"window" validate:"gte=0"`
}

type BacktestConfig struct {
	InitialBalance float64 `toml:"initial_balance" validate:"gt=0"`
	CandlesFile    string  `toml:"candles_file"`
	LookbackPeriod int     `toml:"lookback_period" validate:"gt=0"`
	// ReportDir receives report.yaml and equity.html; empty disables export.
	ReportDir string `toml:"report_dir"`
	// RenderPNG also screenshots the chart with headless Chrome.
	RenderPNG bool `toml:"render_png"`
}

type LiveConfig struct {
	IntervalSeconds int `toml:"interval_seconds" validate:"gt=0"`
	CooldownSeconds int `toml:"cooldown_seconds" validate:"gte=0"`
}

func (l LiveConfig) Interval() time.Duration {
	return time.Duration(l.IntervalSeconds) * time.Second
}

func (l LiveConfig) Cooldown() time.Duration {
	return time.Duration(l.CooldownSeconds) * time.Second
}

// JournalConfig enables the write-only trade journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type NotifyConfig struct {
	Telegram              TelegramConfig `toml:"telegram"`
	BreakerThreshold      int            `toml:"breaker_threshold" validate:"gte=0"`
	BreakerTimeoutSeconds int            `toml:"breaker_timeout_seconds" validate:"gte=0"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet tracks the dotted paths set explicitly in the config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault fills one field unless the key was set explicitly.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
