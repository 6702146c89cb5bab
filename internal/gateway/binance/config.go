package binance

import (
	"strings"
	"time"
)

const (
	defaultBaseURL  = "https://fapi.binance.com"
	defaultInterval = "1m"
	defaultLimit    = 500
	maxKlineLimit   = 1500
)

type Config struct {
	APIKey      string
	SecretKey   string
	RESTBaseURL string
	HTTPTimeout time.Duration

	// Asset and CounterAsset form the futures symbol, e.g. DOGE + USDT.
	Asset        string
	CounterAsset string
	Interval     string
	Limit        int
	// DropUnclosed removes the still forming candle from FetchCandles.
	DropUnclosed bool

	ProxyEnabled bool
	RESTProxyURL string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimRight(strings.TrimSpace(out.RESTBaseURL), "/")
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = defaultBaseURL
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	out.Asset = strings.ToUpper(strings.TrimSpace(out.Asset))
	out.CounterAsset = strings.ToUpper(strings.TrimSpace(out.CounterAsset))
	if out.CounterAsset == "" {
		out.CounterAsset = "USDT"
	}
	out.Interval = strings.TrimSpace(out.Interval)
	if out.Interval == "" {
		out.Interval = defaultInterval
	}
	if out.Limit <= 0 {
		out.Limit = defaultLimit
	}
	if out.Limit > maxKlineLimit {
		out.Limit = maxKlineLimit
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	return out
}
