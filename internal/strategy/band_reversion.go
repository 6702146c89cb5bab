package strategy

import (
	"fmt"

	"scalpbot/internal/analysis/indicator"
	"scalpbot/internal/market"
)

// Params are the tunables of the Bollinger/RSI/volume reversion rule.
type Params struct {
	RSIPeriod       int     `json:"rsi_period" toml:"rsi_period"`
	BollingerPeriod int     `json:"bollinger_period" toml:"bollinger_period"`
	BollingerK      float64 `json:"bollinger_k" toml:"bollinger_k"`
	VolumePeriod    int     `json:"volume_period" toml:"volume_period"`
	ATRPeriod       int     `json:"atr_period" toml:"atr_period"`
	Oversold        float64 `json:"oversold" toml:"oversold"`
	Overbought      float64 `json:"overbought" toml:"overbought"`
	// EMAFast/EMASlow enable trend confirmation when both are positive.
	EMAFast int `json:"ema_fast" toml:"ema_fast"`
	EMASlow int `json:"ema_slow" toml:"ema_slow"`
}

func (p Params) trendFilter() bool { return p.EMAFast > 0 && p.EMASlow > 0 }

func (p Params) validate() error {
	for name, v := range map[string]int{
		"rsi_period":       p.RSIPeriod,
		"bollinger_period": p.BollingerPeriod,
		"volume_period":    p.VolumePeriod,
		"atr_period":       p.ATRPeriod,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be > 0 (got %d)", ErrInvalidConfig, name, v)
		}
	}
	if !(p.BollingerK > 0) {
		return fmt.Errorf("%w: bollinger_k must be > 0 (got %v)", ErrInvalidConfig, p.BollingerK)
	}
	if p.Oversold <= 0 || p.Overbought >= 100 || p.Oversold >= p.Overbought {
		return fmt.Errorf("%w: thresholds need 0 < oversold < overbought < 100 (got %v/%v)", ErrInvalidConfig, p.Oversold, p.Overbought)
	}
	if (p.EMAFast > 0) != (p.EMASlow > 0) {
		return fmt.Errorf("%w: ema_fast and ema_slow must be set together", ErrInvalidConfig)
	}
	return nil
}

// BandReversion buys a close below the lower band on oversold RSI with above
// average volume, and sells the overbought mirror.
type BandReversion struct {
	name   string
	params Params
	ratios Ratios
}

func NewBandReversion(name string, params Params, ratios Ratios) (*BandReversion, error) {
	if err := ratios.validate(); err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &BandReversion{name: name, params: params, ratios: ratios}, nil
}

func (s *BandReversion) Name() string { return s.name }

func (s *BandReversion) Params() Params { return s.params }

func (s *BandReversion) Ratios() Ratios { return s.ratios }

func (s *BandReversion) Lookback() int {
	p := s.params
	n := max(p.RSIPeriod+1, p.BollingerPeriod, p.VolumePeriod, p.ATRPeriod+1)
	if p.trendFilter() {
		n = max(n, p.EMAFast, p.EMASlow)
	}
	return n
}

func (s *BandReversion) Signal(w market.Window) (market.Signal, error) {
	last, ok := w.Last()
	if !ok {
		return market.SignalHold, &indicator.InsufficientDataError{Indicator: s.name, Required: s.Lookback(), Actual: 0}
	}
	p := s.params
	rsi, err := indicator.RSI(w, p.RSIPeriod)
	if err != nil {
		return market.SignalHold, err
	}
	bands, err := indicator.BollingerBands(w, p.BollingerPeriod, p.BollingerK)
	if err != nil {
		return market.SignalHold, err
	}
	avgVolume, err := indicator.AverageVolume(w, p.VolumePeriod)
	if err != nil {
		return market.SignalHold, err
	}
	trend := 0
	if p.trendFilter() {
		fast, err := indicator.EMA(w, p.EMAFast)
		if err != nil {
			return market.SignalHold, err
		}
		slow, err := indicator.EMA(w, p.EMASlow)
		if err != nil {
			return market.SignalHold, err
		}
		switch {
		case fast > slow:
			trend = 1
		case fast < slow:
			trend = -1
		}
	}

	busy := last.Volume > avgVolume
	if busy && last.Close < bands.Lower && rsi < p.Oversold && (!p.trendFilter() || trend > 0) {
		return market.SignalBuy, nil
	}
	if busy && last.Close > bands.Upper && rsi > p.Overbought && (!p.trendFilter() || trend < 0) {
		return market.SignalSell, nil
	}
	return market.SignalHold, nil
}

func (s *BandReversion) Distances(w market.Window) (Distances, error) {
	atr, err := indicator.ATR(w, s.params.ATRPeriod)
	if err != nil {
		return Distances{}, err
	}
	return Distances{
		StopLoss:   atr * s.ratios.StopLoss,
		TakeProfit: atr * s.ratios.TakeProfit,
	}, nil
}
