package strategy

import (
	"fmt"
	"sort"
	"strings"
)

const (
	KeyConservative = "conservative"
	KeyScalping     = "scalping"
)

// ConservativeParams uses slower periods and stricter RSI thresholds.
func ConservativeParams() Params {
	return Params{
		RSIPeriod:       10,
		BollingerPeriod: 10,
		BollingerK:      2,
		VolumePeriod:    20,
		ATRPeriod:       14,
		Oversold:        25,
		Overbought:      75,
	}
}

// ScalpingParams reacts faster: short RSI/Bollinger windows and a 5-period ATR.
func ScalpingParams() Params {
	return Params{
		RSIPeriod:       5,
		BollingerPeriod: 7,
		BollingerK:      2,
		VolumePeriod:    20,
		ATRPeriod:       5,
		Oversold:        30,
		Overbought:      70,
	}
}

// Spec selects and tunes a registered strategy.
type Spec struct {
	Key       string
	Ratios    Ratios
	Overrides *Params
}

// Constructor builds a variant from its spec.
type Constructor func(spec Spec) (Strategy, error)

// Registry maps configuration keys to constructors. It is filled once at
// startup and only read afterwards.
type Registry struct {
	ctors   map[string]Constructor
	aliases map[string]string
}

func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor), aliases: make(map[string]string)}
}

// Register adds a constructor under key and optional aliases. A later
// registration for the same key replaces the earlier one.
func (r *Registry) Register(key string, ctor Constructor, aliases ...string) {
	key = normalizeKey(key)
	if key == "" || ctor == nil {
		return
	}
	r.ctors[key] = ctor
	for _, a := range aliases {
		if a = normalizeKey(a); a != "" {
			r.aliases[a] = key
		}
	}
}

func (r *Registry) New(spec Spec) (Strategy, error) {
	key := normalizeKey(spec.Key)
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	ctor, ok := r.ctors[key]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %s)", spec.Key, strings.Join(r.Keys(), ", "))
	}
	spec.Key = key
	return ctor(spec)
}

func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultRegistry registers the built-in variants.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KeyConservative, presetConstructor(KeyConservative, ConservativeParams), "bbrsi", "bbrsistrategy")
	r.Register(KeyScalping, presetConstructor(KeyScalping, ScalpingParams), "scalping_bb_rsi", "scalpingbbrsistrategy")
	return r
}

func presetConstructor(name string, preset func() Params) Constructor {
	return func(spec Spec) (Strategy, error) {
		params := preset()
		if spec.Overrides != nil {
			params = mergeParams(params, *spec.Overrides)
		}
		return NewBandReversion(name, params, spec.Ratios)
	}
}

// mergeParams applies every non-zero override on top of base.
func mergeParams(base, o Params) Params {
	if o.RSIPeriod > 0 {
		base.RSIPeriod = o.RSIPeriod
	}
	if o.BollingerPeriod > 0 {
		base.BollingerPeriod = o.BollingerPeriod
	}
	if o.BollingerK > 0 {
		base.BollingerK = o.BollingerK
	}
	if o.VolumePeriod > 0 {
		base.VolumePeriod = o.VolumePeriod
	}
	if o.ATRPeriod > 0 {
		base.ATRPeriod = o.ATRPeriod
	}
	if o.Oversold > 0 {
		base.Oversold = o.Oversold
	}
	if o.Overbought > 0 {
		base.Overbought = o.Overbought
	}
	if o.EMAFast > 0 {
		base.EMAFast = o.EMAFast
	}
	if o.EMASlow > 0 {
		base.EMASlow = o.EMASlow
	}
	return base
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
