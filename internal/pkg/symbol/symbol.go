// Package symbol handles the traded pair in its BASE/QUOTE form and in the
// concatenated form futures exchanges use.
package symbol

import (
	"fmt"
	"strings"
)

// Pair is one traded market, e.g. DOGE/USDT.
type Pair struct {
	Base  string
	Quote string
}

// knownQuotes resolves concatenated symbols, longest suffix first.
var knownQuotes = []string{"FDUSD", "USDT", "USDC", "BUSD", "TUSD", "BTC", "ETH", "BNB"}

// NewPair upper-cases both assets and rejects anything that is not
// alphanumeric.
func NewPair(base, quote string) (Pair, error) {
	p := Pair{Base: clean(base), Quote: clean(quote)}
	if !p.Valid() {
		return Pair{}, fmt.Errorf("invalid pair %q/%q", base, quote)
	}
	return p, nil
}

// Parse accepts "DOGE/USDT", "DOGEUSDT" and the settlement form
// "DOGE/USDT:USDT". Unknown shapes yield the zero Pair.
func Parse(s string) Pair {
	s = clean(s)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	if base, quote, ok := strings.Cut(s, "/"); ok {
		p := Pair{Base: strings.TrimSpace(base), Quote: strings.TrimSpace(quote)}
		if p.Valid() {
			return p
		}
		return Pair{}
	}
	for _, q := range knownQuotes {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return Pair{Base: s[:len(s)-len(q)], Quote: q}
		}
	}
	return Pair{}
}

func (p Pair) Valid() bool { return alnum(p.Base) && alnum(p.Quote) }

func (p Pair) String() string {
	if !p.Valid() {
		return ""
	}
	return p.Base + "/" + p.Quote
}

// Futures is the exchange symbol, e.g. DOGEUSDT.
func (p Pair) Futures() string {
	if !p.Valid() {
		return ""
	}
	return p.Base + p.Quote
}

func clean(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func alnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
