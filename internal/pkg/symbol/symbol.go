// Package symbol normalizes trading pair notation. Config and the parser may
// say "btc/usdt"; the exchange wants "BTCUSDT".
package symbol

import "strings"

// Symbol is a parsed trading pair.
type Symbol struct {
	Base  string
	Quote string
}

// Exchange renders the pair in Binance notation.
func (s Symbol) Exchange() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

// knownQuotes are checked longest-first when the pair carries no separator.
var knownQuotes = []string{"USDT", "USDC", "BUSD", "TUSD", "BTC", "ETH", "BNB"}

// Parse accepts "BTC/USDT", "btc-usdt" or "BTCUSDT".
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	for _, sep := range []string{"/", "-", "_"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			return Symbol{Base: strings.TrimSpace(parts[0]), Quote: strings.TrimSpace(parts[1])}
		}
	}
	for _, quote := range knownQuotes {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: strings.TrimSuffix(s, quote), Quote: quote}
		}
	}
	return Symbol{Base: s}
}

// Normalize renders any accepted notation in exchange form. Input that cannot
// be split passes through upper-cased so the exchange can reject it itself.
func Normalize(s string) string {
	sym := Parse(s)
	if out := sym.Exchange(); out != "" {
		return out
	}
	return strings.ToUpper(strings.TrimSpace(s))
}
