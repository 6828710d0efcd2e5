// market/instruments.go
package market

import (
	"sort"
	"strings"
)

type AssetClass string

const (
	Forex  AssetClass = "forex"
	Crypto AssetClass = "crypto"
	Metal  AssetClass = "metal"
)

type InstrumentMeta struct {
	Name          string     `json:"name"`
	BaseCurrency  string     `json:"base"`
	QuoteCurrency string     `json:"quote"`
	Class         AssetClass `json:"class"`
}

func pair(base, quote string, class AssetClass) InstrumentMeta {
	return InstrumentMeta{
		Name:          base + "/" + quote,
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Class:         class,
	}
}

// Instruments is the list of pairs offered when recording a trade.
var Instruments = map[string]InstrumentMeta{
	"EUR/USD":   pair("EUR", "USD", Forex),
	"USD/JPY":   pair("USD", "JPY", Forex),
	"GBP/USD":   pair("GBP", "USD", Forex),
	"USD/CHF":   pair("USD", "CHF", Forex),
	"AUD/USD":   pair("AUD", "USD", Forex),
	"USD/CAD":   pair("USD", "CAD", Forex),
	"NZD/USD":   pair("NZD", "USD", Forex),
	"EUR/JPY":   pair("EUR", "JPY", Forex),
	"GBP/JPY":   pair("GBP", "JPY", Forex),
	"XAU/USD":   pair("XAU", "USD", Metal),
	"BTC/USDT":  pair("BTC", "USDT", Crypto),
	"ETH/USDT":  pair("ETH", "USDT", Crypto),
	"LTC/USDT":  pair("LTC", "USDT", Crypto),
	"ADA/USDT":  pair("ADA", "USDT", Crypto),
	"DOGE/USDT": pair("DOGE", "USDT", Crypto),
	"SOL/USDT":  pair("SOL", "USDT", Crypto),
	"DOT/USDT":  pair("DOT", "USDT", Crypto),
	"AVAX/USDT": pair("AVAX", "USDT", Crypto),
}

// NormalizeInstrument trims the symbol. Spellings of a known pair, in any
// case and with the OANDA underscore separator (eur_usd), map to the
// canonical name. Anything else is returned as typed.
func NormalizeInstrument(s string) string {
	s = strings.TrimSpace(s)
	canon := strings.ReplaceAll(strings.ToUpper(s), "_", "/")
	if _, ok := Instruments[canon]; ok {
		return canon
	}
	return s
}

// Lookup returns the metadata for a known instrument.
func Lookup(name string) (InstrumentMeta, bool) {
	m, ok := Instruments[NormalizeInstrument(name)]
	return m, ok
}

func IsKnown(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// InstrumentNames returns the allow-list sorted alphabetically.
func InstrumentNames() []string {
	names := make([]string, 0, len(Instruments))
	for n := range Instruments {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// InstrumentList returns the metadata of every known pair, sorted by name.
func InstrumentList() []InstrumentMeta {
	names := InstrumentNames()
	out := make([]InstrumentMeta, len(names))
	for i, n := range names {
		out[i] = Instruments[n]
	}
	return out
}
