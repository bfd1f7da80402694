package coinledger

import (
	"slices"
)

// DefaultReportingCurrency is the fiat unit every value is expressed in
// unless a run is configured otherwise.
const DefaultReportingCurrency = "JPY"

// fiatCurrencies is the set of fiat units that can appear in events. Each is
// priced against the reporting currency through a daily forex history.
var fiatCurrencies = map[string]struct{}{
	"AUD": {}, "CNY": {}, "EUR": {}, "HKD": {}, "IDR": {},
	"INR": {}, "JPY": {}, "PHP": {}, "SGD": {}, "USD": {},
}

// pricing names the venue and quote currency whose candle history prices a
// crypto asset. Assets quoted in a non-reporting fiat (e.g. XMR in USD) are
// resolved through that fiat's own rate.
type pricing struct {
	Venue string
	Quote string
}

// cryptoCurrencies is the universe of crypto assets and where each is priced.
var cryptoCurrencies = map[string]pricing{
	"BCH":       {"quoinex", "JPY"},
	"BTC":       {"quoinex", "JPY"},
	"ETH":       {"quoinex", "JPY"},
	"QASH":      {"quoinex", "JPY"},
	"XMR":       {"bitfinex", "USD"},
	"XRP":       {"bitfinex", "USD"},
	"JPYZ":      {"zaif", "JPY"},
	"MONA":      {"zaif", "JPY"},
	"PEPECASH":  {"zaif", "JPY"},
	"XEM":       {"zaif", "JPY"},
	"ZAIF":      {"zaif", "JPY"},
	"ERC20.CMS": {"zaif", "JPY"},
}

// currencyAliases maps exchange-specific codes to their canonical code.
var currencyAliases = map[string]string{
	"QSH": "QASH",
}

// CanonicalCurrency maps an exchange-specific currency code to its canonical
// form. Unknown codes pass through unchanged (validation is separate).
func CanonicalCurrency(c string) string {
	if canonical, ok := currencyAliases[c]; ok {
		return canonical
	}
	return c
}

// IsFiat reports whether the canonical code c is a known fiat currency.
func IsFiat(c string) bool {
	_, ok := fiatCurrencies[c]
	return ok
}

// IsCrypto reports whether the canonical code c is a known crypto asset.
func IsCrypto(c string) bool {
	_, ok := cryptoCurrencies[c]
	return ok
}

// ValidateCurrency checks that the canonical code c belongs to the configured
// fiat/crypto universe.
func ValidateCurrency(c string) error {
	if IsFiat(c) || IsCrypto(c) {
		return nil
	}
	return UnknownCurrencyError{Currency: c}
}

// Currencies returns the sorted universe of known currency codes.
func Currencies() []string {
	all := make([]string, 0, len(fiatCurrencies)+len(cryptoCurrencies))
	for c := range fiatCurrencies {
		all = append(all, c)
	}
	for c := range cryptoCurrencies {
		all = append(all, c)
	}
	slices.Sort(all)
	return all
}
