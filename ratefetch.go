package coinledger

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

// This file pulls historical price samples into a Rates store. Fiat pairs
// come from the yahoo finance chart API, crypto pairs from the cryptowatch
// OHLC API which covers the venues the currency universe prices on. Both
// are keyless; responses go through the daily disk cache so re-running a
// fetch in the same day costs nothing.

// A RateFetcher downloads price histories for the currencies a ledger
// touches.
type RateFetcher struct {
	client *http.Client
}

// NewRateFetcher returns a fetcher with a daily-expiring disk cache.
func NewRateFetcher() *RateFetcher {
	return &RateFetcher{client: daily()}
}

// jfloats extracts a list of numbers from a JSON document at path. Entries
// that are not numbers (nulls in sparse yahoo series) come back as NaN
// markers via ok=false pairs, so the caller can keep indexes aligned.
func jfloats(jobj any, path string) ([]float64, []bool, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing %q: %w", path, err)
	}
	jlist, ok := jval.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("error parsing %q: not a list: %v", path, jval)
	}
	vals := make([]float64, len(jlist))
	oks := make([]bool, len(jlist))
	for i, v := range jlist {
		vals[i], oks[i] = v.(float64)
	}
	return vals, oks, nil
}

// FetchFiat downloads daily closes for a fiat pair like USD/JPY into the
// store's "yahoo" venue.
func (f *RateFetcher) FetchFiat(rates *Rates, currency, quote string, from, to time.Time) error {
	symbol := currency + quote + "=X"
	addr := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		url.PathEscape(symbol), from.Unix(), to.Unix())

	var jobj any
	if err := jwget(f.client, addr, &jobj); err != nil {
		return fmt.Errorf("error retrieving %s/%s: %w", currency, quote, err)
	}
	stamps, soks, err := jfloats(jobj, "$.chart.result[0].timestamp")
	if err != nil {
		return fmt.Errorf("error retrieving %s/%s: %w", currency, quote, err)
	}
	closes, coks, err := jfloats(jobj, "$.chart.result[0].indicators.quote[0].close")
	if err != nil {
		return fmt.Errorf("error retrieving %s/%s: %w", currency, quote, err)
	}
	if len(stamps) != len(closes) {
		return fmt.Errorf("error retrieving %s/%s: %d timestamps for %d closes", currency, quote, len(stamps), len(closes))
	}
	instrument := currency + "/" + quote
	for i := range stamps {
		if !soks[i] || !coks[i] {
			continue
		}
		rates.Add("yahoo", instrument, time.Unix(int64(stamps[i]), 0).UTC(), Q(closes[i]))
	}
	return nil
}

// FetchCrypto downloads hourly candles for a crypto currency from its
// pricing venue. The store key matches what the Resolver looks up.
func (f *RateFetcher) FetchCrypto(rates *Rates, currency string, from, to time.Time) error {
	currency = CanonicalCurrency(currency)
	p, ok := cryptoCurrencies[currency]
	if !ok {
		return UnknownCurrencyError{Currency: currency}
	}
	pair := currency + p.Quote
	addr := fmt.Sprintf("https://api.cryptowat.ch/markets/%s/%s/ohlc?periods=3600&after=%d&before=%d",
		url.PathEscape(p.Venue), url.PathEscape(pair), from.Unix(), to.Unix())

	var jobj any
	if err := jwget(f.client, addr, &jobj); err != nil {
		return fmt.Errorf("error retrieving %s on %s: %w", currency, p.Venue, err)
	}
	path := `$.result["3600"]`
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return fmt.Errorf("error parsing %s on %s: %q %w", currency, p.Venue, path, err)
	}
	candles, ok := jval.([]any)
	if !ok {
		return fmt.Errorf("error parsing %s on %s: not a list: %v", currency, p.Venue, jval)
	}
	instrument := currency + "/" + p.Quote
	for _, jc := range candles {
		// candle layout: [closeTime, open, high, low, close, volume, quoteVolume]
		c, ok := jc.([]any)
		if !ok || len(c) < 5 {
			continue
		}
		stamp, sok := c[0].(float64)
		open, ook := c[1].(float64)
		if !sok || !ook || open == 0 {
			continue
		}
		// the open prices the start of the candle, shift the close stamp back
		at := time.Unix(int64(stamp), 0).Add(-time.Hour).UTC()
		rates.Add(p.Venue, instrument, at, Q(open))
	}
	return nil
}

// FetchAll downloads every series the currency universe needs over a range:
// one fiat pair per fiat currency against the reporting currency, and one
// venue series per crypto currency plus its quote fiat.
func (f *RateFetcher) FetchAll(rates *Rates, reporting string, from, to time.Time) error {
	reporting = CanonicalCurrency(reporting)
	for _, c := range Currencies() {
		switch {
		case c == reporting:
			continue
		case IsFiat(c):
			if err := f.FetchFiat(rates, c, reporting, from, to); err != nil {
				return err
			}
		default:
			if err := f.FetchCrypto(rates, c, from, to); err != nil {
				return err
			}
		}
	}
	return nil
}
