package coinledger

import (
	"sort"
	"time"
)

// JST is the time zone used to bucket crypto rate lookups and memoization.
var JST = time.FixedZone("JST", 9*3600)

// A Sample is one observed price point on a venue instrument.
type Sample struct {
	Time  time.Time
	Price Quantity
}

// A History is a time-ordered series of samples for one venue instrument.
type History struct {
	samples []Sample
}

// Append adds a sample, keeping the series sorted by time.
func (h *History) Append(s Sample) {
	h.samples = append(h.samples, s)
	if n := len(h.samples); n > 1 && s.Time.Before(h.samples[n-2].Time) {
		sort.SliceStable(h.samples, func(i, j int) bool { return h.samples[i].Time.Before(h.samples[j].Time) })
	}
}

// Len returns the number of samples.
func (h *History) Len() int { return len(h.samples) }

// LastBefore returns the latest sample at or before t.
func (h *History) LastBefore(t time.Time) (Sample, bool) {
	i := sort.Search(len(h.samples), func(i int) bool { return h.samples[i].Time.After(t) })
	if i == 0 {
		return Sample{}, false
	}
	return h.samples[i-1], true
}

// FirstAfter returns the earliest sample at or after t.
func (h *History) FirstAfter(t time.Time) (Sample, bool) {
	i := sort.Search(len(h.samples), func(i int) bool { return !h.samples[i].Time.Before(t) })
	if i == len(h.samples) {
		return Sample{}, false
	}
	return h.samples[i], true
}

type venueInstrument struct {
	Venue      string
	Instrument string
}

// Rates stores price histories keyed by venue and instrument, e.g.
// ("yahoo", "USD/JPY") or ("quoinex", "BTC/JPY").
type Rates struct {
	histories map[venueInstrument]*History
}

// NewRates returns an empty rate store.
func NewRates() *Rates {
	return &Rates{histories: make(map[venueInstrument]*History)}
}

// History returns the series for a venue instrument, creating it if needed.
func (r *Rates) History(venue, instrument string) *History {
	key := venueInstrument{venue, instrument}
	h, ok := r.histories[key]
	if !ok {
		h = &History{}
		r.histories[key] = h
	}
	return h
}

// Add records one sample for a venue instrument.
func (r *Rates) Add(venue, instrument string, at time.Time, price Quantity) {
	r.History(venue, instrument).Append(Sample{Time: at, Price: price})
}

// RateSource resolves the unit value of one currency in the reporting
// currency at a point in time.
type RateSource interface {
	Resolve(currency string, at time.Time) (Money, error)
}

type dayKey struct {
	Currency string
	Day      string // JST calendar day
}

// Resolver resolves rates against a Rates store, memoized per currency and
// JST calendar day so a full replay hits each series a bounded number of
// times.
//
// The reporting currency resolves to 1. Fiat currencies use the latest
// yahoo X/reporting sample at or before 24h ahead of the query time. Crypto
// currencies use the earliest venue sample at or after the JST day start of
// 48h before the query time, converted through the quote fiat when the venue
// quotes in a non-reporting fiat.
type Resolver struct {
	reporting string
	rates     *Rates
	memo      map[dayKey]Money
}

// NewResolver returns a resolver for the given reporting currency.
func NewResolver(reporting string, rates *Rates) *Resolver {
	return &Resolver{
		reporting: CanonicalCurrency(reporting),
		rates:     rates,
		memo:      make(map[dayKey]Money),
	}
}

// Resolve implements RateSource.
func (r *Resolver) Resolve(currency string, at time.Time) (Money, error) {
	currency = CanonicalCurrency(currency)
	key := dayKey{currency, at.In(JST).Format("2006-01-02")}
	if m, ok := r.memo[key]; ok {
		return m, nil
	}
	m, err := r.resolve(currency, at)
	if err != nil {
		return Money{}, err
	}
	r.memo[key] = m
	return m, nil
}

func (r *Resolver) resolve(currency string, at time.Time) (Money, error) {
	if currency == r.reporting {
		return M(1, r.reporting), nil
	}
	if IsFiat(currency) {
		// a fiat flow is priced by the nearest prior close, a sample
		// dated after the flow does not price it
		h := r.rates.History("yahoo", currency+"/"+r.reporting)
		s, ok := h.LastBefore(at)
		if !ok {
			return Money{}, RateUnavailableError{Currency: currency, At: at}
		}
		return MoneyOf(s.Price, r.reporting), nil
	}
	p, ok := cryptoCurrencies[currency]
	if !ok {
		return Money{}, UnknownCurrencyError{Currency: currency}
	}
	day := at.Add(-48 * time.Hour).In(JST)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, JST)
	h := r.rates.History(p.Venue, currency+"/"+p.Quote)
	// the first sample of that JST day, a sample from a later day does
	// not price this bucket
	s, ok := h.FirstAfter(start)
	if !ok || !s.Time.Before(start.AddDate(0, 0, 1)) {
		return Money{}, RateUnavailableError{Currency: currency, At: at}
	}
	if p.Quote == r.reporting {
		return MoneyOf(s.Price, r.reporting), nil
	}
	quote, err := r.Resolve(p.Quote, at)
	if err != nil {
		return Money{}, err
	}
	return quote.Mul(s.Price), nil
}
