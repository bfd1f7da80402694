package coinledger

import "time"

// fixedRates is a RateSource with one constant JPY rate per currency. Tests
// mutate the map between applies to simulate moving markets.
type fixedRates map[string]float64

func (f fixedRates) Resolve(currency string, at time.Time) (Money, error) {
	if v, ok := f[currency]; ok {
		return M(v, "JPY"), nil
	}
	return Money{}, RateUnavailableError{Currency: currency, At: at}
}

func at(day int, hour int) time.Time {
	return time.Date(2018, time.January, day, hour, 0, 0, 0, time.UTC)
}

func yen(t float64) Money { return M(t, "JPY") }
