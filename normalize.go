package coinledger

import (
	"sort"
	"strings"
	"time"
)

// A RawLeg is one per-currency amount as reported by an exchange, with the
// exchange's free-form note attached.
type RawLeg struct {
	Currency string
	Quantity Quantity
	Note     string
}

// A RawRecord is one exchange row before normalization: a trade, transfer
// or settlement with its raw per-currency amounts.
type RawRecord struct {
	Time       time.Time
	Exchange   string
	Kind       string
	ID         string
	Instrument string
	Side       string
	Legs       []RawLeg
	// Skip marks rows excluded from accounting, e.g. known duplicates.
	Skip bool
}

// Normalize converts one raw exchange row into a LedgerEvent, or nil when
// the row carries nothing to account for.
//
// Legs whose note mentions a fee or cost become fee legs; otherwise the
// sign decides income or outcome. Zero quantities are dropped, currencies
// are canonicalized, and legs are aggregated per currency and sorted so
// normalization is deterministic. Deposits and withdrawals touching only
// the reporting currency get the jpy_ kind prefix, keeping pure fiat cash
// movements distinguishable downstream.
func Normalize(r RawRecord) (*LedgerEvent, error) {
	if r.Skip {
		return nil, nil
	}

	e := &LedgerEvent{
		Time:       r.Time,
		Exchange:   r.Exchange,
		ID:         r.ID,
		Kind:       Kind(r.Kind),
		Instrument: r.Instrument,
		Side:       Side(strings.ToUpper(r.Side)),
	}

	incomes := make(map[string]Quantity)
	outcomes := make(map[string]Quantity)
	fees := make(map[string]Quantity)
	jpyOnly := true
	for _, leg := range r.Legs {
		if leg.Quantity.IsZero() {
			continue
		}
		currency := CanonicalCurrency(leg.Currency)
		if err := ValidateCurrency(currency); err != nil {
			return nil, err
		}
		if currency != DefaultReportingCurrency {
			jpyOnly = false
		}
		note := strings.ToLower(leg.Note)
		switch {
		case strings.Contains(note, "fee") || strings.Contains(note, "cost"):
			fees[currency] = fees[currency].Add(leg.Quantity)
		case leg.Quantity.IsPositive():
			incomes[currency] = incomes[currency].Add(leg.Quantity)
		default:
			outcomes[currency] = outcomes[currency].Add(leg.Quantity)
		}
	}
	e.Incomes = sortedLegs(incomes)
	e.Outcomes = sortedLegs(outcomes)
	e.Fees = sortedLegs(fees)

	if jpyOnly {
		switch e.Kind {
		case Deposit:
			e.Kind = JPYDeposit
		case Withdrawal:
			e.Kind = JPYWithdrawal
		}
	}

	if len(e.Incomes)+len(e.Outcomes)+len(e.Fees) == 0 {
		return nil, nil
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func sortedLegs(byCurrency map[string]Quantity) []Leg {
	if len(byCurrency) == 0 {
		return nil
	}
	legs := make([]Leg, 0, len(byCurrency))
	for c, q := range byCurrency {
		if q.IsZero() {
			continue
		}
		legs = append(legs, Leg{Currency: c, Quantity: q})
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].Currency < legs[j].Currency })
	return legs
}
