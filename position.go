package coinledger

import (
	"sort"
	"time"
)

// A Position is the running inventory of one currency: how much is held and
// the value attributed to it in the reporting currency. Under average
// costing a negative inventory is carried in a separate debt Position, so
// Quantity here never goes below zero.
type Position struct {
	Currency string
	Quantity Quantity
	Value    Money
}

// UnitPrice returns the average attributed value per unit, zero when empty.
func (p Position) UnitPrice() Money {
	if p.Quantity.IsZero() {
		return M(0, p.Value.Currency())
	}
	return p.Value.Div(p.Quantity)
}

// IsZero reports whether the position holds nothing and carries no value.
func (p Position) IsZero() bool { return p.Quantity.IsZero() && p.Value.IsZero() }

// A Balance is the externally visible snapshot of one currency line,
// positions and debts alike.
type Balance struct {
	Currency  string   `json:"currency"`
	Quantity  Quantity `json:"quantity"`
	Value     Money    `json:"value"`
	UnitPrice Money    `json:"unitPrice"`
}

func (p Position) balance() Balance {
	return Balance{Currency: p.Currency, Quantity: p.Quantity, Value: p.Value, UnitPrice: p.UnitPrice()}
}

// A FlowResult reports what one applied flow did to the book: the quantity
// and attributed value moved, plus any realized gain the flow itself
// produced, such as the release of a debt carried at a different rate.
type FlowResult struct {
	QuantityDelta Quantity
	ValueDelta    Money
	Gain          Money
}

// A Book owns all per-currency inventory state for one replay run: solvent
// positions, debt sub-positions, and lot queues. Only the active costing
// policy mutates it.
type Book struct {
	reporting string
	rates     RateSource
	positions map[string]*Position
	debts     map[string]*Position
	lots      map[string]lots
}

// NewBook returns an empty book valuing inventory in the reporting currency
// through the given rate source.
func NewBook(reporting string, rates RateSource) *Book {
	return &Book{
		reporting: CanonicalCurrency(reporting),
		rates:     rates,
		positions: make(map[string]*Position),
		debts:     make(map[string]*Position),
		lots:      make(map[string]lots),
	}
}

// Reporting returns the reporting currency.
func (b *Book) Reporting() string { return b.reporting }

func (b *Book) position(currency string) *Position {
	p, ok := b.positions[currency]
	if !ok {
		p = &Position{Currency: currency, Value: M(0, b.reporting)}
		b.positions[currency] = p
	}
	return p
}

func (b *Book) debt(currency string) *Position {
	p, ok := b.debts[currency]
	if !ok {
		p = &Position{Currency: currency, Value: M(0, b.reporting)}
		b.debts[currency] = p
	}
	return p
}

// rate resolves the per-unit value of a currency, short-circuiting the
// reporting currency to 1.
func (b *Book) rate(currency string, at time.Time) (Money, error) {
	if currency == b.reporting {
		return M(1, b.reporting), nil
	}
	return b.rates.Resolve(currency, at)
}

// Position returns a copy of the solvent position for a currency.
func (b *Book) Position(currency string) Position {
	if p, ok := b.positions[currency]; ok {
		return *p
	}
	return Position{Currency: currency, Value: M(0, b.reporting)}
}

// Debt returns a copy of the debt sub-position for a currency.
func (b *Book) Debt(currency string) Position {
	if p, ok := b.debts[currency]; ok {
		return *p
	}
	return Position{Currency: currency, Value: M(0, b.reporting)}
}

// Lots returns a copy of the outstanding lot queue for a currency, oldest
// first.
func (b *Book) Lots(currency string) []Lot {
	q := b.lots[currency]
	out := make([]Lot, len(q))
	copy(out, q)
	return out
}

// Currencies returns every currency the book has touched, sorted.
func (b *Book) Currencies() []string {
	seen := make(map[string]struct{})
	for c := range b.positions {
		seen[c] = struct{}{}
	}
	for c := range b.debts {
		seen[c] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Balances returns a snapshot of every non-empty solvent position, sorted
// by currency.
func (b *Book) Balances() []Balance {
	out := make([]Balance, 0, len(b.positions))
	for _, c := range b.Currencies() {
		if p, ok := b.positions[c]; ok && !p.IsZero() {
			out = append(out, p.balance())
		}
	}
	return out
}

// DebtBalances returns a snapshot of every open debt sub-position, sorted
// by currency.
func (b *Book) DebtBalances() []Balance {
	out := make([]Balance, 0, len(b.debts))
	for _, c := range b.Currencies() {
		if p, ok := b.debts[c]; ok && !p.IsZero() {
			out = append(out, p.balance())
		}
	}
	return out
}

// bookState is a deep copy of the book's mutable state, taken before each
// event so a failing leg leaves the book at its pre-event state.
type bookState struct {
	positions map[string]*Position
	debts     map[string]*Position
	lots      map[string]lots
}

func (b *Book) save() bookState {
	s := bookState{
		positions: make(map[string]*Position, len(b.positions)),
		debts:     make(map[string]*Position, len(b.debts)),
		lots:      make(map[string]lots, len(b.lots)),
	}
	for c, p := range b.positions {
		cp := *p
		s.positions[c] = &cp
	}
	for c, p := range b.debts {
		cp := *p
		s.debts[c] = &cp
	}
	for c, q := range b.lots {
		cq := make(lots, len(q))
		copy(cq, q)
		s.lots[c] = cq
	}
	return s
}

func (b *Book) restore(s bookState) {
	b.positions = s.positions
	b.debts = s.debts
	b.lots = s.lots
}

// check enforces the internal consistency rules for one currency after an
// apply.
func (b *Book) check(currency string) error {
	// reporting-currency cash may go negative, oversold inventory may not
	if p, ok := b.positions[currency]; ok && p.Quantity.IsNegative() && currency != b.reporting {
		return InvariantViolationError{Currency: currency, Reason: "negative solvent quantity " + p.Quantity.String()}
	}
	if d, ok := b.debts[currency]; ok && d.Quantity.IsPositive() {
		return InvariantViolationError{Currency: currency, Reason: "positive debt quantity " + d.Quantity.String()}
	}
	if q, ok := b.lots[currency]; ok {
		total := Q(0)
		for _, l := range q {
			total = total.Add(l.Quantity)
		}
		if p, ok := b.positions[currency]; ok && !total.Equal(p.Quantity) {
			return InvariantViolationError{Currency: currency, Reason: "lot total " + total.String() + " does not match position " + p.Quantity.String()}
		}
	}
	return nil
}
