package coinledger

import "time"

// averagePolicy values inventory at its running weighted-average cost.
//
// Each currency lives in one of two regions. Solvent inventory is disposed
// at average cost, so a disposal within the held quantity realizes nothing
// by itself. A disposal that exceeds the held quantity books the excess into
// a debt sub-position at the market rate at that time; later income offsets
// open debt first, realizing the difference between the carried debt value
// and the income's unit value, before the remainder re-enters the solvent
// position.
type averagePolicy struct {
	book *Book
}

func (p *averagePolicy) Method() CostingMethod { return AverageCosting }

func (p *averagePolicy) Restore(at time.Time, balance Balance) {
	pos := p.book.position(CanonicalCurrency(balance.Currency))
	pos.Quantity = balance.Quantity
	pos.Value = balance.Value
}

func (p *averagePolicy) ApplyIncome(currency string, at time.Time, qty Quantity, explicit *Money) (FlowResult, error) {
	return p.applyFlow(currency, at, qty, explicit)
}

func (p *averagePolicy) ApplyOutcome(currency string, at time.Time, qty Quantity, explicit *Money) (FlowResult, error) {
	return p.applyFlow(currency, at, qty, explicit)
}

func (p *averagePolicy) ApplyFee(currency string, at time.Time, qty Quantity, explicit *Money) (FlowResult, error) {
	return p.applyFlow(currency, at, qty, explicit)
}

func (p *averagePolicy) AddCost(currency string, value Money) {
	pos := p.book.position(currency)
	pos.Value = pos.Value.Add(value)
}

// unitValue returns the per-unit value of a flow, from the explicit total
// when supplied, otherwise from the rate source.
func (p *averagePolicy) unitValue(currency string, at time.Time, qty Quantity, explicit *Money) (Money, error) {
	if explicit != nil {
		return explicit.Abs().Div(qty.Abs()), nil
	}
	return p.book.rate(currency, at)
}

func (p *averagePolicy) applyFlow(currency string, at time.Time, qty Quantity, explicit *Money) (FlowResult, error) {
	b := p.book
	res := FlowResult{QuantityDelta: qty, ValueDelta: M(0, b.reporting), Gain: M(0, b.reporting)}
	if qty.IsZero() {
		return res, nil
	}
	pos := b.position(currency)
	debt := b.debt(currency)

	// reporting-currency cash has no basis to track: one unit is worth
	// one unit and the position may go negative
	if currency == b.reporting {
		v := MoneyOf(qty, b.reporting)
		pos.Quantity = pos.Quantity.Add(qty)
		pos.Value = pos.Value.Add(v)
		res.ValueDelta = v
		return res, nil
	}

	if qty.IsPositive() {
		unit, err := p.unitValue(currency, at, qty, explicit)
		if err != nil {
			return res, err
		}
		res.ValueDelta = unit.Mul(qty)
		remaining := qty
		if debt.Quantity.IsNegative() {
			offset := remaining.Min(debt.Quantity.Neg())
			released := debt.Value.Mul(offset).Div(debt.Quantity.Neg())
			debt.Quantity = debt.Quantity.Add(offset)
			debt.Value = debt.Value.Sub(released)
			if debt.Quantity.IsZero() {
				debt.Value = M(0, b.reporting)
			}
			res.Gain = released.Neg().Sub(unit.Mul(offset))
			remaining = remaining.Sub(offset)
		}
		if remaining.IsPositive() {
			pos.Quantity = pos.Quantity.Add(remaining)
			pos.Value = pos.Value.Add(unit.Mul(remaining))
		}
		return res, b.check(currency)
	}

	dispose := qty.Neg()
	solvent := dispose.Min(pos.Quantity)
	excess := dispose.Sub(solvent)
	var unit Money
	if excess.IsPositive() {
		// resolve before mutating anything so a failure leaves the book
		// at its pre-event state
		var err error
		unit, err = p.unitValue(currency, at, qty, explicit)
		if err != nil {
			return res, err
		}
	}
	if solvent.IsPositive() {
		removed := pos.Value.Mul(solvent).Div(pos.Quantity)
		pos.Quantity = pos.Quantity.Sub(solvent)
		pos.Value = pos.Value.Sub(removed)
		if pos.Quantity.IsZero() {
			pos.Value = M(0, b.reporting)
		}
		res.ValueDelta = res.ValueDelta.Sub(removed)
	}
	if excess.IsPositive() {
		borrowed := unit.Mul(excess)
		debt.Quantity = debt.Quantity.Sub(excess)
		debt.Value = debt.Value.Sub(borrowed)
		res.ValueDelta = res.ValueDelta.Sub(borrowed)
	}
	return res, b.check(currency)
}
