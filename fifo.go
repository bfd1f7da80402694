package coinledger

import "time"

// A Lot is one acquisition tracked separately under FIFO costing: the
// quantity still outstanding and the reporting-currency cost attributed to
// it.
type Lot struct {
	AcquiredAt time.Time `json:"acquiredAt"`
	Quantity   Quantity  `json:"quantity"`
	Cost       Money     `json:"cost"`
}

// UnitCost returns the cost per remaining unit.
func (l Lot) UnitCost() Money {
	if l.Quantity.IsZero() {
		return M(0, l.Cost.Currency())
	}
	return l.Cost.Div(l.Quantity)
}

// lots is a FIFO queue of outstanding acquisitions, oldest first.
type lots []Lot

func (q lots) total() Quantity {
	t := Q(0)
	for _, l := range q {
		t = t.Add(l.Quantity)
	}
	return t
}

// consume removes qty from the front of the queue and returns the remaining
// queue and the total cost of what was consumed. The caller must have
// checked qty against total.
func (q lots) consume(qty Quantity, reporting string) (lots, Money) {
	cost := M(0, reporting)
	for len(q) > 0 && qty.IsPositive() {
		l := &q[0]
		if !l.Quantity.GreaterThan(qty) {
			cost = cost.Add(l.Cost)
			qty = qty.Sub(l.Quantity)
			q = q[1:]
			continue
		}
		part := l.Cost.Mul(qty).Div(l.Quantity)
		cost = cost.Add(part)
		l.Quantity = l.Quantity.Sub(qty)
		l.Cost = l.Cost.Sub(part)
		qty = Q(0)
	}
	return q, cost
}

// fifoPolicy tracks each acquisition as a distinct lot and consumes lots
// oldest first on disposal. It does not model debt: disposing more than the
// outstanding lots is an error.
type fifoPolicy struct {
	book *Book
}

func (p *fifoPolicy) Method() CostingMethod { return FIFOCosting }

// Restore seeds a currency as a single synthetic lot carrying the prior
// balance. Reporting-currency cash is not lot-tracked.
func (p *fifoPolicy) Restore(at time.Time, balance Balance) {
	b := p.book
	currency := CanonicalCurrency(balance.Currency)
	if currency != b.reporting {
		b.lots[currency] = append(b.lots[currency], Lot{AcquiredAt: at, Quantity: balance.Quantity, Cost: balance.Value})
	}
	pos := b.position(currency)
	pos.Quantity = pos.Quantity.Add(balance.Quantity)
	pos.Value = pos.Value.Add(balance.Value)
}

// cash books a reporting-currency flow one for one, outside the lot queue.
func (p *fifoPolicy) cash(qty Quantity) FlowResult {
	pos := p.book.position(p.book.reporting)
	v := MoneyOf(qty, p.book.reporting)
	pos.Quantity = pos.Quantity.Add(qty)
	pos.Value = pos.Value.Add(v)
	return FlowResult{QuantityDelta: qty, ValueDelta: v, Gain: M(0, p.book.reporting)}
}

func (p *fifoPolicy) ApplyIncome(currency string, at time.Time, qty Quantity, explicit *Money) (FlowResult, error) {
	b := p.book
	res := FlowResult{QuantityDelta: qty, ValueDelta: M(0, b.reporting), Gain: M(0, b.reporting)}
	if qty.IsZero() {
		return res, nil
	}
	if currency == b.reporting {
		return p.cash(qty), nil
	}
	var cost Money
	if explicit != nil {
		cost = explicit.Abs()
	} else {
		rate, err := b.rate(currency, at)
		if err != nil {
			return res, err
		}
		cost = rate.Mul(qty)
	}
	b.lots[currency] = append(b.lots[currency], Lot{AcquiredAt: at, Quantity: qty, Cost: cost})
	pos := b.position(currency)
	pos.Quantity = pos.Quantity.Add(qty)
	pos.Value = pos.Value.Add(cost)
	res.ValueDelta = cost
	return res, b.check(currency)
}

func (p *fifoPolicy) ApplyOutcome(currency string, at time.Time, qty Quantity, explicit *Money) (FlowResult, error) {
	return p.dispose(currency, at, qty)
}

func (p *fifoPolicy) ApplyFee(currency string, at time.Time, qty Quantity, explicit *Money) (FlowResult, error) {
	return p.dispose(currency, at, qty)
}

// AddCost rolls extra acquisition value into the newest outstanding lot.
func (p *fifoPolicy) AddCost(currency string, value Money) {
	b := p.book
	if q := b.lots[currency]; len(q) > 0 {
		q[len(q)-1].Cost = q[len(q)-1].Cost.Add(value)
	}
	pos := b.position(currency)
	pos.Value = pos.Value.Add(value)
}

func (p *fifoPolicy) dispose(currency string, at time.Time, qty Quantity) (FlowResult, error) {
	b := p.book
	res := FlowResult{QuantityDelta: qty, ValueDelta: M(0, b.reporting), Gain: M(0, b.reporting)}
	if qty.IsZero() {
		return res, nil
	}
	if currency == b.reporting {
		return p.cash(qty), nil
	}
	dispose := qty.Neg()
	q := b.lots[currency]
	if available := q.total(); dispose.GreaterThan(available) {
		return res, InsufficientLotsError{Currency: currency, Requested: dispose, Available: available}
	}
	q, cost := q.consume(dispose, b.reporting)
	b.lots[currency] = q
	pos := b.position(currency)
	pos.Quantity = pos.Quantity.Add(qty)
	pos.Value = pos.Value.Sub(cost)
	res.ValueDelta = cost.Neg()
	return res, b.check(currency)
}
