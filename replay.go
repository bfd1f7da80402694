package coinledger

import (
	"fmt"
	"io"
	"time"
)

// Config describes one replay run. It is read once at construction and
// never re-read mid-run.
type Config struct {
	// ReportingCurrency values all inventory; DefaultReportingCurrency
	// when empty.
	ReportingCurrency string
	// Method selects the costing policy.
	Method CostingMethod
	// SnapshotPeriod is the mark-to-market valuation cadence.
	SnapshotPeriod Period
	// Rates prices flows and snapshots.
	Rates RateSource
	// Initial seeds the book with a prior run's balances before replay.
	// Under FIFO costing each balance becomes a single synthetic lot
	// acquired at InitialTime.
	Initial     []Balance
	InitialTime time.Time
}

// A Replayer drains a normalized event stream strictly in time order,
// applies each event through the active costing policy, and accumulates the
// auditable output: one PnLRecord per processed event plus mark-to-market
// valuations at period boundaries.
//
// A replayer is single use and not safe for concurrent use. Runs comparing
// costing policies side by side must each own their Replayer and Resolver.
type Replayer struct {
	book   *Book
	policy Policy
	period Period

	records    []PnLRecord
	valuations []Valuation
	cumulative Money
	boundary   time.Time
}

// NewReplayer builds a replayer from a config, seeding initial balances.
func NewReplayer(cfg Config) *Replayer {
	reporting := cfg.ReportingCurrency
	if reporting == "" {
		reporting = DefaultReportingCurrency
	}
	book := NewBook(reporting, cfg.Rates)
	policy := cfg.Method.New(book)
	for _, bal := range cfg.Initial {
		policy.Restore(cfg.InitialTime, bal)
	}
	return &Replayer{
		book:       book,
		policy:     policy,
		period:     cfg.SnapshotPeriod,
		cumulative: M(0, book.reporting),
	}
}

// Book exposes the book for inspection after a run.
func (r *Replayer) Book() *Book { return r.book }

// Run drains the source until io.EOF and returns the terminal state. The
// first error is fatal: processing stops at the offending event, which has
// not been applied, and the error carries the event's identity.
func (r *Replayer) Run(src EventSource) (*Result, error) {
	for {
		e, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading events: %w", err)
		}
		if err := r.Process(e); err != nil {
			return nil, err
		}
	}
	return &Result{
		Records:    r.records,
		Valuations: r.valuations,
		Balances:   r.book.Balances(),
		Debts:      r.book.DebtBalances(),
		Realized:   r.cumulative,
	}, nil
}

// Process applies a single event: emits any pending boundary valuations,
// dispatches the legs to the policy, and appends the PnLRecord. On error
// the book is left at its pre-event state.
func (r *Replayer) Process(e LedgerEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := r.markBoundaries(e.Time); err != nil {
		return fmt.Errorf("valuing at boundary before %s: %w", e.Ref(), err)
	}

	saved := r.book.save()
	rec, applied, err := r.dispatch(e)
	if err != nil {
		r.book.restore(saved)
		return fmt.Errorf("applying %s: %w", e.Ref(), err)
	}
	if !applied {
		return nil
	}
	r.cumulative = r.cumulative.Add(rec.Realized)
	rec.Cumulative = r.cumulative
	rec.Positions = r.book.Balances()
	rec.Debts = r.book.DebtBalances()
	r.records = append(r.records, rec)
	return nil
}

// markBoundaries emits one valuation per period boundary crossed since the
// previous event, without mutating the book.
func (r *Replayer) markBoundaries(at time.Time) error {
	if r.boundary.IsZero() {
		r.boundary = r.period.Start(at)
		return nil
	}
	for bt := r.period.Next(r.boundary); !bt.After(at); bt = r.period.Next(bt) {
		v, err := r.valueAt(bt)
		if err != nil {
			return err
		}
		r.valuations = append(r.valuations, v)
		r.boundary = bt
	}
	return nil
}

// valueAt marks every open currency line to market at t.
func (r *Replayer) valueAt(t time.Time) (Valuation, error) {
	v := Valuation{Time: t, Period: r.period, Realized: r.cumulative}
	total := M(0, r.book.reporting)
	for _, c := range r.book.Currencies() {
		qty := r.book.Position(c).Quantity.Add(r.book.Debt(c).Quantity)
		if qty.IsZero() {
			continue
		}
		rate, err := r.book.rate(c, t)
		if err != nil {
			return Valuation{}, err
		}
		value := rate.Mul(qty)
		v.Lines = append(v.Lines, ValuationLine{Currency: c, Quantity: qty, Value: value})
		total = total.Add(value)
	}
	v.Total = total
	return v, nil
}

// dispatch routes the event's legs through the policy according to its
// kind. applied is false when the event is a no-op transfer that produces
// no record.
func (r *Replayer) dispatch(e LedgerEvent) (rec PnLRecord, applied bool, err error) {
	rec = PnLRecord{
		Time:       e.Time,
		Exchange:   e.Exchange,
		ID:         e.ID,
		Kind:       e.Kind,
		Instrument: e.Instrument,
		Side:       e.Side,
		Realized:   M(0, r.book.reporting),
	}

	apply := func(role FlowRole, leg Leg, explicit *Money) (FlowResult, error) {
		currency := CanonicalCurrency(leg.Currency)
		var d FlowResult
		var err error
		switch role {
		case IncomeFlow:
			d, err = r.policy.ApplyIncome(currency, e.Time, leg.Quantity, explicit)
		case OutcomeFlow:
			d, err = r.policy.ApplyOutcome(currency, e.Time, leg.Quantity, explicit)
		default:
			d, err = r.policy.ApplyFee(currency, e.Time, leg.Quantity, explicit)
		}
		if err != nil {
			return d, err
		}
		rec.Deltas = append(rec.Deltas, LegDelta{Role: role, Currency: currency, Quantity: d.QuantityDelta, Value: d.ValueDelta})
		return d, nil
	}
	// settle realizes a flow's full value into the event P&L
	settle := func(role FlowRole, leg Leg) error {
		d, err := apply(role, leg, nil)
		if err != nil {
			return err
		}
		rec.Realized = rec.Realized.Add(d.ValueDelta).Add(d.Gain)
		return nil
	}

	switch {
	case e.Kind.isTransfer():
		// transfers between the user's own wallets move no true
		// inventory, only their fees are a real cost
		fees := false
		for _, leg := range e.Fees {
			if !leg.Quantity.IsZero() {
				fees = true
			}
		}
		if !fees {
			return rec, false, nil
		}
		for _, leg := range e.Fees {
			if err := settle(FeeFlow, leg); err != nil {
				return rec, false, err
			}
		}
		return rec, true, nil

	case e.Kind == MarginTransfer:
		return rec, false, MalformedEventError{Event: e.Ref(), Reason: "margin transfers cannot be valued"}

	case e.Kind.IsSpot():
		base, quote, err := e.Pair()
		if err != nil {
			return rec, false, err
		}
		incomeCurrency := base
		if e.Side == Sell {
			incomeCurrency = quote
		}

		if e.Side == Buy && quote == r.book.reporting {
			// the quote disposal prices the acquisition: its average
			// cost, plus quote-side fees, becomes the base cost basis
			acquisition := M(0, r.book.reporting)
			for _, leg := range e.Outcomes {
				d, err := apply(OutcomeFlow, leg, nil)
				if err != nil {
					return rec, false, err
				}
				acquisition = acquisition.Add(d.ValueDelta.Abs())
				rec.Realized = rec.Realized.Add(d.Gain)
			}
			var baseFees []Leg
			for _, leg := range e.Fees {
				if CanonicalCurrency(leg.Currency) != quote {
					baseFees = append(baseFees, leg)
					continue
				}
				d, err := apply(FeeFlow, leg, nil)
				if err != nil {
					return rec, false, err
				}
				acquisition = acquisition.Add(d.ValueDelta.Abs())
				rec.Realized = rec.Realized.Add(d.Gain)
			}
			explicit := &acquisition
			for _, leg := range e.Incomes {
				d, err := apply(IncomeFlow, leg, explicit)
				if err != nil {
					return rec, false, err
				}
				explicit = nil
				rec.Realized = rec.Realized.Add(d.Gain)
			}
			for _, leg := range baseFees {
				d, err := apply(FeeFlow, leg, nil)
				if err != nil {
					return rec, false, err
				}
				r.policy.AddCost(incomeCurrency, d.ValueDelta.Abs())
				rec.Realized = rec.Realized.Add(d.Gain)
			}
			return rec, true, nil
		}

		if e.Side == Sell && quote == r.book.reporting {
			// proceeds minus average cost minus fees realize directly
			for _, leg := range e.Outcomes {
				if err := settle(OutcomeFlow, leg); err != nil {
					return rec, false, err
				}
			}
			for _, leg := range e.Incomes {
				if err := settle(IncomeFlow, leg); err != nil {
					return rec, false, err
				}
			}
			for _, leg := range e.Fees {
				if err := settle(FeeFlow, leg); err != nil {
					return rec, false, err
				}
			}
			return rec, true, nil
		}

		// non-reporting quote: both legs price independently at market
		// and fees capitalize into the income currency's basis
		for _, leg := range e.Outcomes {
			if err := settle(OutcomeFlow, leg); err != nil {
				return rec, false, err
			}
		}
		for _, leg := range e.Incomes {
			if err := settle(IncomeFlow, leg); err != nil {
				return rec, false, err
			}
		}
		for _, leg := range e.Fees {
			d, err := apply(FeeFlow, leg, nil)
			if err != nil {
				return rec, false, err
			}
			r.policy.AddCost(incomeCurrency, d.ValueDelta.Abs())
			rec.Realized = rec.Realized.Add(d.Gain)
		}
		return rec, true, nil

	default:
		// cash-settled kinds: every flow realizes directly
		for _, leg := range e.Incomes {
			if err := settle(IncomeFlow, leg); err != nil {
				return rec, false, err
			}
		}
		for _, leg := range e.Outcomes {
			if err := settle(OutcomeFlow, leg); err != nil {
				return rec, false, err
			}
		}
		for _, leg := range e.Fees {
			if err := settle(FeeFlow, leg); err != nil {
				return rec, false, err
			}
		}
		return rec, true, nil
	}
}
