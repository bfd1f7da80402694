package coinledger

import (
	"fmt"
	"time"
)

// CostingMethod selects how dispositions are valued against inventory.
type CostingMethod int

const (
	// AverageCosting values disposals at the running average cost of the
	// currency and carries oversold inventory in a debt sub-position.
	AverageCosting CostingMethod = iota
	// FIFOCosting tracks each acquisition as a distinct lot, consumed
	// oldest first on disposal.
	FIFOCosting
)

func (m CostingMethod) String() string {
	switch m {
	case AverageCosting:
		return "average"
	case FIFOCosting:
		return "fifo"
	default:
		return "unknown"
	}
}

// ParseCostingMethod converts a string to a CostingMethod.
func ParseCostingMethod(s string) (CostingMethod, error) {
	switch s {
	case "average", "":
		return AverageCosting, nil
	case "fifo":
		return FIFOCosting, nil
	default:
		return 0, fmt.Errorf("invalid costing method %q, must be 'average' or 'fifo'", s)
	}
}

// New returns a policy of this method operating on the given book.
func (m CostingMethod) New(book *Book) Policy {
	switch m {
	case FIFOCosting:
		return &fifoPolicy{book: book}
	default:
		return &averagePolicy{book: book}
	}
}

// A Policy owns the valuation rules for applying event legs to a Book. The
// replayer classifies each event and calls the policy once per leg; the
// policy decides which value to attribute and updates the book.
//
// explicit, when non-nil, is the total reporting-currency value of the flow
// and overrides rate resolution. Its sign follows the flow: positive for
// incomes, negative for outcomes and fees.
type Policy interface {
	Method() CostingMethod

	// Restore seeds the book with a prior balance before replay.
	Restore(at time.Time, balance Balance)

	ApplyIncome(currency string, at time.Time, qty Quantity, explicit *Money) (FlowResult, error)
	ApplyOutcome(currency string, at time.Time, qty Quantity, explicit *Money) (FlowResult, error)
	ApplyFee(currency string, at time.Time, qty Quantity, explicit *Money) (FlowResult, error)

	// AddCost rolls extra acquisition value into the existing basis of a
	// currency without moving quantity, used when a trade's counter leg or
	// fee prices the acquired side.
	AddCost(currency string, value Money)
}
