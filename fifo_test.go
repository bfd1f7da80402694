package coinledger

import (
	"errors"
	"testing"
)

// acquire books three lots of one BTC each at distinct costs.
func threeLots(t *testing.T) (*Book, Policy) {
	t.Helper()
	book := NewBook("JPY", fixedRates{})
	policy := FIFOCosting.New(book)
	for i, cost := range []float64{100, 200, 300} {
		explicit := yen(cost)
		if _, err := policy.ApplyIncome("BTC", at(1, i), Q(1), &explicit); err != nil {
			t.Fatalf("ApplyIncome() error = %v", err)
		}
	}
	return book, policy
}

func TestFIFOPolicy_ConsumesOldestFirst(t *testing.T) {
	book, policy := threeLots(t)

	d, err := policy.ApplyOutcome("BTC", at(2, 0), Q(-1), nil)
	if err != nil {
		t.Fatalf("ApplyOutcome() error = %v", err)
	}
	// exactly the first lot's cost, the later lots are untouched
	if !d.ValueDelta.Equal(yen(-100)) {
		t.Errorf("ValueDelta = %s, want -100", d.ValueDelta)
	}
	lots := book.Lots("BTC")
	if len(lots) != 2 {
		t.Fatalf("len(lots) = %d, want 2", len(lots))
	}
	if !lots[0].Cost.Equal(yen(200)) || !lots[1].Cost.Equal(yen(300)) {
		t.Errorf("remaining lot costs = %s, %s, want 200, 300", lots[0].Cost, lots[1].Cost)
	}
}

func TestFIFOPolicy_PartialLotConsumption(t *testing.T) {
	book, policy := threeLots(t)

	d, err := policy.ApplyOutcome("BTC", at(2, 0), Q(-1.5), nil)
	if err != nil {
		t.Fatalf("ApplyOutcome() error = %v", err)
	}
	if !d.ValueDelta.Equal(yen(-200)) {
		t.Errorf("ValueDelta = %s, want -200", d.ValueDelta)
	}
	lots := book.Lots("BTC")
	if len(lots) != 2 {
		t.Fatalf("len(lots) = %d, want 2", len(lots))
	}
	if !lots[0].Quantity.Equal(Q(0.5)) || !lots[0].Cost.Equal(yen(100)) {
		t.Errorf("front lot = %s costing %s, want 0.5 costing 100", lots[0].Quantity, lots[0].Cost)
	}
	pos := book.Position("BTC")
	if !pos.Quantity.Equal(Q(1.5)) || !pos.Value.Equal(yen(400)) {
		t.Errorf("position = %s %s, want 1.5 valued 400", pos.Quantity, pos.Value)
	}
}

func TestFIFOPolicy_InsufficientLots(t *testing.T) {
	_, policy := threeLots(t)

	_, err := policy.ApplyOutcome("BTC", at(2, 0), Q(-5), nil)
	var insufficient InsufficientLotsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("ApplyOutcome() error = %v, want InsufficientLotsError", err)
	}
	if insufficient.Currency != "BTC" || !insufficient.Available.Equal(Q(3)) {
		t.Errorf("error detail = %+v, want BTC with 3 available", insufficient)
	}
}

func TestFIFOPolicy_AddCostRollsIntoNewestLot(t *testing.T) {
	book, policy := threeLots(t)

	policy.AddCost("BTC", yen(50))

	lots := book.Lots("BTC")
	if !lots[2].Cost.Equal(yen(350)) {
		t.Errorf("newest lot cost = %s, want 350", lots[2].Cost)
	}
	if pos := book.Position("BTC"); !pos.Value.Equal(yen(650)) {
		t.Errorf("position value = %s, want 650", pos.Value)
	}
}

func TestFIFOPolicy_RestoreSeedsSyntheticLot(t *testing.T) {
	book := NewBook("JPY", fixedRates{})
	policy := FIFOCosting.New(book)

	policy.Restore(at(1, 0), Balance{Currency: "BTC", Quantity: Q(2), Value: yen(1000)})

	d, err := policy.ApplyOutcome("BTC", at(2, 0), Q(-1), nil)
	if err != nil {
		t.Fatalf("ApplyOutcome() error = %v", err)
	}
	if !d.ValueDelta.Equal(yen(-500)) {
		t.Errorf("ValueDelta = %s, want -500", d.ValueDelta)
	}
}
