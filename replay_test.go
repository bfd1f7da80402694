package coinledger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// a small but complete stream: fund JPY, buy BTC, sell part of it, get a
// bonus, pay a withdrawal fee
func testStream() []LedgerEvent {
	return []LedgerEvent{
		{
			Time: at(1, 1), Exchange: "quoinex", ID: "1", Kind: JPYDeposit,
			Incomes: []Leg{{"JPY", Q(1000000)}},
		},
		{
			Time: at(1, 2), Exchange: "quoinex", ID: "2", Kind: Spot, Instrument: "BTC/JPY", Side: Buy,
			Incomes:  []Leg{{"BTC", Q(0.1)}},
			Outcomes: []Leg{{"JPY", Q(-500000)}},
			Fees:     []Leg{{"JPY", Q(-50)}},
		},
		{
			Time: at(2, 3), Exchange: "quoinex", ID: "3", Kind: Spot, Instrument: "BTC/JPY", Side: Sell,
			Incomes:  []Leg{{"JPY", Q(300000)}},
			Outcomes: []Leg{{"BTC", Q(-0.05)}},
		},
		{
			Time: at(3, 4), Exchange: "quoinex", ID: "4", Kind: Bonus,
			Incomes: []Leg{{"XEM", Q(10)}},
		},
		{
			Time: at(4, 5), Exchange: "quoinex", ID: "5", Kind: Withdrawal,
			Outcomes: []Leg{{"BTC", Q(-0.04)}},
			Fees:     []Leg{{"BTC", Q(-0.001)}},
		},
	}
}

func testReplayer(method CostingMethod, period Period) *Replayer {
	return NewReplayer(Config{
		Method:         method,
		SnapshotPeriod: period,
		Rates:          fixedRates{"BTC": 5000000, "XEM": 50},
	})
}

func TestReplayer_SpotBuySetsCostBasis(t *testing.T) {
	r := testReplayer(AverageCosting, Daily)
	result, err := r.Run(Events(testStream()[:2]...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	btc := r.Book().Position("BTC")
	if !btc.Quantity.Equal(Q(0.1)) || !btc.Value.Equal(yen(500050)) {
		t.Errorf("BTC position = %s %s, want 0.1 valued 500050", btc.Quantity, btc.Value)
	}
	// the fee-less funding deposit is a wallet transfer and moves nothing,
	// so the buy drives the cash line down by exactly its total cost
	jpy := r.Book().Position("JPY")
	if !jpy.Quantity.Equal(Q(-500050)) || !jpy.Value.Equal(yen(-500050)) {
		t.Errorf("JPY position = %s %s, want -500050 both", jpy.Quantity, jpy.Value)
	}
	// buying realizes nothing, the cost moves into the basis
	if !result.Realized.IsZero() {
		t.Errorf("Realized = %s, want 0", result.Realized)
	}
}

func TestReplayer_SellRealizesAgainstBasis(t *testing.T) {
	r := testReplayer(AverageCosting, Daily)
	result, err := r.Run(Events(testStream()[:3]...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// proceeds 300000 against half the 500050 basis
	if !result.Realized.Equal(yen(49975)) {
		t.Errorf("Realized = %s, want 49975", result.Realized)
	}
}

func TestReplayer_Conservation(t *testing.T) {
	for _, method := range []CostingMethod{AverageCosting, FIFOCosting} {
		r := testReplayer(method, Daily)
		result, err := r.Run(Events(testStream()...))
		if err != nil {
			t.Fatalf("%s: Run() error = %v", method, err)
		}

		sums := make(map[string]Quantity)
		for _, rec := range result.Records {
			for _, d := range rec.Deltas {
				sums[d.Currency] = sums[d.Currency].Add(d.Quantity)
			}
		}
		for c, want := range sums {
			got := r.Book().Position(c).Quantity.Add(r.Book().Debt(c).Quantity)
			if !got.Equal(want) {
				t.Errorf("%s: %s final quantity = %s, want summed deltas %s", method, c, got, want)
			}
		}
	}
}

func TestReplayer_IdempotentReplay(t *testing.T) {
	var outputs []string
	for run := 0; run < 2; run++ {
		result, err := testReplayer(AverageCosting, Daily).Run(Events(testStream()...))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		var buf bytes.Buffer
		if err := EncodeRecords(&buf, result.Records); err != nil {
			t.Fatalf("EncodeRecords() error = %v", err)
		}
		if err := EncodeBalances(&buf, append(result.Balances, result.Debts...)); err != nil {
			t.Fatalf("EncodeBalances() error = %v", err)
		}
		outputs = append(outputs, buf.String())
	}
	if outputs[0] != outputs[1] {
		t.Errorf("replays differ:\n%s\n!=\n%s", outputs[0], outputs[1])
	}
}

func TestReplayer_DailySnapshotCadence(t *testing.T) {
	r := testReplayer(AverageCosting, Daily)
	result, err := r.Run(Events(testStream()...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// events span Jan 1 to Jan 4 (UTC), crossing three JST day boundaries
	if len(result.Valuations) != 3 {
		t.Fatalf("len(Valuations) = %d, want 3", len(result.Valuations))
	}
	for i, v := range result.Valuations {
		in := v.Time.In(JST)
		if in.Hour() != 0 || in.Minute() != 0 {
			t.Errorf("valuation %d at %s, want a JST midnight", i, v.Time)
		}
		if v.Total.Currency() != "JPY" {
			t.Errorf("valuation %d total in %s, want JPY", i, v.Total.Currency())
		}
	}
	// snapshots must not touch the book: replay again without periods and
	// compare final balances
	plain, err := testReplayer(AverageCosting, Hourly).Run(Events(testStream()...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(plain.Balances) != len(result.Balances) {
		t.Fatalf("balance count differs between cadences")
	}
	for i := range plain.Balances {
		if !plain.Balances[i].Quantity.Equal(result.Balances[i].Quantity) {
			t.Errorf("balance %s differs between cadences", plain.Balances[i].Currency)
		}
	}
}

func TestReplayer_TransfersWithoutFeesAreSkipped(t *testing.T) {
	r := testReplayer(AverageCosting, Daily)
	e := LedgerEvent{
		Time: at(1, 1), Exchange: "quoinex", ID: "7", Kind: Deposit,
		Incomes: []Leg{{"BTC", Q(1)}},
	}
	result, err := r.Run(Events(e))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Records) != 0 {
		t.Errorf("len(Records) = %d, want 0 for a fee-less transfer", len(result.Records))
	}
	if !r.Book().Position("BTC").Quantity.IsZero() {
		t.Error("fee-less transfer must not move inventory")
	}
}

func TestReplayer_TransferFeeRealizesCost(t *testing.T) {
	r := testReplayer(AverageCosting, Daily)
	events := append(testStream()[:2], LedgerEvent{
		Time: at(1, 3), Exchange: "quoinex", ID: "8", Kind: Withdrawal,
		Outcomes: []Leg{{"BTC", Q(-0.05)}},
		Fees:     []Leg{{"BTC", Q(-0.001)}},
	})
	result, err := r.Run(Events(events...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	last := result.Records[len(result.Records)-1]
	// only the fee leg applies, at the 5000500 average basis
	if len(last.Deltas) != 1 || last.Deltas[0].Role != FeeFlow {
		t.Fatalf("deltas = %+v, want the single fee leg", last.Deltas)
	}
	if !last.Realized.Equal(yen(-5000.5)) {
		t.Errorf("Realized = %s, want -5000.5", last.Realized)
	}
	if q := r.Book().Position("BTC").Quantity; !q.Equal(Q(0.099)) {
		t.Errorf("BTC quantity = %s, want 0.099", q)
	}
}

func TestReplayer_MarginDepositCashSettles(t *testing.T) {
	r := testReplayer(AverageCosting, Daily)
	e := LedgerEvent{
		Time: at(1, 1), Exchange: "quoinex", ID: "8", Kind: MarginDeposit,
		Incomes: []Leg{{"BTC", Q(0.01)}},
	}
	result, err := r.Run(Events(e))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// the income values at market and realizes in full
	if !result.Realized.Equal(yen(50000)) {
		t.Errorf("Realized = %s, want 50000", result.Realized)
	}
	btc := r.Book().Position("BTC")
	if !btc.Quantity.Equal(Q(0.01)) || !btc.Value.Equal(yen(50000)) {
		t.Errorf("BTC position = %s %s, want 0.01 valued 50000", btc.Quantity, btc.Value)
	}
	if got := result.Records[0].Deltas; len(got) != 1 || got[0].Role != IncomeFlow {
		t.Errorf("Deltas = %v, want one income delta", got)
	}
}

func TestReplayer_MarginTransferIsMalformed(t *testing.T) {
	r := testReplayer(AverageCosting, Daily)
	e := LedgerEvent{
		Time: at(1, 1), Exchange: "quoinex", ID: "9", Kind: MarginTransfer,
		Incomes: []Leg{{"BTC", Q(1)}},
	}
	_, err := r.Run(Events(e))
	var malformed MalformedEventError
	if !errors.As(err, &malformed) {
		t.Fatalf("Run() error = %v, want MalformedEventError", err)
	}
}

func TestReplayer_RateUnavailableAbortsCleanly(t *testing.T) {
	r := NewReplayer(Config{
		SnapshotPeriod: Daily,
		Rates:          fixedRates{"BTC": 5000000}, // no XEM rate
	})
	events := append(testStream()[:2], LedgerEvent{
		Time: at(1, 3), Exchange: "zaif", ID: "10", Kind: Bonus,
		Incomes: []Leg{{"XEM", Q(10)}},
	})
	before := r.Book()

	_, err := r.Run(Events(events...))
	var unavailable RateUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Run() error = %v, want RateUnavailableError", err)
	}
	if !strings.Contains(err.Error(), "zaif/bonus/10") {
		t.Errorf("error %q does not reference the offending event", err)
	}
	// the failing event must not leave partial state behind
	if !before.Position("XEM").Quantity.IsZero() {
		t.Error("XEM position mutated by the aborted event")
	}
	if btc := before.Position("BTC"); !btc.Quantity.Equal(Q(0.1)) {
		t.Errorf("BTC position = %s, want the pre-abort 0.1", btc.Quantity)
	}
}

func TestReplayer_CryptoCryptoFeeCapitalizes(t *testing.T) {
	r := NewReplayer(Config{
		SnapshotPeriod: Daily,
		Rates:          fixedRates{"BTC": 5000000, "XEM": 50},
	})
	events := []LedgerEvent{
		testStream()[0], testStream()[1],
		{
			Time: at(1, 3), Exchange: "zaif", ID: "11", Kind: Spot, Instrument: "XEM/BTC", Side: Buy,
			Incomes:  []Leg{{"XEM", Q(1000)}},
			Outcomes: []Leg{{"BTC", Q(-0.01)}},
			Fees:     []Leg{{"XEM", Q(-5)}},
		},
	}
	result, err := r.Run(Events(events...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// XEM enters at market 50, BTC leaves at its 5000500 basis, the fee's
	// value moves from the XEM inventory back into its basis
	last := result.Records[len(result.Records)-1]
	want := yen(1000*50 - 0.01*5000500)
	if !last.Realized.Equal(want) {
		t.Errorf("Realized = %s, want %s", last.Realized, want)
	}
	xem := r.Book().Position("XEM")
	if !xem.Quantity.Equal(Q(995)) {
		t.Errorf("XEM quantity = %s, want 995", xem.Quantity)
	}
	if !xem.Value.Equal(yen(50000)) {
		t.Errorf("XEM value = %s, want 50000", xem.Value)
	}
}
