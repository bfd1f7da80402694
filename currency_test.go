package coinledger

import "testing"

func TestCanonicalCurrency(t *testing.T) {
	if got := CanonicalCurrency("QSH"); got != "QASH" {
		t.Errorf("CanonicalCurrency(QSH) = %s, want QASH", got)
	}
	if got := CanonicalCurrency("BTC"); got != "BTC" {
		t.Errorf("CanonicalCurrency(BTC) = %s, want BTC", got)
	}
}

func TestValidateCurrency(t *testing.T) {
	for _, c := range []string{"JPY", "USD", "BTC", "ERC20.CMS"} {
		if err := ValidateCurrency(c); err != nil {
			t.Errorf("ValidateCurrency(%s) error = %v", c, err)
		}
	}
	if err := ValidateCurrency("DOGE"); err == nil {
		t.Error("ValidateCurrency(DOGE) = nil, want error")
	}
}

func TestCurrencies_SortedUniverse(t *testing.T) {
	all := Currencies()
	if len(all) != len(fiatCurrencies)+len(cryptoCurrencies) {
		t.Fatalf("len = %d, want %d", len(all), len(fiatCurrencies)+len(cryptoCurrencies))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Fatalf("not sorted at %d: %s >= %s", i, all[i-1], all[i])
		}
	}
}
