package money

import (
	"errors"
	"testing"
)

func TestNewValidatesCurrency(t *testing.T) {
	if _, err := New(100, "us"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("New with a 2-letter code = %v, want %v", err, ErrInvalidCurrency)
	}
	m, err := New(100, "usd")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if m.Currency != "USD" {
		t.Fatalf("Currency = %q, want upper-cased USD", m.Currency)
	}
}

func TestFromFloatRoundsToCents(t *testing.T) {
	cases := []struct {
		major float64
		cents int64
	}{
		{149.99, 14999},
		{0.125, 13}, // half away from zero
		{0, 0},
		{96, 9600},
	}
	for _, tc := range cases {
		m, err := FromFloat(tc.major, "USD")
		if err != nil {
			t.Fatalf("FromFloat(%v) failed: %v", tc.major, err)
		}
		if m.Amount != tc.cents {
			t.Fatalf("FromFloat(%v) = %d cents, want %d", tc.major, m.Amount, tc.cents)
		}
	}
}

func TestArithmeticRejectsCurrencyMismatch(t *testing.T) {
	usd := Must(1000, "USD")
	eur := Must(1000, "EUR")
	if _, err := usd.Add(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("Add across currencies = %v, want %v", err, ErrCurrencyMismatch)
	}
	if _, err := usd.Sub(eur); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("Sub across currencies = %v, want %v", err, ErrCurrencyMismatch)
	}
}

func TestPercentRoundsAtComputation(t *testing.T) {
	m := Must(45000, "USD")
	if got := m.Percent(10).Amount; got != 4500 {
		t.Fatalf("10%% of 45000 = %d, want 4500", got)
	}
	// 3% of 333 cents is 9.99 cents, rounds to 10.
	if got := Must(333, "USD").Percent(3).Amount; got != 10 {
		t.Fatalf("3%% of 333 = %d, want 10", got)
	}
	if got := m.Percent(0).Amount; got != 0 {
		t.Fatalf("0%% = %d, want 0", got)
	}
}

func TestClampZero(t *testing.T) {
	if got := Must(-250, "USD").ClampZero().Amount; got != 0 {
		t.Fatalf("ClampZero on a negative amount = %d, want 0", got)
	}
	if got := Must(250, "USD").ClampZero().Amount; got != 250 {
		t.Fatalf("ClampZero on a positive amount = %d, want 250", got)
	}
}
