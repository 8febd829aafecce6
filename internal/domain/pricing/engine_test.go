package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/units"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad test date %q: %v", value, err)
	}
	return d
}

func stayRange(t *testing.T, checkIn, checkOut string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(day(t, checkIn), day(t, checkOut))
	if err != nil {
		t.Fatalf("bad test range: %v", err)
	}
	return dr
}

// pricedSnapshot covers [from, from+nights) with one price per night.
func pricedSnapshot(t *testing.T, from string, nights int, cents int64) *calendar.Snapshot {
	t.Helper()
	start := day(t, from)
	end := start.AddDate(0, 0, nights)
	var entries []calendar.Entry
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		price := money.Must(cents, "USD")
		entries = append(entries, calendar.Entry{UnitID: "u1", Date: d, Available: true, Price: &price})
	}
	return calendar.NewSnapshot(units.UnitID("u1"), start, end, entries, time.Now())
}

func testUnit() *units.Unit {
	return &units.Unit{ID: "u1", Name: "Test unit", Currency: "USD", BaseNightlyRate: 12000, GuestsLimit: 4}
}

type quoteFunc func(ctx context.Context, req QuoteRequest) (QuoteResponse, error)

func (f quoteFunc) Quote(ctx context.Context, req QuoteRequest) (QuoteResponse, error) {
	return f(ctx, req)
}

type percentDiscount struct{ pct float64 }

func (p percentDiscount) ApplyDiscount(subtotal money.Money) Discount {
	return Discount{Kind: "percent", Value: p.pct, Amount: subtotal.Percent(p.pct)}
}

func testFees() FeeSchedule {
	return FeeSchedule{CleaningFeeCents: 5000, PetFeeCents: 2500, TaxPercent: 10, ChannelFeePercent: 3}
}

func TestPriceSumsSnapshotNightly(t *testing.T) {
	engine := &Engine{Fees: testFees()}
	breakdown, err := engine.Price(context.Background(), QuoteInput{
		Unit:     testUnit(),
		Range:    stayRange(t, "2024-06-01", "2024-06-06"),
		Guests:   2,
		Snapshot: pricedSnapshot(t, "2024-06-01", 5, 10000),
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if breakdown.Source != TierSnapshot {
		t.Fatalf("Source = %s, want %s", breakdown.Source, TierSnapshot)
	}
	if breakdown.Subtotal.Amount != 50000 {
		t.Fatalf("Subtotal = %d, want 50000", breakdown.Subtotal.Amount)
	}
	// 50000 + 5000 cleaning + 5000 tax + 1500 channel.
	if breakdown.Total.Amount != 61500 {
		t.Fatalf("Total = %d, want 61500", breakdown.Total.Amount)
	}
	if err := breakdown.Validate(); err != nil {
		t.Fatalf("Validate failed on a computed breakdown: %v", err)
	}
}

func TestPricePartialSnapshotFallsToRemoteQuote(t *testing.T) {
	// The snapshot covers only three of the five nights. Partial coverage
	// must never be averaged out; the engine asks the remote service instead.
	called := false
	engine := &Engine{
		Fees: testFees(),
		Quotes: quoteFunc(func(_ context.Context, req QuoteRequest) (QuoteResponse, error) {
			called = true
			if req.UnitID != "u1" || req.Guests != 2 {
				t.Fatalf("unexpected quote request %+v", req)
			}
			return QuoteResponse{
				Available: true,
				Breakdown: &QuoteBreakdown{Nights: 5, NightlyRate: 96, Subtotal: 480, Total: 560, Currency: "USD"},
			}, nil
		}),
	}
	breakdown, err := engine.Price(context.Background(), QuoteInput{
		Unit:     testUnit(),
		Range:    stayRange(t, "2024-06-01", "2024-06-06"),
		Guests:   2,
		Snapshot: pricedSnapshot(t, "2024-06-01", 3, 10000),
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if !called {
		t.Fatalf("remote quote service was never consulted")
	}
	if breakdown.Source != TierRemoteQuote {
		t.Fatalf("Source = %s, want %s", breakdown.Source, TierRemoteQuote)
	}
	if breakdown.Subtotal.Amount != 48000 {
		t.Fatalf("Subtotal = %d, want 48000 cents from the remote major-unit figure", breakdown.Subtotal.Amount)
	}
}

func TestPriceRemoteFailureFallsToBaseRate(t *testing.T) {
	engine := &Engine{
		Fees: testFees(),
		Quotes: quoteFunc(func(context.Context, QuoteRequest) (QuoteResponse, error) {
			return QuoteResponse{}, errors.New("upstream timeout")
		}),
	}
	breakdown, err := engine.Price(context.Background(), QuoteInput{
		Unit:   testUnit(),
		Range:  stayRange(t, "2024-06-01", "2024-06-06"),
		Guests: 2,
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if breakdown.Source != TierBaseRate {
		t.Fatalf("Source = %s, want %s", breakdown.Source, TierBaseRate)
	}
	if breakdown.Subtotal.Amount != 60000 {
		t.Fatalf("Subtotal = %d, want 5 * 12000", breakdown.Subtotal.Amount)
	}
}

func TestPriceDefaultRateIsTheLastResort(t *testing.T) {
	unit := testUnit()
	unit.BaseNightlyRate = 0
	engine := &Engine{Fees: testFees(), DefaultNightlyCents: 8000}
	breakdown, err := engine.Price(context.Background(), QuoteInput{
		Unit:   unit,
		Range:  stayRange(t, "2024-06-01", "2024-06-06"),
		Guests: 2,
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if breakdown.Source != TierDefaultRate {
		t.Fatalf("Source = %s, want %s", breakdown.Source, TierDefaultRate)
	}
	if breakdown.Subtotal.Amount != 40000 {
		t.Fatalf("Subtotal = %d, want 5 * 8000", breakdown.Subtotal.Amount)
	}
	if breakdown.Currency != "USD" {
		t.Fatalf("Currency = %q, want USD", breakdown.Currency)
	}
}

func TestPriceTaxesTheDiscountedSubtotal(t *testing.T) {
	engine := &Engine{Fees: testFees()}
	breakdown, err := engine.Price(context.Background(), QuoteInput{
		Unit:     testUnit(),
		Range:    stayRange(t, "2024-06-01", "2024-06-06"),
		Guests:   2,
		Snapshot: pricedSnapshot(t, "2024-06-01", 5, 10000),
		Discount: percentDiscount{pct: 10},
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if breakdown.Discount == nil || breakdown.Discount.Amount.Amount != 5000 {
		t.Fatalf("Discount = %+v, want 5000 cents off", breakdown.Discount)
	}
	if breakdown.DiscountedSubtotal == nil || breakdown.DiscountedSubtotal.Amount != 45000 {
		t.Fatalf("DiscountedSubtotal = %+v, want 45000", breakdown.DiscountedSubtotal)
	}
	if breakdown.Tax.Amount != 4500 {
		t.Fatalf("Tax = %d, want 10%% of the discounted 45000, not the original 50000", breakdown.Tax.Amount)
	}
	if breakdown.ChannelFee.Amount != 1350 {
		t.Fatalf("ChannelFee = %d, want 3%% of 45000", breakdown.ChannelFee.Amount)
	}
	// 45000 + 5000 + 4500 + 1350.
	if breakdown.Total.Amount != 55850 {
		t.Fatalf("Total = %d, want 55850", breakdown.Total.Amount)
	}
}

func TestPricePetFeeIsFlatPerStay(t *testing.T) {
	engine := &Engine{Fees: testFees()}
	input := QuoteInput{
		Unit:     testUnit(),
		Range:    stayRange(t, "2024-06-01", "2024-06-06"),
		Guests:   2,
		Pets:     3,
		Snapshot: pricedSnapshot(t, "2024-06-01", 5, 10000),
	}
	breakdown, err := engine.Price(context.Background(), input)
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if breakdown.PetFee.Amount != 2500 {
		t.Fatalf("PetFee = %d, want the flat 2500 regardless of pet count", breakdown.PetFee.Amount)
	}
}

func TestPriceIsDeterministic(t *testing.T) {
	engine := &Engine{Fees: testFees()}
	input := QuoteInput{
		Unit:     testUnit(),
		Range:    stayRange(t, "2024-06-01", "2024-06-06"),
		Guests:   2,
		Snapshot: pricedSnapshot(t, "2024-06-01", 5, 10000),
		Discount: percentDiscount{pct: 10},
	}
	first, err := engine.Price(context.Background(), input)
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	second, err := engine.Price(context.Background(), input)
	if err != nil {
		t.Fatalf("Price failed on repeat: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("identical inputs produced differing breakdowns:\n%+v\n%+v", first, second)
	}
}

func TestPriceMixedCurrencySnapshotIsAMiss(t *testing.T) {
	start := day(t, "2024-06-01")
	usd := money.Must(10000, "USD")
	eur := money.Must(10000, "EUR")
	entries := []calendar.Entry{
		{UnitID: "u1", Date: start, Available: true, Price: &usd},
		{UnitID: "u1", Date: start.AddDate(0, 0, 1), Available: true, Price: &eur},
	}
	snap := calendar.NewSnapshot(units.UnitID("u1"), start, start.AddDate(0, 0, 2), entries, time.Now())

	engine := &Engine{Fees: testFees()}
	breakdown, err := engine.Price(context.Background(), QuoteInput{
		Unit:     testUnit(),
		Range:    stayRange(t, "2024-06-01", "2024-06-03"),
		Guests:   2,
		Snapshot: snap,
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	if breakdown.Source != TierBaseRate {
		t.Fatalf("Source = %s, want fall-through to %s", breakdown.Source, TierBaseRate)
	}
}

func TestBreakdownValidateCatchesTamperedTotal(t *testing.T) {
	engine := &Engine{Fees: testFees()}
	breakdown, err := engine.Price(context.Background(), QuoteInput{
		Unit:     testUnit(),
		Range:    stayRange(t, "2024-06-01", "2024-06-06"),
		Guests:   2,
		Snapshot: pricedSnapshot(t, "2024-06-01", 5, 10000),
	})
	if err != nil {
		t.Fatalf("Price failed: %v", err)
	}
	breakdown.Total.Amount++
	if err := breakdown.Validate(); !errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("Validate = %v, want %v", err, ErrTotalMismatch)
	}
}
