package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"staybook/internal/app/policies"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/money"
)

func storedQuote() policies.StoredQuote {
	return policies.StoredQuote{
		UnitID:   "unit-1",
		CheckIn:  time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Guests:   2,
		Breakdown: domainpricing.PriceBreakdown{
			Subtotal: money.Must(50000, "USD"),
			Total:    money.Must(61500, "USD"),
			Currency: "USD",
			Nights:   5,
		},
	}
}

func TestRedeemIsSingleUse(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(30 * time.Minute)
	store.Now = func() time.Time { return now }

	token, err := store.Issue(context.Background(), storedQuote())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token == "" {
		t.Fatalf("Issue returned an empty token")
	}

	quote, err := store.Redeem(context.Background(), token)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if quote.UnitID != "unit-1" || quote.Breakdown.Total.Amount != 61500 {
		t.Fatalf("redeemed quote = %+v, want the stored figures back", quote)
	}

	if _, err := store.Redeem(context.Background(), token); !errors.Is(err, ErrQuoteNotFound) {
		t.Fatalf("second redemption = %v, want %v", err, ErrQuoteNotFound)
	}
}

func TestRedeemExpiredToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(30 * time.Minute)
	store.Now = func() time.Time { return now }

	token, err := store.Issue(context.Background(), storedQuote())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	now = now.Add(31 * time.Minute)
	if _, err := store.Redeem(context.Background(), token); !errors.Is(err, ErrQuoteExpired) {
		t.Fatalf("Redeem past TTL = %v, want %v", err, ErrQuoteExpired)
	}
	// Expired tokens are consumed as well.
	if _, err := store.Redeem(context.Background(), token); !errors.Is(err, ErrQuoteNotFound) {
		t.Fatalf("re-redeeming an expired token = %v, want %v", err, ErrQuoteNotFound)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	store := NewStore(30 * time.Minute)
	if _, err := store.Redeem(context.Background(), "never-issued"); !errors.Is(err, ErrQuoteNotFound) {
		t.Fatalf("Redeem of an unknown token = %v, want %v", err, ErrQuoteNotFound)
	}
}

func TestIssueSweepsExpiredEntries(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(30 * time.Minute)
	store.Now = func() time.Time { return now }

	stale, err := store.Issue(context.Background(), storedQuote())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	now = now.Add(time.Hour)
	if _, err := store.Issue(context.Background(), storedQuote()); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := store.Redeem(context.Background(), stale); !errors.Is(err, ErrQuoteNotFound) {
		t.Fatalf("swept token = %v, want %v", err, ErrQuoteNotFound)
	}
}
