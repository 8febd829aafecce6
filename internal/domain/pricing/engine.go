package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/units"
)

// Tier identifies which resolution source produced a subtotal.
type Tier string

const (
	TierSnapshot    Tier = "snapshot"
	TierRemoteQuote Tier = "remote_quote"
	TierBaseRate    Tier = "base_rate"
	TierDefaultRate Tier = "default_rate"
)

// ErrTierMiss signals that a tier cannot price the stay and the next one
// should be attempted. Each tier's failure condition is explicit so the
// chain is testable in isolation.
var ErrTierMiss = errors.New("pricing: tier cannot price this stay")

var ErrUnitRequired = errors.New("pricing: unit metadata required")

// Last-resort nightly rate when the unit carries none and configuration is
// silent. Reaching it is a degraded-pricing event and is always logged.
const fallbackNightlyCents int64 = 9900

// QuoteRequest is the remote pricing quote contract.
type QuoteRequest struct {
	UnitID units.UnitID
	Range  daterange.DateRange
	Guests int
}

type QuoteBreakdown struct {
	Nights      int
	NightlyRate float64
	Subtotal    float64
	Total       float64
	Currency    string
}

type QuoteResponse struct {
	Available bool
	Breakdown *QuoteBreakdown
}

// QuoteService is implemented by the remote pricing client. Retry policy is
// the client's responsibility; the engine makes exactly one call per attempt
// at this tier.
type QuoteService interface {
	Quote(ctx context.Context, req QuoteRequest) (QuoteResponse, error)
}

type QuoteInput struct {
	Unit     *units.Unit
	Range    daterange.DateRange
	Guests   int
	Pets     int
	Snapshot *calendar.Snapshot
	Discount DiscountPolicy
}

// Engine resolves a stay subtotal through the ordered fallback tiers and
// applies the fee schedule uniformly on top. Identical inputs against an
// unchanged snapshot yield byte-identical breakdowns.
type Engine struct {
	Quotes              QuoteService
	Fees                FeeSchedule
	DefaultNightlyCents int64
	Logger              *slog.Logger
}

// Price resolves the subtotal through the tiers in order, first success
// wins, then applies the fee schedule.
func (e *Engine) Price(ctx context.Context, input QuoteInput) (PriceBreakdown, error) {
	if input.Unit == nil {
		return PriceBreakdown{}, ErrUnitRequired
	}
	if err := input.Range.Validate(); err != nil {
		return PriceBreakdown{}, err
	}

	base, err := e.resolveSubtotal(ctx, input)
	if err != nil {
		return PriceBreakdown{}, err
	}
	return e.Fees.Apply(base, input.Pets, input.Discount)
}

func (e *Engine) resolveSubtotal(ctx context.Context, input QuoteInput) (PriceBreakdown, error) {
	type tier struct {
		name    Tier
		resolve func(context.Context, QuoteInput) (PriceBreakdown, error)
	}
	tiers := []tier{
		{TierSnapshot, e.fromSnapshot},
		{TierRemoteQuote, e.fromRemoteQuote},
		{TierBaseRate, e.fromBaseRate},
		{TierDefaultRate, e.fromDefaultRate},
	}
	var lastErr error
	for _, t := range tiers {
		base, err := t.resolve(ctx, input)
		if err == nil {
			base.Source = t.name
			return base, nil
		}
		if !errors.Is(err, ErrTierMiss) {
			// Remote failures degrade to the next tier rather than blocking
			// the caller; anything else is a programming error.
			if t.name != TierRemoteQuote {
				return PriceBreakdown{}, err
			}
		}
		lastErr = err
	}
	return PriceBreakdown{}, fmt.Errorf("pricing: all tiers exhausted: %w", lastErr)
}

// fromSnapshot sums per-date snapshot prices across the stay, departure date
// excluded. Partial coverage is a miss, never an average.
func (e *Engine) fromSnapshot(_ context.Context, input QuoteInput) (PriceBreakdown, error) {
	snap := input.Snapshot
	if snap.Empty() {
		return PriceBreakdown{}, ErrTierMiss
	}
	nights := input.Range.Nights()
	var subtotal int64
	currency := ""
	for _, d := range input.Range.Days() {
		price, ok := snap.NightPrice(d)
		if !ok {
			return PriceBreakdown{}, ErrTierMiss
		}
		if currency == "" {
			currency = price.Currency
		} else if currency != price.Currency {
			return PriceBreakdown{}, ErrTierMiss
		}
		subtotal += price.Amount
	}
	if currency == "" {
		return PriceBreakdown{}, ErrTierMiss
	}
	return PriceBreakdown{
		NightlyRate: money.Money{Amount: averageNightly(subtotal, nights), Currency: currency},
		Nights:      nights,
		Subtotal:    money.Money{Amount: subtotal, Currency: currency},
		Currency:    currency,
	}, nil
}

func (e *Engine) fromRemoteQuote(ctx context.Context, input QuoteInput) (PriceBreakdown, error) {
	if e.Quotes == nil {
		return PriceBreakdown{}, ErrTierMiss
	}
	resp, err := e.Quotes.Quote(ctx, QuoteRequest{
		UnitID: input.Unit.ID,
		Range:  input.Range,
		Guests: input.Guests,
	})
	if err != nil {
		return PriceBreakdown{}, fmt.Errorf("pricing: remote quote failed: %w", err)
	}
	if !resp.Available || resp.Breakdown == nil || resp.Breakdown.Currency == "" {
		return PriceBreakdown{}, ErrTierMiss
	}
	nights := input.Range.Nights()
	currency := resp.Breakdown.Currency
	subtotalFloat := resp.Breakdown.Subtotal
	if subtotalFloat <= 0 {
		subtotalFloat = resp.Breakdown.NightlyRate * float64(nights)
	}
	if subtotalFloat <= 0 {
		return PriceBreakdown{}, ErrTierMiss
	}
	subtotal, err := money.FromFloat(subtotalFloat, currency)
	if err != nil {
		return PriceBreakdown{}, ErrTierMiss
	}
	return PriceBreakdown{
		NightlyRate: money.Money{Amount: averageNightly(subtotal.Amount, nights), Currency: currency},
		Nights:      nights,
		Subtotal:    subtotal,
		Currency:    currency,
	}, nil
}

func (e *Engine) fromBaseRate(_ context.Context, input QuoteInput) (PriceBreakdown, error) {
	unit := input.Unit
	if unit.BaseNightlyRate <= 0 || unit.Currency == "" {
		return PriceBreakdown{}, ErrTierMiss
	}
	nights := input.Range.Nights()
	nightly := money.Money{Amount: unit.BaseNightlyRate, Currency: unit.Currency}
	return PriceBreakdown{
		NightlyRate: nightly,
		Nights:      nights,
		Subtotal:    nightly.Multiply(int64(nights)),
		Currency:    unit.Currency,
	}, nil
}

func (e *Engine) fromDefaultRate(_ context.Context, input QuoteInput) (PriceBreakdown, error) {
	nightlyCents := e.DefaultNightlyCents
	if nightlyCents <= 0 {
		nightlyCents = fallbackNightlyCents
	}
	currency := input.Unit.Currency
	if currency == "" {
		currency = "USD"
	}
	if e.Logger != nil {
		e.Logger.Warn("pricing degraded to default nightly rate",
			"unit_id", input.Unit.ID,
			"check_in", input.Range.CheckIn,
			"check_out", input.Range.CheckOut,
			"nightly_cents", nightlyCents,
		)
	}
	nights := input.Range.Nights()
	nightly := money.Money{Amount: nightlyCents, Currency: currency}
	return PriceBreakdown{
		NightlyRate: nightly,
		Nights:      nights,
		Subtotal:    nightly.Multiply(int64(nights)),
		Currency:    currency,
	}, nil
}

func averageNightly(subtotalCents int64, nights int) int64 {
	if nights <= 0 {
		return subtotalCents
	}
	return int64(math.Round(float64(subtotalCents) / float64(nights)))
}
