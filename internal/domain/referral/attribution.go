package referral

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrAttributionExists   = errors.New("referral: booking already attributed")
	ErrAttributionNotFound = errors.New("referral: attribution not found")
)

type AttributionID string

// BookingAttribution is the point-in-time snapshot tying a booking to the
// incentive in effect. Immutable after creation; later rule edits never
// retroactively change it. One per booking.
type BookingAttribution struct {
	ID              AttributionID
	BookingID       string
	PartyID         PartyID
	ReferralCode    string
	RuleID          RuleID
	DiscountApplied money.Money
	RevenueBasis    money.Money
	CommissionOwed  money.Money
	CreatedAt       time.Time
	events.EventRecorder
}

type NewAttributionParams struct {
	ID              AttributionID
	BookingID       string
	Party           *ReferringParty
	Rule            *IncentiveRule
	ReferralCode    string
	DiscountApplied money.Money
	RevenueBasis    money.Money
	Now             time.Time
}

// NewAttribution snapshots the resolved rule into an attribution record and
// computes the commission from the pre-discount revenue basis.
func NewAttribution(params NewAttributionParams) (*BookingAttribution, error) {
	if params.BookingID == "" {
		return nil, errors.New("referral: booking id required")
	}
	if params.Party == nil || params.Rule == nil {
		return nil, ErrNoActiveRule
	}
	a := &BookingAttribution{
		ID:              params.ID,
		BookingID:       params.BookingID,
		PartyID:         params.Party.ID,
		ReferralCode:    params.ReferralCode,
		RuleID:          params.Rule.ID,
		DiscountApplied: params.DiscountApplied,
		RevenueBasis:    params.RevenueBasis,
		CommissionOwed:  params.Rule.CommissionOn(params.RevenueBasis),
		CreatedAt:       params.Now.UTC(),
	}
	a.Record(BookingAttributed{
		AttributionID:  a.ID,
		BookingID:      a.BookingID,
		PartyID:        a.PartyID,
		CommissionOwed: a.CommissionOwed,
		At:             a.CreatedAt,
	})
	return a, nil
}

type AttributionRepository interface {
	ByID(ctx context.Context, id AttributionID) (*BookingAttribution, error)
	ByBooking(ctx context.Context, bookingID string) (*BookingAttribution, error)
	// Save fails with ErrAttributionExists when the booking already has one.
	Save(ctx context.Context, attribution *BookingAttribution) error
	ListByPeriod(ctx context.Context, from, to time.Time) ([]*BookingAttribution, error)
}
