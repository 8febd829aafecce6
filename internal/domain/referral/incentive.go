package referral

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/money"
)

var (
	ErrPartyNotFound    = errors.New("referral: referring party not found")
	ErrPartyInactive    = errors.New("referral: referring party inactive")
	ErrNoActiveRule     = errors.New("referral: no active incentive rule")
	ErrRuleNotEffective = errors.New("referral: rule outside its effective window")
	ErrInvalidRate      = errors.New("referral: invalid rate definition")
)

type RateKind string

const (
	RatePercent RateKind = "percent"
	RateFixed   RateKind = "fixed"
)

// Rate is the shared percent-or-fixed rule used for both guest discounts and
// referrer commissions. Fixed values are major currency units.
type Rate struct {
	Kind  RateKind `bson:"kind" json:"type"`
	Value float64  `bson:"value" json:"value"`
}

func (r Rate) Validate() error {
	switch r.Kind {
	case RatePercent:
		if r.Value < 0 || r.Value > 100 {
			return ErrInvalidRate
		}
	case RateFixed:
		if r.Value < 0 {
			return ErrInvalidRate
		}
	default:
		return ErrInvalidRate
	}
	return nil
}

// AmountOf computes the rate against a basis, rounded to the cent and capped
// at the basis so downstream subtraction clamps at zero.
func (r Rate) AmountOf(basis money.Money) money.Money {
	var amount money.Money
	switch r.Kind {
	case RatePercent:
		amount = basis.Percent(r.Value)
	case RateFixed:
		fixed, err := money.FromFloat(r.Value, basis.Currency)
		if err != nil {
			return money.Money{Amount: 0, Currency: basis.Currency}
		}
		amount = fixed
	default:
		return money.Money{Amount: 0, Currency: basis.Currency}
	}
	if amount.Amount > basis.Amount {
		amount.Amount = basis.Amount
	}
	return amount.ClampZero()
}

type RuleID string
type PartyID string

// ReferringParty owns a referral code and earns commissions on attributed
// bookings.
type ReferringParty struct {
	ID        PartyID
	Name      string
	Code      string
	Active    bool
	CreatedAt time.Time
}

// IncentiveRule pairs the guest discount with the referrer commission. At
// most one active rule per party; new rules deactivate the prior one and
// history is never deleted.
type IncentiveRule struct {
	ID             RuleID
	PartyID        PartyID
	GuestDiscount  Rate
	Commission     Rate
	EffectiveStart *time.Time
	EffectiveEnd   *time.Time
	Active         bool
	CreatedAt      time.Time
}

func (r *IncentiveRule) Validate() error {
	if err := r.GuestDiscount.Validate(); err != nil {
		return err
	}
	if err := r.Commission.Validate(); err != nil {
		return err
	}
	if r.EffectiveStart != nil && r.EffectiveEnd != nil && r.EffectiveEnd.Before(*r.EffectiveStart) {
		return errors.New("referral: effective window end precedes start")
	}
	return nil
}

// InEffect reports whether now falls inside the rule's effective window; an
// unset bound on either side is unbounded.
func (r *IncentiveRule) InEffect(now time.Time) bool {
	if !r.Active {
		return false
	}
	if r.EffectiveStart != nil && now.Before(*r.EffectiveStart) {
		return false
	}
	if r.EffectiveEnd != nil && now.After(*r.EffectiveEnd) {
		return false
	}
	return true
}

// ApplyDiscount implements pricing.DiscountPolicy, making the resolved rule
// the single source of truth for the guest discount.
func (r *IncentiveRule) ApplyDiscount(subtotal money.Money) pricing.Discount {
	return pricing.Discount{
		Kind:   string(r.GuestDiscount.Kind),
		Value:  r.GuestDiscount.Value,
		Amount: r.GuestDiscount.AmountOf(subtotal),
	}
}

// CommissionOn computes the referrer's cut of the revenue basis, which is
// the pre-discount subtotal. Commission is earned on gross booking value; the
// guest discount is a cost borne by the business, never conflated here.
func (r *IncentiveRule) CommissionOn(revenueBasis money.Money) money.Money {
	return r.Commission.AmountOf(revenueBasis)
}

type PartyRepository interface {
	ByCode(ctx context.Context, code string) (*ReferringParty, error)
	ByID(ctx context.Context, id PartyID) (*ReferringParty, error)
	Save(ctx context.Context, party *ReferringParty) error
}

type IncentiveRepository interface {
	ActiveForParty(ctx context.Context, id PartyID) (*IncentiveRule, error)
	// Save persists a new rule and deactivates the party's prior active rule
	// in the same write; history is retained.
	Save(ctx context.Context, rule *IncentiveRule) error
	HistoryForParty(ctx context.Context, id PartyID) ([]*IncentiveRule, error)
}

var _ pricing.DiscountPolicy = (*IncentiveRule)(nil)
