package pricing

import (
	"errors"

	"staybook/internal/domain/shared/money"
)

var (
	ErrCurrencyUnset   = errors.New("pricing: currency must be defined")
	ErrInvalidNights   = errors.New("pricing: nights must be positive")
	ErrTotalMismatch   = errors.New("pricing: total does not equal the sum of its components")
	ErrNegativeLine    = errors.New("pricing: fee components cannot be negative")
	ErrDiscountMissing = errors.New("pricing: discounted subtotal without discount line")
)

// Discount describes the guest incentive applied to a subtotal.
type Discount struct {
	Kind   string      `json:"type" bson:"type"` // percent | fixed
	Value  float64     `json:"value" bson:"value"`
	Amount money.Money `json:"amount" bson:"amount"`
}

// PriceBreakdown is immutable once computed. Checkout and booking
// confirmation must reuse the exact figures rather than recomputing, so that
// client-displayed and server-confirmed totals match bit-for-bit.
type PriceBreakdown struct {
	NightlyRate        money.Money  `json:"nightly_rate" bson:"nightly_rate"`
	Nights             int          `json:"nights" bson:"nights"`
	Subtotal           money.Money  `json:"subtotal" bson:"subtotal"`
	CleaningFee        money.Money  `json:"cleaning_fee" bson:"cleaning_fee"`
	Tax                money.Money  `json:"tax" bson:"tax"`
	ChannelFee         money.Money  `json:"channel_fee" bson:"channel_fee"`
	PetFee             money.Money  `json:"pet_fee" bson:"pet_fee"`
	Discount           *Discount    `json:"discount,omitempty" bson:"discount,omitempty"`
	DiscountedSubtotal *money.Money `json:"discounted_subtotal,omitempty" bson:"discounted_subtotal,omitempty"`
	Total              money.Money  `json:"total" bson:"total"`
	Currency           string       `json:"currency" bson:"currency"`
	Source             Tier         `json:"source" bson:"source"`
}

// ChargedSubtotal is the amount percentage fees are computed against: the
// discounted subtotal when a discount applies, the plain subtotal otherwise.
func (p PriceBreakdown) ChargedSubtotal() money.Money {
	if p.DiscountedSubtotal != nil {
		return *p.DiscountedSubtotal
	}
	return p.Subtotal
}

// Validate enforces the to-the-cent invariant: total always equals the sum of
// the charged subtotal and every fee line.
func (p PriceBreakdown) Validate() error {
	if p.Currency == "" {
		return ErrCurrencyUnset
	}
	if p.Nights <= 0 {
		return ErrInvalidNights
	}
	for _, fee := range []money.Money{p.CleaningFee, p.Tax, p.ChannelFee, p.PetFee} {
		if fee.Amount < 0 {
			return ErrNegativeLine
		}
	}
	if p.DiscountedSubtotal != nil && p.Discount == nil {
		return ErrDiscountMissing
	}
	if p.Discount != nil {
		if p.DiscountedSubtotal == nil {
			return ErrDiscountMissing
		}
		// Round-trip invariant: discounted_subtotal = subtotal - discount_amount.
		if p.Subtotal.Amount-p.Discount.Amount.Amount != p.DiscountedSubtotal.Amount {
			return ErrTotalMismatch
		}
	}
	sum := p.ChargedSubtotal().Amount + p.CleaningFee.Amount + p.Tax.Amount + p.ChannelFee.Amount + p.PetFee.Amount
	if sum != p.Total.Amount {
		return ErrTotalMismatch
	}
	return nil
}

// Copy returns a deep copy; breakdowns handed to callers must not alias the
// stored quote.
func (p PriceBreakdown) Copy() PriceBreakdown {
	clone := p
	if p.Discount != nil {
		d := *p.Discount
		clone.Discount = &d
	}
	if p.DiscountedSubtotal != nil {
		s := *p.DiscountedSubtotal
		clone.DiscountedSubtotal = &s
	}
	return clone
}

// Equal compares two breakdowns figure by figure.
func (p PriceBreakdown) Equal(other PriceBreakdown) bool {
	if p.NightlyRate != other.NightlyRate || p.Nights != other.Nights ||
		p.Subtotal != other.Subtotal || p.CleaningFee != other.CleaningFee ||
		p.Tax != other.Tax || p.ChannelFee != other.ChannelFee ||
		p.PetFee != other.PetFee || p.Total != other.Total ||
		p.Currency != other.Currency || p.Source != other.Source {
		return false
	}
	if (p.Discount == nil) != (other.Discount == nil) {
		return false
	}
	if p.Discount != nil && *p.Discount != *other.Discount {
		return false
	}
	if (p.DiscountedSubtotal == nil) != (other.DiscountedSubtotal == nil) {
		return false
	}
	if p.DiscountedSubtotal != nil && *p.DiscountedSubtotal != *other.DiscountedSubtotal {
		return false
	}
	return true
}
