package pricing

import (
	"staybook/internal/domain/shared/money"
)

// DiscountPolicy turns a subtotal into an applied discount line. The referral
// incentive in effect implements it; a nil policy means no discount.
type DiscountPolicy interface {
	ApplyDiscount(subtotal money.Money) Discount
}

// FeeSchedule holds the platform fee configuration applied uniformly to every
// pricing tier. Flat amounts are minor units in the quote currency.
type FeeSchedule struct {
	CleaningFeeCents  int64
	PetFeeCents       int64
	TaxPercent        float64
	ChannelFeePercent float64
}

// Apply assembles the final breakdown from a resolved subtotal. Percentage
// fees are computed from the subtotal actually charged (the discounted
// subtotal when a discount applies) and every monetary result is rounded at
// the point of computation.
func (f FeeSchedule) Apply(base PriceBreakdown, pets int, discount DiscountPolicy) (PriceBreakdown, error) {
	currency := base.Currency
	p := base

	charged := p.Subtotal
	if discount != nil {
		line := discount.ApplyDiscount(p.Subtotal)
		if line.Amount.Amount > 0 {
			discounted, err := p.Subtotal.Sub(line.Amount)
			if err != nil {
				return PriceBreakdown{}, err
			}
			p.Discount = &line
			p.DiscountedSubtotal = &discounted
			charged = discounted
		}
	}

	p.CleaningFee = money.Money{Amount: f.CleaningFeeCents, Currency: currency}
	p.Tax = charged.Percent(f.TaxPercent)
	p.ChannelFee = charged.Percent(f.ChannelFeePercent)
	p.PetFee = money.Money{Amount: 0, Currency: currency}
	if pets > 0 {
		// Flat, once per stay, not per pet.
		p.PetFee = money.Money{Amount: f.PetFeeCents, Currency: currency}
	}

	p.Total = money.Money{
		Amount:   charged.Amount + p.CleaningFee.Amount + p.Tax.Amount + p.ChannelFee.Amount + p.PetFee.Amount,
		Currency: currency,
	}
	if err := p.Validate(); err != nil {
		return PriceBreakdown{}, err
	}
	return p, nil
}
