package dto

import (
	"staybook/internal/domain/pricing"
)

// PriceLine renders one monetary figure in major units alongside its cents,
// so clients display exactly what the server computed.
type PriceLine struct {
	Amount float64 `json:"amount"`
	Cents  int64   `json:"cents"`
}

type DiscountLine struct {
	Type   string    `json:"type"`
	Value  float64   `json:"value"`
	Amount PriceLine `json:"amount"`
}

// StayQuote is the checkout-facing price breakdown plus the quote token the
// confirmation step must present back.
type StayQuote struct {
	UnitID             string        `json:"unit_id"`
	NightlyRate        PriceLine     `json:"nightly_rate"`
	Nights             int           `json:"nights"`
	Subtotal           PriceLine     `json:"subtotal"`
	CleaningFee        PriceLine     `json:"cleaning_fee"`
	Tax                PriceLine     `json:"tax"`
	ChannelFee         PriceLine     `json:"channel_fee"`
	PetFee             PriceLine     `json:"pet_fee"`
	Discount           *DiscountLine `json:"discount,omitempty"`
	DiscountedSubtotal *PriceLine    `json:"discounted_subtotal,omitempty"`
	Total              PriceLine     `json:"total"`
	Currency           string        `json:"currency"`
	Source             string        `json:"source"`
	QuoteToken         string        `json:"quote_token,omitempty"`
}

func line(cents int64) PriceLine {
	return PriceLine{Amount: float64(cents) / 100, Cents: cents}
}

func MapBreakdown(unitID string, p pricing.PriceBreakdown, token string) StayQuote {
	q := StayQuote{
		UnitID:      unitID,
		NightlyRate: line(p.NightlyRate.Amount),
		Nights:      p.Nights,
		Subtotal:    line(p.Subtotal.Amount),
		CleaningFee: line(p.CleaningFee.Amount),
		Tax:         line(p.Tax.Amount),
		ChannelFee:  line(p.ChannelFee.Amount),
		PetFee:      line(p.PetFee.Amount),
		Total:       line(p.Total.Amount),
		Currency:    p.Currency,
		Source:      string(p.Source),
		QuoteToken:  token,
	}
	if p.Discount != nil {
		q.Discount = &DiscountLine{
			Type:   p.Discount.Kind,
			Value:  p.Discount.Value,
			Amount: line(p.Discount.Amount.Amount),
		}
	}
	if p.DiscountedSubtotal != nil {
		l := line(p.DiscountedSubtotal.Amount)
		q.DiscountedSubtotal = &l
	}
	return q
}
