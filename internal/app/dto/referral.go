package dto

import (
	"time"

	"staybook/internal/domain/referral"
)

type Attribution struct {
	ID              string    `json:"id"`
	BookingID       string    `json:"booking_id"`
	PartyID         string    `json:"referring_party_id"`
	ReferralCode    string    `json:"referral_code"`
	DiscountApplied PriceLine `json:"guest_discount_applied"`
	RevenueBasis    PriceLine `json:"revenue_basis"`
	CommissionOwed  PriceLine `json:"commission_owed"`
	CreatedAt       time.Time `json:"created_at"`
}

func MapAttribution(a *referral.BookingAttribution) Attribution {
	return Attribution{
		ID:              string(a.ID),
		BookingID:       a.BookingID,
		PartyID:         string(a.PartyID),
		ReferralCode:    a.ReferralCode,
		DiscountApplied: line(a.DiscountApplied.Amount),
		RevenueBasis:    line(a.RevenueBasis.Amount),
		CommissionOwed:  line(a.CommissionOwed.Amount),
		CreatedAt:       a.CreatedAt,
	}
}

// CommissionReportRow is one attribution with its ledger status, consumed by
// reporting.
type CommissionReportRow struct {
	BookingDate      time.Time `json:"booking_date"`
	BookingID        string    `json:"booking_id"`
	PartyID          string    `json:"referring_party_id"`
	RevenueBasis     PriceLine `json:"revenue_basis"`
	DiscountApplied  PriceLine `json:"discount_applied"`
	CommissionOwed   PriceLine `json:"commission_owed"`
	CommissionStatus string    `json:"commission_status"`
}

type CommissionReport struct {
	From           time.Time             `json:"from"`
	To             time.Time             `json:"to"`
	Rows           []CommissionReportRow `json:"rows"`
	TotalOwed      PriceLine             `json:"total_owed"`
	TotalPaid      PriceLine             `json:"total_paid"`
	TotalCancelled PriceLine             `json:"total_cancelled"`
}

type IncentiveRule struct {
	ID             string     `json:"id"`
	PartyID        string     `json:"referring_party_id"`
	DiscountType   string     `json:"guest_discount_type"`
	DiscountValue  float64    `json:"guest_discount_value"`
	CommissionType string     `json:"commission_type"`
	CommissionVal  float64    `json:"commission_value"`
	EffectiveStart *time.Time `json:"effective_start,omitempty"`
	EffectiveEnd   *time.Time `json:"effective_end,omitempty"`
	Active         bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
}

func MapIncentiveRule(r *referral.IncentiveRule) IncentiveRule {
	return IncentiveRule{
		ID:             string(r.ID),
		PartyID:        string(r.PartyID),
		DiscountType:   string(r.GuestDiscount.Kind),
		DiscountValue:  r.GuestDiscount.Value,
		CommissionType: string(r.Commission.Kind),
		CommissionVal:  r.Commission.Value,
		EffectiveStart: r.EffectiveStart,
		EffectiveEnd:   r.EffectiveEnd,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
	}
}
