package dto

import (
	"time"

	"staybook/internal/domain/availability"
)

// AvailabilityCheck is the availability result consumed by the booking flow.
type AvailabilityCheck struct {
	UnitID    string     `json:"unit_id"`
	CheckIn   time.Time  `json:"check_in"`
	CheckOut  time.Time  `json:"check_out"`
	Available bool       `json:"available"`
	Degraded  bool       `json:"degraded,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	BlockedOn *time.Time `json:"blocked_on,omitempty"`
	Price     *float64   `json:"price,omitempty"`
	Currency  string     `json:"currency,omitempty"`
}

func MapDecision(unitID string, checkIn, checkOut time.Time, d availability.Decision) AvailabilityCheck {
	out := AvailabilityCheck{
		UnitID:    unitID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Available: d.Available,
		Degraded:  d.Degraded,
		Reason:    string(d.Reason),
	}
	if !d.BlockedOn.IsZero() {
		blocked := d.BlockedOn
		out.BlockedOn = &blocked
	}
	return out
}
