package booking

import (
	"errors"
	"time"

	"staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/units"
)

var (
	// ErrNoLongerAvailable is the confirmation-time re-check failure: the
	// snapshot claimed availability but a concurrent booking has since
	// claimed the range. User-visible, never retried automatically.
	ErrNoLongerAvailable = errors.New("booking: range no longer available")
	// ErrQuoteMismatch means the presented quote token was issued for a
	// different stay than the one being confirmed.
	ErrQuoteMismatch = errors.New("booking: quote does not match the stay being confirmed")
	ErrCheckInInPast = errors.New("booking: check-in date is in the past")
)

// ValidateCheckIn rejects stays that begin before today.
func ValidateCheckIn(dr daterange.DateRange, now time.Time) error {
	if dr.CheckIn.Before(daterange.Day(now)) {
		return ErrCheckInInPast
	}
	return nil
}

// Confirmed is recorded once the final availability gate passes and the
// server-held quote figures are locked in.
type Confirmed struct {
	BookingID string
	UnitID    units.UnitID
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	Total     int64
	Currency  string
	Source    pricing.Tier
	At        time.Time
}

func (e Confirmed) EventName() string     { return "booking.confirmed" }
func (e Confirmed) AggregateID() string   { return e.BookingID }
func (e Confirmed) OccurredAt() time.Time { return e.At }
