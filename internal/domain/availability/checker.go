package availability

import (
	"errors"
	"time"

	"staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/daterange"
)

var (
	ErrInvalidRange  = errors.New("availability: check-out must be after check-in")
	ErrInvalidGuests = errors.New("availability: guest count must be positive")
)

// Reason explains a negative or degraded decision.
type Reason string

const (
	ReasonStartBlocked    Reason = "start_blocked"
	ReasonInteriorBlocked Reason = "interior_blocked"
	ReasonEndBlocked      Reason = "end_blocked"
	ReasonMinimumStay     Reason = "minimum_stay"
	ReasonCalendarUnknown Reason = "calendar_unknown"
)

// Decision is the calendar verdict for a candidate stay. Pricing is attached
// by the caller; a pricing failure never overturns a calendar verdict.
type Decision struct {
	Available bool
	// Degraded marks the soft-degrade path: part or all of the calendar
	// could not be consulted, availability is assumed for the unknown dates,
	// and booking-time re-validation is the final gate.
	Degraded bool
	Reason   Reason
	// BlockedOn is the first date that failed classification, when any.
	BlockedOn time.Time
}

// Checker walks a candidate stay against one snapshot. Calendar truth always
// wins over pricing-service truth: a known solid block fails the range even
// when other dates are missing, and only the unknown remainder is assumed
// available.
type Checker struct{}

// Validate rejects malformed input before any classification runs. A stay of
// zero nights never reaches the classifier.
func (Checker) Validate(dr daterange.DateRange, guests int) error {
	if err := dr.Validate(); err != nil {
		return ErrInvalidRange
	}
	if guests <= 0 {
		return ErrInvalidGuests
	}
	return nil
}

// Evaluate decides bookability of [checkIn, checkOut) for the snapshot.
// fetchFailed signals that the calendar feed itself could not be consulted;
// the policy there is assume-available with mandatory re-validation at
// booking confirmation.
func (c Checker) Evaluate(snap *calendar.Snapshot, fetchFailed bool, dr daterange.DateRange, guests int) (Decision, error) {
	if err := c.Validate(dr, guests); err != nil {
		return Decision{}, err
	}

	if fetchFailed || snap.Empty() {
		return Decision{Available: true, Degraded: true, Reason: ReasonCalendarUnknown}, nil
	}

	index := calendar.BuildNextCheckInIndex(snap)
	classifier := calendar.Classifier{Snapshot: snap, Index: index}
	unknown := 0
	classify := func(d time.Time, checkIn bool) calendar.DateStatus {
		var status calendar.DateStatus
		if checkIn {
			status = classifier.ClassifyForCheckIn(d)
		} else {
			status = classifier.Classify(d)
		}
		if status == calendar.StatusUnknown {
			unknown++
			// Unknown-date optimism applies only here, inside the explicit
			// degrade accounting; the decision below is flagged Degraded.
			return calendar.StatusOpen
		}
		return status
	}

	// (1) The stay must begin on a date fit for a new check-in.
	if status := classify(dr.CheckIn, true); status != calendar.StatusOpen {
		return Decision{Reason: ReasonStartBlocked, BlockedOn: dr.CheckIn}, nil
	}
	if entry, ok := snap.Entry(dr.CheckIn); ok && entry.MinimumStay > 0 && dr.Nights() < entry.MinimumStay {
		return Decision{Reason: ReasonMinimumStay, BlockedOn: dr.CheckIn}, nil
	}

	// (2) Interior dates may be open or handover days; any solid block fails
	// the whole range immediately, no need to scan further.
	for _, d := range dr.Interior() {
		switch classify(d, false) {
		case calendar.StatusOpen, calendar.StatusCheckoutOnly:
		default:
			return Decision{Reason: ReasonInteriorBlocked, BlockedOn: d}, nil
		}
	}

	// (3) The departure date must be free for the next guest's arrival.
	switch classify(dr.CheckOut, false) {
	case calendar.StatusOpen, calendar.StatusCheckoutOnly:
	default:
		return Decision{Reason: ReasonEndBlocked, BlockedOn: dr.CheckOut}, nil
	}

	if unknown > 0 {
		return Decision{Available: true, Degraded: true, Reason: ReasonCalendarUnknown}, nil
	}
	return Decision{Available: true}, nil
}
