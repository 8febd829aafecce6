package calendar

import (
	"time"

	"staybook/internal/domain/shared/daterange"
)

// DateStatus is derived from the snapshot plus the caller's intent; it is
// never stored. The same date classifies differently depending on whether it
// is evaluated as a potential new check-in or as a mid-stay date.
type DateStatus string

const (
	// StatusOpen: the date is free for a full night.
	StatusOpen DateStatus = "open"
	// StatusCheckoutOnly: a reservation departs that day; a new stay may
	// start the same day but the preceding night is taken.
	StatusCheckoutOnly DateStatus = "checkout-only"
	// StatusSolidBlock: interior to a blocking reservation, or otherwise
	// unavailable for any use.
	StatusSolidBlock DateStatus = "solid-block"
	// StatusUnknown: the date lies outside the fetched snapshot range. The
	// caller resolves it via its fallback policy; only explicit optimism
	// treats it as open.
	StatusUnknown DateStatus = "unknown"
)

// Classifier maps single dates to statuses against one snapshot and its
// prebuilt next-check-in index.
type Classifier struct {
	Snapshot *Snapshot
	Index    *NextCheckInIndex

	// UnknownDateOptimism lets dates outside the fetched range classify as
	// open. Off by default; the checker enables it only on the
	// calendar-fetch-failure soft-degrade path.
	UnknownDateOptimism bool
}

// Classify answers the general stay-membership question for a date.
func (c Classifier) Classify(date time.Time) DateStatus {
	day := daterange.Day(date)
	entry, ok := c.Snapshot.Entry(day)
	if !ok {
		if c.UnknownDateOptimism {
			return StatusOpen
		}
		return StatusUnknown
	}

	var interior, departure bool
	for _, f := range entry.Reservations {
		if !f.Blocking() {
			continue
		}
		span := f.Span()
		if span.ContainsDate(day) {
			// Arrival day included; departure day excluded by the
			// half-open span.
			interior = true
		}
		if span.CheckOut.Equal(day) {
			departure = true
		}
	}

	if interior {
		return StatusSolidBlock
	}
	if entry.Available {
		return StatusOpen
	}
	// Unavailable but solely a checkout boundary: guests depart that day and
	// a new stay may begin the same day.
	if departure {
		return StatusCheckoutOnly
	}
	return StatusSolidBlock
}

// ClassifyForCheckIn answers the stricter "is this date fit to be a NEW
// check-in" question. A checkout-only date is a valid handover check-in, but
// it demotes to solid-block when the minimum stay cannot fit before the next
// reservation begins.
func (c Classifier) ClassifyForCheckIn(date time.Time) DateStatus {
	day := daterange.Day(date)
	status := c.Classify(day)
	if status == StatusSolidBlock || status == StatusUnknown {
		return status
	}

	minStay := 1
	if entry, ok := c.Snapshot.Entry(day); ok && entry.MinimumStay > minStay {
		minStay = entry.MinimumStay
	}
	if next, ok := c.Index.NextArrivalAfter(day); ok {
		nightsUntilNext := int(next.Sub(day).Hours() / 24)
		if nightsUntilNext < minStay {
			return StatusSolidBlock
		}
	}
	return StatusOpen
}
