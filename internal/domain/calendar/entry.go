package calendar

import (
	"errors"
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/units"
)

var (
	ErrNoEntry      = errors.New("calendar: no entry for date")
	ErrEmptyRange   = errors.New("calendar: snapshot covers no dates")
	ErrOutsideRange = errors.New("calendar: date outside fetched range")
)

// ReservationStatus mirrors the states the remote system reports. Cancelled
// facts are kept for audit but never block a date.
type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationPending   ReservationStatus = "pending"
	ReservationCancelled ReservationStatus = "cancelled"
)

// ReservationFact is a read-only reservation sourced from the remote system.
type ReservationFact struct {
	ID        string
	Arrival   time.Time
	Departure time.Time
	Status    ReservationStatus
}

// Blocking reports whether the fact occupies nights at all.
func (f ReservationFact) Blocking() bool {
	return f.Status != ReservationCancelled
}

// Span returns the half-open [arrival, departure) range of the stay.
func (f ReservationFact) Span() daterange.DateRange {
	return daterange.DateRange{CheckIn: daterange.Day(f.Arrival), CheckOut: daterange.Day(f.Departure)}
}

// Entry holds the per-date facts for one unit. One entry per (unit, date);
// mutated only by snapshot refresh or invalidation.
type Entry struct {
	UnitID       units.UnitID
	Date         time.Time
	Available    bool
	Price        *money.Money
	MinimumStay  int // 0 means unset
	Reservations []ReservationFact
}

// Conflict marks two non-cancelled reservations whose spans overlap. The
// snapshot surfaces these instead of silently picking one.
type Conflict struct {
	UnitID units.UnitID
	First  ReservationFact
	Second ReservationFact
}

// Snapshot is the locally cached copy of a unit's calendar facts over a
// fetched range. Dates outside [From, To) are unknown, not open.
type Snapshot struct {
	UnitID    units.UnitID
	From      time.Time
	To        time.Time
	FetchedAt time.Time
	entries   map[time.Time]Entry
}

// NewSnapshot builds a snapshot from canonical entries. The entries slice is
// the output of the ingestion normalization step; this constructor only
// indexes it and never interprets upstream field variants.
func NewSnapshot(unitID units.UnitID, from, to time.Time, entries []Entry, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		UnitID:    unitID,
		From:      daterange.Day(from),
		To:        daterange.Day(to),
		FetchedAt: fetchedAt,
		entries:   make(map[time.Time]Entry, len(entries)),
	}
	for _, e := range entries {
		e.Date = daterange.Day(e.Date)
		s.entries[e.Date] = e
	}
	return s
}

// Entry returns the calendar entry for the date, if fetched.
func (s *Snapshot) Entry(date time.Time) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.entries[daterange.Day(date)]
	return e, ok
}

// Empty reports whether the snapshot carries no per-date data at all.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.entries) == 0
}

// Covers reports whether every night of the range has a fetched entry.
func (s *Snapshot) Covers(dr daterange.DateRange) bool {
	if s == nil {
		return false
	}
	for _, d := range dr.Days() {
		if _, ok := s.entries[d]; !ok {
			return false
		}
	}
	return true
}

// Reservations returns the distinct blocking reservations across all entries.
func (s *Snapshot) Reservations() []ReservationFact {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []ReservationFact
	for _, e := range s.entries {
		for _, f := range e.Reservations {
			if !f.Blocking() {
				continue
			}
			if f.ID != "" && seen[f.ID] {
				continue
			}
			if f.ID != "" {
				seen[f.ID] = true
			}
			out = append(out, f)
		}
	}
	return out
}

// Conflicts reports overlapping blocking reservations. A clean feed returns
// none; anything returned must be surfaced, not resolved silently.
func (s *Snapshot) Conflicts() []Conflict {
	facts := s.Reservations()
	var conflicts []Conflict
	for i := 0; i < len(facts); i++ {
		for j := i + 1; j < len(facts); j++ {
			if facts[i].Span().Overlaps(facts[j].Span()) {
				conflicts = append(conflicts, Conflict{UnitID: s.UnitID, First: facts[i], Second: facts[j]})
			}
		}
	}
	return conflicts
}

// NightPrice returns the price for the given night when the feed supplied one.
func (s *Snapshot) NightPrice(date time.Time) (money.Money, bool) {
	e, ok := s.Entry(date)
	if !ok || e.Price == nil {
		return money.Money{}, false
	}
	return *e.Price, true
}
