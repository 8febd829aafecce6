package calendar

import (
	"testing"
	"time"

	"staybook/internal/domain/units"
)

func indexSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	first := ReservationFact{ID: "res-1", Arrival: day(t, "2024-06-10"), Departure: day(t, "2024-06-13"), Status: ReservationConfirmed}
	second := ReservationFact{ID: "res-2", Arrival: day(t, "2024-06-20"), Departure: day(t, "2024-06-25"), Status: ReservationConfirmed}
	cancelled := ReservationFact{ID: "res-3", Arrival: day(t, "2024-06-15"), Departure: day(t, "2024-06-17"), Status: ReservationCancelled}

	entries := []Entry{
		{UnitID: "u1", Date: day(t, "2024-06-10"), Reservations: []ReservationFact{first}},
		// The same reservation appears on every date it touches; the index
		// must deduplicate by id in its single pass.
		{UnitID: "u1", Date: day(t, "2024-06-11"), Reservations: []ReservationFact{first}},
		{UnitID: "u1", Date: day(t, "2024-06-15"), Reservations: []ReservationFact{cancelled}},
		{UnitID: "u1", Date: day(t, "2024-06-20"), Reservations: []ReservationFact{second}},
	}
	return NewSnapshot(units.UnitID("u1"), day(t, "2024-06-01"), day(t, "2024-06-30"), entries, time.Now())
}

func TestNextArrivalAfter(t *testing.T) {
	idx := BuildNextCheckInIndex(indexSnapshot(t))

	next, ok := idx.NextArrivalAfter(day(t, "2024-06-05"))
	if !ok || !next.Equal(day(t, "2024-06-10")) {
		t.Fatalf("NextArrivalAfter(06-05) = %v ok=%v, want 2024-06-10", next, ok)
	}

	// Strictly after: an arrival on the queried date itself does not count.
	next, ok = idx.NextArrivalAfter(day(t, "2024-06-10"))
	if !ok || !next.Equal(day(t, "2024-06-20")) {
		t.Fatalf("NextArrivalAfter(06-10) = %v ok=%v, want 2024-06-20", next, ok)
	}

	if _, ok := idx.NextArrivalAfter(day(t, "2024-06-25")); ok {
		t.Fatalf("NextArrivalAfter past the last arrival should report none")
	}
}

func TestNextArrivalSkipsCancelled(t *testing.T) {
	idx := BuildNextCheckInIndex(indexSnapshot(t))
	next, ok := idx.NextArrivalAfter(day(t, "2024-06-13"))
	if !ok || !next.Equal(day(t, "2024-06-20")) {
		t.Fatalf("NextArrivalAfter(06-13) = %v ok=%v, want 2024-06-20 (cancelled arrival skipped)", next, ok)
	}
}

func TestArrivalOn(t *testing.T) {
	idx := BuildNextCheckInIndex(indexSnapshot(t))
	if !idx.ArrivalOn(day(t, "2024-06-10")) {
		t.Fatalf("ArrivalOn(06-10) = false, want true")
	}
	if idx.ArrivalOn(day(t, "2024-06-11")) {
		t.Fatalf("ArrivalOn(06-11) = true, want false")
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := BuildNextCheckInIndex(nil)
	if _, ok := idx.NextArrivalAfter(day(t, "2024-06-01")); ok {
		t.Fatalf("empty index should report no arrivals")
	}
}
