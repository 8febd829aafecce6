package calendar

import (
	"sort"
	"time"

	"staybook/internal/domain/shared/daterange"
)

// NextCheckInIndex answers "when does the next reservation begin after date d"
// in O(log n). It caps how far a checkout may be pushed past a candidate
// check-in (minimum-stay and back-to-back enforcement). Built once per
// snapshot in a single pass over the reservations and reused for the whole
// checker walk; never rebuilt per candidate date and never persisted.
type NextCheckInIndex struct {
	arrivals []time.Time // sorted, deduplicated
}

// BuildNextCheckInIndex scans the snapshot's reservations once.
func BuildNextCheckInIndex(s *Snapshot) *NextCheckInIndex {
	idx := &NextCheckInIndex{}
	if s == nil {
		return idx
	}
	seen := make(map[time.Time]bool)
	for _, f := range s.Reservations() {
		day := daterange.Day(f.Arrival)
		if !seen[day] {
			seen[day] = true
			idx.arrivals = append(idx.arrivals, day)
		}
	}
	sort.Slice(idx.arrivals, func(i, j int) bool { return idx.arrivals[i].Before(idx.arrivals[j]) })
	return idx
}

// NextArrivalAfter returns the earliest reservation arrival strictly after d.
func (idx *NextCheckInIndex) NextArrivalAfter(d time.Time) (time.Time, bool) {
	if idx == nil || len(idx.arrivals) == 0 {
		return time.Time{}, false
	}
	day := daterange.Day(d)
	i := sort.Search(len(idx.arrivals), func(i int) bool { return idx.arrivals[i].After(day) })
	if i == len(idx.arrivals) {
		return time.Time{}, false
	}
	return idx.arrivals[i], true
}

// ArrivalOn reports whether some reservation begins exactly on d.
func (idx *NextCheckInIndex) ArrivalOn(d time.Time) bool {
	if idx == nil || len(idx.arrivals) == 0 {
		return false
	}
	day := daterange.Day(d)
	i := sort.Search(len(idx.arrivals), func(i int) bool { return !idx.arrivals[i].Before(day) })
	return i < len(idx.arrivals) && idx.arrivals[i].Equal(day)
}
