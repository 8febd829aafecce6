package calendar

import (
	"time"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/units"
)

type SnapshotRefreshed struct {
	UnitID units.UnitID
	From   time.Time
	To     time.Time
	At     time.Time
}

func (e SnapshotRefreshed) EventName() string     { return "calendar.snapshot_refreshed" }
func (e SnapshotRefreshed) AggregateID() string   { return string(e.UnitID) }
func (e SnapshotRefreshed) OccurredAt() time.Time { return e.At }

type ConflictDetected struct {
	UnitID         units.UnitID
	FirstID        string
	SecondID       string
	OverlapCheckIn time.Time
	At             time.Time
}

func (e ConflictDetected) EventName() string     { return "calendar.conflict_detected" }
func (e ConflictDetected) AggregateID() string   { return string(e.UnitID) }
func (e ConflictDetected) OccurredAt() time.Time { return e.At }

// ConflictEvents maps detected conflicts to domain events for the outbox.
func ConflictEvents(conflicts []Conflict, now time.Time) []events.DomainEvent {
	out := make([]events.DomainEvent, 0, len(conflicts))
	for _, c := range conflicts {
		overlap := daterange.Day(c.First.Arrival)
		if second := daterange.Day(c.Second.Arrival); second.After(overlap) {
			overlap = second
		}
		out = append(out, ConflictDetected{
			UnitID:         c.UnitID,
			FirstID:        c.First.ID,
			SecondID:       c.Second.ID,
			OverlapCheckIn: overlap,
			At:             now,
		})
	}
	return out
}
