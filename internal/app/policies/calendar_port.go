package policies

import (
	"context"
	"time"

	domaincalendar "staybook/internal/domain/calendar"
	domainunits "staybook/internal/domain/units"
)

// CalendarFeed is the pull contract against the remote property-management
// system. Implementations normalize upstream field variants into canonical
// entries at the ingestion boundary; the core never branches on upstream
// naming variance.
type CalendarFeed interface {
	FetchRange(ctx context.Context, unit *domainunits.Unit, from, to time.Time) ([]domaincalendar.Entry, error)
}

// SnapshotSource serves cached calendar snapshots with fetch-through and
// explicit sub-range invalidation. Invalidation is synchronous with respect
// to the triggering write.
type SnapshotSource interface {
	Snapshot(ctx context.Context, unit *domainunits.Unit, from, to time.Time) (*domaincalendar.Snapshot, error)
	InvalidateRange(unitID domainunits.UnitID, from, to time.Time)
}
