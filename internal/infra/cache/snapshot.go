package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"staybook/internal/app/policies"
	domaincalendar "staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/daterange"
	domainunits "staybook/internal/domain/units"
)

// SnapshotStore is a fetch-through TTL cache over the remote calendar feed.
// One snapshot per unit; a refresh replaces the whole cached range.
// Invalidation takes effect before the call returns, so a later read within
// the same request observes the refreshed state.
type SnapshotStore struct {
	Feed   policies.CalendarFeed
	TTL    time.Duration
	Now    func() time.Time
	Logger *slog.Logger

	mu    sync.Mutex
	units map[domainunits.UnitID]*unitCache
}

type unitCache struct {
	mu       sync.Mutex
	snapshot *domaincalendar.Snapshot
}

func NewSnapshotStore(feed policies.CalendarFeed, ttl time.Duration, logger *slog.Logger) *SnapshotStore {
	return &SnapshotStore{
		Feed:   feed,
		TTL:    ttl,
		Now:    time.Now,
		Logger: logger,
		units:  make(map[domainunits.UnitID]*unitCache),
	}
}

// Snapshot returns a cached snapshot covering [from, to), fetching from the
// feed when the cache is cold, stale, or too narrow. Concurrent requests for
// the same unit share one fetch.
func (s *SnapshotStore) Snapshot(ctx context.Context, unit *domainunits.Unit, from, to time.Time) (*domaincalendar.Snapshot, error) {
	uc := s.unitCache(unit.ID)
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := s.now()
	want := daterange.DateRange{CheckIn: daterange.Day(from), CheckOut: daterange.Day(to)}
	if snap := uc.snapshot; snap != nil && snap.Covers(want) && now.Sub(snap.FetchedAt) < s.TTL {
		return snap, nil
	}

	fetchFrom, fetchTo := from, to
	if snap := uc.snapshot; snap != nil {
		// Widen the fetch so an overlapping cached range is not narrowed by
		// the refresh.
		if snap.From.Before(fetchFrom) {
			fetchFrom = snap.From
		}
		if snap.To.After(fetchTo) {
			fetchTo = snap.To
		}
	}

	entries, err := s.Feed.FetchRange(ctx, unit, fetchFrom, fetchTo)
	if err != nil {
		return nil, err
	}
	snap := domaincalendar.NewSnapshot(unit.ID, fetchFrom, fetchTo, entries, s.now())
	if conflicts := snap.Conflicts(); len(conflicts) > 0 && s.Logger != nil {
		for _, c := range conflicts {
			s.Logger.Warn("overlapping reservations in upstream calendar",
				"unit_id", c.UnitID, "first", c.First.ID, "second", c.Second.ID)
		}
	}
	uc.snapshot = snap
	return snap, nil
}

// InvalidateRange drops the cached snapshot when it touches [from, to). The
// next read refetches. Dropping the whole unit snapshot keeps invalidation
// simple and correct at the cost of a wider refetch.
func (s *SnapshotStore) InvalidateRange(unitID domainunits.UnitID, from, to time.Time) {
	uc := s.unitCache(unitID)
	uc.mu.Lock()
	defer uc.mu.Unlock()
	snap := uc.snapshot
	if snap == nil {
		return
	}
	if !from.Before(snap.To) || !snap.From.Before(to) {
		return
	}
	uc.snapshot = nil
}

func (s *SnapshotStore) unitCache(id domainunits.UnitID) *unitCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	uc, ok := s.units[id]
	if !ok {
		uc = &unitCache{}
		s.units[id] = uc
	}
	return uc
}

func (s *SnapshotStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var _ policies.SnapshotSource = (*SnapshotStore)(nil)
