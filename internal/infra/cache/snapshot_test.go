package cache

import (
	"context"
	"testing"
	"time"

	domaincalendar "staybook/internal/domain/calendar"
	"staybook/internal/domain/shared/money"
	domainunits "staybook/internal/domain/units"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad test date %q: %v", value, err)
	}
	return d
}

// countingFeed serves open entries for whatever range is requested and counts
// the fetches.
type countingFeed struct {
	fetches int
	lastFrom, lastTo time.Time
}

func (f *countingFeed) FetchRange(_ context.Context, unit *domainunits.Unit, from, to time.Time) ([]domaincalendar.Entry, error) {
	f.fetches++
	f.lastFrom, f.lastTo = from, to
	var entries []domaincalendar.Entry
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		price := money.Must(10000, "USD")
		entries = append(entries, domaincalendar.Entry{UnitID: unit.ID, Date: d, Available: true, Price: &price})
	}
	return entries, nil
}

func testStore(feed *countingFeed, now *time.Time) *SnapshotStore {
	store := NewSnapshotStore(feed, 5*time.Minute, nil)
	store.Now = func() time.Time { return *now }
	return store
}

func TestSnapshotFetchesThroughThenServesCached(t *testing.T) {
	feed := &countingFeed{}
	now := day(t, "2024-06-01")
	store := testStore(feed, &now)
	unit := &domainunits.Unit{ID: "unit-1", Currency: "USD"}

	first, err := store.Snapshot(context.Background(), unit, day(t, "2024-06-10"), day(t, "2024-06-15"))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if feed.fetches != 1 {
		t.Fatalf("fetches = %d, want 1 cold fetch", feed.fetches)
	}

	second, err := store.Snapshot(context.Background(), unit, day(t, "2024-06-11"), day(t, "2024-06-14"))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if feed.fetches != 1 {
		t.Fatalf("fetches = %d, a covered fresh range must be served from cache", feed.fetches)
	}
	if second != first {
		t.Fatalf("cached read returned a different snapshot")
	}
}

func TestSnapshotExpiresAfterTTL(t *testing.T) {
	feed := &countingFeed{}
	now := day(t, "2024-06-01")
	store := testStore(feed, &now)
	unit := &domainunits.Unit{ID: "unit-1", Currency: "USD"}

	if _, err := store.Snapshot(context.Background(), unit, day(t, "2024-06-10"), day(t, "2024-06-15")); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	now = now.Add(6 * time.Minute)
	if _, err := store.Snapshot(context.Background(), unit, day(t, "2024-06-10"), day(t, "2024-06-15")); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if feed.fetches != 2 {
		t.Fatalf("fetches = %d, want a refetch once the TTL elapsed", feed.fetches)
	}
}

func TestSnapshotWidensRefetchToCachedRange(t *testing.T) {
	feed := &countingFeed{}
	now := day(t, "2024-06-01")
	store := testStore(feed, &now)
	unit := &domainunits.Unit{ID: "unit-1", Currency: "USD"}

	if _, err := store.Snapshot(context.Background(), unit, day(t, "2024-06-10"), day(t, "2024-06-15")); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	// The second request overlaps but extends past the cached range; the
	// refetch must cover the union so the cached head is not lost.
	snap, err := store.Snapshot(context.Background(), unit, day(t, "2024-06-13"), day(t, "2024-06-20"))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if feed.fetches != 2 {
		t.Fatalf("fetches = %d, want 2", feed.fetches)
	}
	if !feed.lastFrom.Equal(day(t, "2024-06-10")) || !feed.lastTo.Equal(day(t, "2024-06-20")) {
		t.Fatalf("refetch range %v..%v, want the union 2024-06-10..2024-06-20", feed.lastFrom, feed.lastTo)
	}
	if _, ok := snap.Entry(day(t, "2024-06-10")); !ok {
		t.Fatalf("widened snapshot lost the previously cached head")
	}
}

func TestInvalidateRangeForcesRefetch(t *testing.T) {
	feed := &countingFeed{}
	now := day(t, "2024-06-01")
	store := testStore(feed, &now)
	unit := &domainunits.Unit{ID: "unit-1", Currency: "USD"}

	if _, err := store.Snapshot(context.Background(), unit, day(t, "2024-06-10"), day(t, "2024-06-15")); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	// A non-overlapping invalidation leaves the cache alone.
	store.InvalidateRange(unit.ID, day(t, "2024-07-01"), day(t, "2024-07-05"))
	if _, err := store.Snapshot(context.Background(), unit, day(t, "2024-06-10"), day(t, "2024-06-15")); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if feed.fetches != 1 {
		t.Fatalf("fetches = %d, non-overlapping invalidation must not drop the cache", feed.fetches)
	}

	// An overlapping one takes effect before the next read.
	store.InvalidateRange(unit.ID, day(t, "2024-06-12"), day(t, "2024-06-13"))
	if _, err := store.Snapshot(context.Background(), unit, day(t, "2024-06-10"), day(t, "2024-06-15")); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if feed.fetches != 2 {
		t.Fatalf("fetches = %d, overlapping invalidation must force a refetch", feed.fetches)
	}
}
