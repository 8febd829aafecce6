package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"staybook/internal/app/policies"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/calendar"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/money"
	domainunits "staybook/internal/domain/units"
	"staybook/internal/infra/quotes"
	"staybook/internal/infra/storage/memory"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad test date %q: %v", value, err)
	}
	return d
}

type invalidation struct {
	unitID   domainunits.UnitID
	from, to time.Time
}

// fakeSnapshots serves a prepared snapshot and records invalidations.
type fakeSnapshots struct {
	snap        *calendar.Snapshot
	err         error
	invalidated []invalidation
}

func (f *fakeSnapshots) Snapshot(_ context.Context, _ *domainunits.Unit, _, _ time.Time) (*calendar.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeSnapshots) InvalidateRange(unitID domainunits.UnitID, from, to time.Time) {
	f.invalidated = append(f.invalidated, invalidation{unitID: unitID, from: from, to: to})
}

var _ policies.SnapshotSource = (*fakeSnapshots)(nil)

// openSnapshot covers [from, to) with every date open.
func openSnapshot(t *testing.T, from, to string) *calendar.Snapshot {
	t.Helper()
	start, end := day(t, from), day(t, to)
	var entries []calendar.Entry
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		price := money.Must(10000, "USD")
		entries = append(entries, calendar.Entry{UnitID: "unit-1", Date: d, Available: true, Price: &price})
	}
	return calendar.NewSnapshot(domainunits.UnitID("unit-1"), start, end, entries, time.Now())
}

// blockedSnapshot adds a confirmed reservation over [arrival, departure).
func blockedSnapshot(t *testing.T, from, to, arrival, departure string) *calendar.Snapshot {
	t.Helper()
	fact := calendar.ReservationFact{
		ID:        "res-9",
		Arrival:   day(t, arrival),
		Departure: day(t, departure),
		Status:    calendar.ReservationConfirmed,
	}
	start, end := day(t, from), day(t, to)
	var entries []calendar.Entry
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		price := money.Must(10000, "USD")
		entry := calendar.Entry{UnitID: "unit-1", Date: d, Available: true, Price: &price}
		if !d.Before(fact.Arrival) && d.Before(fact.Departure) {
			entry.Available = false
			entry.Reservations = []calendar.ReservationFact{fact}
		}
		entries = append(entries, entry)
	}
	return calendar.NewSnapshot(domainunits.UnitID("unit-1"), start, end, entries, time.Now())
}

func testBreakdown() domainpricing.PriceBreakdown {
	return domainpricing.PriceBreakdown{
		NightlyRate: money.Must(10000, "USD"),
		Nights:      5,
		Subtotal:    money.Must(50000, "USD"),
		CleaningFee: money.Must(5000, "USD"),
		Tax:         money.Must(5000, "USD"),
		ChannelFee:  money.Must(1500, "USD"),
		PetFee:      money.Must(0, "USD"),
		Total:       money.Must(61500, "USD"),
		Currency:    "USD",
		Source:      domainpricing.TierSnapshot,
	}
}

type confirmFixture struct {
	handler *ConfirmBookingHandler
	store   *quotes.Store
	snaps   *fakeSnapshots
}

func newConfirmFixture(t *testing.T, snaps *fakeSnapshots) *confirmFixture {
	t.Helper()
	unitsRepo := memory.NewUnitRepository()
	if err := unitsRepo.Save(context.Background(), &domainunits.Unit{
		ID: "unit-1", Name: "Coastal", Currency: "USD", BaseNightlyRate: 10000, GuestsLimit: 4,
	}); err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	factory := memory.Factory{
		UnitsRepo:        unitsRepo,
		PartiesRepo:      memory.NewPartyRepository(),
		IncentivesRepo:   memory.NewIncentiveRepository(),
		AttributionsRepo: memory.NewAttributionRepository(),
		LedgerRepo:       memory.NewLedgerRepository(),
	}
	store := quotes.NewStore(time.Hour)
	return &confirmFixture{
		handler: &ConfirmBookingHandler{
			UoWFactory: factory,
			Snapshots:  snaps,
			Tokens:     store,
			Outbox:     memory.NewOutbox(),
			Now:        func() time.Time { return day(t, "2024-06-01") },
		},
		store: store,
		snaps: snaps,
	}
}

func (fx *confirmFixture) issue(t *testing.T, checkIn, checkOut string, guests int) string {
	t.Helper()
	token, err := fx.store.Issue(context.Background(), policies.StoredQuote{
		UnitID:    "unit-1",
		CheckIn:   day(t, checkIn),
		CheckOut:  day(t, checkOut),
		Guests:    guests,
		Breakdown: testBreakdown(),
	})
	if err != nil {
		t.Fatalf("issue quote token: %v", err)
	}
	return token
}

func confirmCommand(t *testing.T, token string) ConfirmBookingCommand {
	t.Helper()
	return ConfirmBookingCommand{
		CommandID:  "cmd-1",
		BookingID:  "booking-1",
		UnitID:     "unit-1",
		CheckIn:    day(t, "2024-06-10"),
		CheckOut:   day(t, "2024-06-15"),
		Guests:     2,
		QuoteToken: token,
	}
}

func TestConfirmReusesTheIssuedQuote(t *testing.T) {
	fx := newConfirmFixture(t, &fakeSnapshots{snap: openSnapshot(t, "2024-06-01", "2024-06-21")})
	token := fx.issue(t, "2024-06-10", "2024-06-15", 2)

	result, err := fx.handler.Handle(context.Background(), confirmCommand(t, token))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result.BookingID != "booking-1" {
		t.Fatalf("BookingID = %q", result.BookingID)
	}
	// The confirmed figures are the issued ones, not a recomputation.
	if result.Quote.Total.Cents != 61500 || result.Quote.Subtotal.Cents != 50000 {
		t.Fatalf("quote figures diverged from the issued breakdown: %+v", result.Quote)
	}

	if len(fx.snaps.invalidated) != 1 {
		t.Fatalf("invalidations = %d, want exactly one synchronous invalidation", len(fx.snaps.invalidated))
	}
	inv := fx.snaps.invalidated[0]
	if inv.unitID != "unit-1" || !inv.from.Equal(day(t, "2024-06-10")) || !inv.to.Equal(day(t, "2024-06-15")) {
		t.Fatalf("invalidated %+v, want the confirmed stay range", inv)
	}
}

func TestConfirmQuoteTokenIsSingleUse(t *testing.T) {
	fx := newConfirmFixture(t, &fakeSnapshots{snap: openSnapshot(t, "2024-06-01", "2024-06-21")})
	token := fx.issue(t, "2024-06-10", "2024-06-15", 2)

	if _, err := fx.handler.Handle(context.Background(), confirmCommand(t, token)); err != nil {
		t.Fatalf("first Handle failed: %v", err)
	}
	if _, err := fx.handler.Handle(context.Background(), confirmCommand(t, token)); !errors.Is(err, quotes.ErrQuoteNotFound) {
		t.Fatalf("second redemption = %v, want %v", err, quotes.ErrQuoteNotFound)
	}
}

func TestConfirmRejectsMismatchedQuote(t *testing.T) {
	fx := newConfirmFixture(t, &fakeSnapshots{snap: openSnapshot(t, "2024-06-01", "2024-06-21")})
	// Token issued for a different guest count than the confirmation claims.
	token := fx.issue(t, "2024-06-10", "2024-06-15", 4)

	if _, err := fx.handler.Handle(context.Background(), confirmCommand(t, token)); !errors.Is(err, domainbooking.ErrQuoteMismatch) {
		t.Fatalf("Handle = %v, want %v", err, domainbooking.ErrQuoteMismatch)
	}
}

func TestConfirmFailsWhenRangeWasClaimed(t *testing.T) {
	snaps := &fakeSnapshots{snap: blockedSnapshot(t, "2024-06-01", "2024-06-21", "2024-06-12", "2024-06-14")}
	fx := newConfirmFixture(t, snaps)
	token := fx.issue(t, "2024-06-10", "2024-06-15", 2)

	if _, err := fx.handler.Handle(context.Background(), confirmCommand(t, token)); !errors.Is(err, domainbooking.ErrNoLongerAvailable) {
		t.Fatalf("Handle = %v, want %v", err, domainbooking.ErrNoLongerAvailable)
	}
	if len(snaps.invalidated) != 0 {
		t.Fatalf("a failed confirmation must not invalidate the snapshot")
	}
}

func TestConfirmProceedsWhenCalendarFetchFails(t *testing.T) {
	fx := newConfirmFixture(t, &fakeSnapshots{err: errors.New("feed unreachable")})
	token := fx.issue(t, "2024-06-10", "2024-06-15", 2)

	result, err := fx.handler.Handle(context.Background(), confirmCommand(t, token))
	if err != nil {
		t.Fatalf("a fetch failure must degrade, not block: %v", err)
	}
	if result.Quote.Total.Cents != 61500 {
		t.Fatalf("quote figures diverged: %+v", result.Quote)
	}
}

func TestConfirmRejectsPastCheckIn(t *testing.T) {
	fx := newConfirmFixture(t, &fakeSnapshots{snap: openSnapshot(t, "2024-06-01", "2024-06-21")})
	token := fx.issue(t, "2024-05-10", "2024-05-15", 2)

	cmd := confirmCommand(t, token)
	cmd.CheckIn = day(t, "2024-05-10")
	cmd.CheckOut = day(t, "2024-05-15")
	if _, err := fx.handler.Handle(context.Background(), cmd); !errors.Is(err, domainbooking.ErrCheckInInPast) {
		t.Fatalf("Handle = %v, want %v", err, domainbooking.ErrCheckInInPast)
	}
}
