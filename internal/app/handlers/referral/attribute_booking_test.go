package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	domainreferral "staybook/internal/domain/referral"
	"staybook/internal/infra/storage/memory"
)

type fixture struct {
	handler    *AttributeBookingHandler
	factory    memory.Factory
	incentives *memory.IncentiveRepository
	ledger     *memory.LedgerRepository
	attrs      *memory.AttributionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	parties := memory.NewPartyRepository()
	incentives := memory.NewIncentiveRepository()
	attrs := memory.NewAttributionRepository()
	ledger := memory.NewLedgerRepository()

	party := &domainreferral.ReferringParty{ID: "party-1", Name: "Blog", Code: "ref_blog2024", Active: true}
	if err := parties.Save(context.Background(), party); err != nil {
		t.Fatalf("seed party: %v", err)
	}
	rule := &domainreferral.IncentiveRule{
		ID:            "rule-1",
		PartyID:       party.ID,
		GuestDiscount: domainreferral.Rate{Kind: domainreferral.RatePercent, Value: 10},
		Commission:    domainreferral.Rate{Kind: domainreferral.RatePercent, Value: 15},
		Active:        true,
		CreatedAt:     time.Now(),
	}
	if err := incentives.Save(context.Background(), rule); err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	factory := memory.Factory{
		UnitsRepo:        memory.NewUnitRepository(),
		PartiesRepo:      parties,
		IncentivesRepo:   incentives,
		AttributionsRepo: attrs,
		LedgerRepo:       ledger,
	}
	return &fixture{
		handler: &AttributeBookingHandler{
			UoWFactory: factory,
			Resolver:   domainreferral.Resolver{Parties: parties, Incentives: incentives},
			Outbox:     memory.NewOutbox(),
		},
		factory:    factory,
		incentives: incentives,
		ledger:     ledger,
		attrs:      attrs,
	}
}

func attributeCommand(bookingID string) AttributeBookingCommand {
	return AttributeBookingCommand{
		CommandID:            "cmd-" + bookingID,
		BookingID:            bookingID,
		ReferralCode:         "ref_blog2024",
		RevenueBasisCents:    50000,
		DiscountAppliedCents: 5000,
		Currency:             "USD",
	}
}

func TestAttributeBookingOpensLedgerEntry(t *testing.T) {
	fx := newFixture(t)
	result, err := fx.handler.Handle(context.Background(), attributeCommand("booking-1"))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !result.Attributed || result.Attribution == nil {
		t.Fatalf("result = %+v, want attributed with a snapshot", result)
	}
	if result.Attribution.CommissionOwed.Cents != 7500 {
		t.Fatalf("commission = %d, want 15%% of the pre-discount 50000", result.Attribution.CommissionOwed.Cents)
	}

	stored, err := fx.attrs.ByBooking(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("attribution not persisted: %v", err)
	}
	entry, err := fx.ledger.ByAttribution(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("ledger entry not opened: %v", err)
	}
	if entry.Status != domainreferral.LedgerOwed {
		t.Fatalf("ledger status = %s, want %s", entry.Status, domainreferral.LedgerOwed)
	}
	if entry.Amount.Amount != 7500 {
		t.Fatalf("ledger amount = %d, want 7500", entry.Amount.Amount)
	}
}

func TestAttributeBookingUnknownCodeDowngrades(t *testing.T) {
	fx := newFixture(t)
	cmd := attributeCommand("booking-1")
	cmd.ReferralCode = "ref_nobody00"
	result, err := fx.handler.Handle(context.Background(), cmd)
	if err != nil {
		t.Fatalf("unknown codes must not fail the booking: %v", err)
	}
	if result.Attributed {
		t.Fatalf("unknown code must not attribute")
	}
	if result.SkipReason == "" {
		t.Fatalf("skip reason must be reported")
	}
}

func TestAttributeBookingLedgerFailureSurfacesReconciliation(t *testing.T) {
	fx := newFixture(t)
	fx.ledger.FailAppends = errors.New("disk full")
	_, err := fx.handler.Handle(context.Background(), attributeCommand("booking-1"))
	if !errors.Is(err, ErrLedgerReconciliation) {
		t.Fatalf("Handle = %v, want %v", err, ErrLedgerReconciliation)
	}
	// The attribution write landed; only the ledger half is missing and the
	// operator is told so.
	if _, lookupErr := fx.attrs.ByBooking(context.Background(), "booking-1"); lookupErr != nil {
		t.Fatalf("attribution should have been persisted before the ledger failure: %v", lookupErr)
	}
}

func TestAttributeBookingDuplicateReturnsExisting(t *testing.T) {
	fx := newFixture(t)
	first, err := fx.handler.Handle(context.Background(), attributeCommand("booking-1"))
	if err != nil {
		t.Fatalf("first Handle failed: %v", err)
	}
	cmd := attributeCommand("booking-1")
	cmd.CommandID = "cmd-retry"
	second, err := fx.handler.Handle(context.Background(), cmd)
	if err != nil {
		t.Fatalf("duplicate Handle failed: %v", err)
	}
	if !second.Attributed || second.Attribution == nil {
		t.Fatalf("duplicate attribution must report the existing record, got %+v", second)
	}
	if second.Attribution.ID != first.Attribution.ID {
		t.Fatalf("duplicate returned a different attribution: %s vs %s", second.Attribution.ID, first.Attribution.ID)
	}
}

func TestAttributeBookingRequiresBookingID(t *testing.T) {
	fx := newFixture(t)
	cmd := attributeCommand("")
	if _, err := fx.handler.Handle(context.Background(), cmd); err == nil {
		t.Fatalf("missing booking id must fail")
	}
}
