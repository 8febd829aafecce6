package referral

import (
	"context"
	"errors"
	"testing"
	"time"

	domainreferral "staybook/internal/domain/referral"
)

func TestCreateRuleDeactivatesThePriorRule(t *testing.T) {
	fx := newFixture(t)
	create := &CreateRuleHandler{UoWFactory: fx.factory}

	result, err := create.Handle(context.Background(), CreateRuleCommand{
		PartyID:         "party-1",
		DiscountKind:    "percent",
		DiscountValue:   5,
		CommissionKind:  "percent",
		CommissionValue: 20,
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !result.Rule.Active {
		t.Fatalf("new rule must be active")
	}

	active, err := fx.incentives.ActiveForParty(context.Background(), "party-1")
	if err != nil {
		t.Fatalf("ActiveForParty failed: %v", err)
	}
	if active.ID != domainreferral.RuleID(result.Rule.ID) {
		t.Fatalf("active rule = %s, want the newly created %s", active.ID, result.Rule.ID)
	}
	if active.Commission.Value != 20 {
		t.Fatalf("commission = %v, want 20", active.Commission.Value)
	}

	// History keeps both the seeded rule and the new one.
	list := &ListRulesHandler{UoWFactory: fx.factory}
	rules, err := list.Handle(context.Background(), ListRulesQuery{PartyID: "party-1"})
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("history = %d rules, want 2", len(rules))
	}
	activeCount := 0
	for _, r := range rules {
		if r.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("active rules = %d, want exactly one", activeCount)
	}
}

func TestCreateRuleRejectsUnknownPartyAndBadRates(t *testing.T) {
	fx := newFixture(t)
	create := &CreateRuleHandler{UoWFactory: fx.factory}

	if _, err := create.Handle(context.Background(), CreateRuleCommand{
		PartyID: "party-missing", DiscountKind: "percent", CommissionKind: "percent",
	}); !errors.Is(err, domainreferral.ErrPartyNotFound) {
		t.Fatalf("unknown party = %v, want %v", err, domainreferral.ErrPartyNotFound)
	}

	if _, err := create.Handle(context.Background(), CreateRuleCommand{
		PartyID:        "party-1",
		DiscountKind:   "percent",
		DiscountValue:  150,
		CommissionKind: "percent",
	}); !errors.Is(err, domainreferral.ErrInvalidRate) {
		t.Fatalf("out-of-range percent = %v, want %v", err, domainreferral.ErrInvalidRate)
	}
}

func TestUpdateLedgerStatusTransitions(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.handler.Handle(context.Background(), attributeCommand("booking-1")); err != nil {
		t.Fatalf("attribute: %v", err)
	}
	stored, err := fx.attrs.ByBooking(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("lookup attribution: %v", err)
	}
	entry, err := fx.ledger.ByAttribution(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("lookup ledger entry: %v", err)
	}

	update := &UpdateLedgerStatusHandler{UoWFactory: fx.factory, Outbox: fx.handler.Outbox}
	result, err := update.Handle(context.Background(), UpdateLedgerStatusCommand{
		EntryID: string(entry.ID), Target: "paid", Notes: "june payout",
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if result.Status != string(domainreferral.LedgerPaid) {
		t.Fatalf("status = %s, want paid", result.Status)
	}

	// paid is terminal.
	if _, err := update.Handle(context.Background(), UpdateLedgerStatusCommand{
		EntryID: string(entry.ID), Target: "cancelled",
	}); !errors.Is(err, domainreferral.ErrLedgerTransition) {
		t.Fatalf("cancel after paid = %v, want %v", err, domainreferral.ErrLedgerTransition)
	}
	// Unknown targets are rejected outright.
	if _, err := update.Handle(context.Background(), UpdateLedgerStatusCommand{
		EntryID: string(entry.ID), Target: "refunded",
	}); !errors.Is(err, domainreferral.ErrLedgerTransition) {
		t.Fatalf("unknown target = %v, want %v", err, domainreferral.ErrLedgerTransition)
	}
}

func TestCommissionReportBucketsByStatus(t *testing.T) {
	fx := newFixture(t)
	for _, booking := range []string{"booking-1", "booking-2"} {
		if _, err := fx.handler.Handle(context.Background(), attributeCommand(booking)); err != nil {
			t.Fatalf("attribute %s: %v", booking, err)
		}
	}
	first, err := fx.attrs.ByBooking(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("lookup attribution: %v", err)
	}
	entry, err := fx.ledger.ByAttribution(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("lookup ledger entry: %v", err)
	}
	update := &UpdateLedgerStatusHandler{UoWFactory: fx.factory, Outbox: fx.handler.Outbox}
	if _, err := update.Handle(context.Background(), UpdateLedgerStatusCommand{
		EntryID: string(entry.ID), Target: "paid",
	}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	report := &CommissionReportHandler{UoWFactory: fx.factory}
	got, err := report.Handle(context.Background(), CommissionReportQuery{
		From: time.Now().Add(-time.Hour),
		To:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(got.Rows))
	}
	if got.TotalPaid.Cents != 7500 || got.TotalOwed.Cents != 7500 {
		t.Fatalf("totals paid=%d owed=%d, want 7500 in each bucket", got.TotalPaid.Cents, got.TotalOwed.Cents)
	}
	if got.TotalCancelled.Cents != 0 {
		t.Fatalf("cancelled total = %d, want 0", got.TotalCancelled.Cents)
	}
}

func TestCommissionReportRejectsInvertedPeriod(t *testing.T) {
	fx := newFixture(t)
	report := &CommissionReportHandler{UoWFactory: fx.factory}
	if _, err := report.Handle(context.Background(), CommissionReportQuery{
		From: time.Now(),
		To:   time.Now().Add(-time.Hour),
	}); err == nil {
		t.Fatalf("inverted period must fail")
	}
}
