package referral

import (
	"errors"
	"testing"
	"time"

	"staybook/internal/domain/shared/money"
)

func owedEntry(t *testing.T) *CommissionLedgerEntry {
	t.Helper()
	attribution := &BookingAttribution{
		ID:             "attr-1",
		BookingID:      "booking-1",
		PartyID:        "party-1",
		CommissionOwed: money.Must(7500, "USD"),
	}
	return NewLedgerEntry("entry-1", attribution, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestNewLedgerEntryOpensOwed(t *testing.T) {
	entry := owedEntry(t)
	if entry.Status != LedgerOwed {
		t.Fatalf("Status = %s, want %s", entry.Status, LedgerOwed)
	}
	if entry.Amount.Amount != 7500 {
		t.Fatalf("Amount = %d, want the attribution's commission", entry.Amount.Amount)
	}
	pending := entry.PendingEvents()
	if len(pending) != 1 || pending[0].EventName() != (CommissionOwed{}).EventName() {
		t.Fatalf("pending events = %v, want a single commission-owed event", pending)
	}
}

func TestMarkPaidTransition(t *testing.T) {
	entry := owedEntry(t)
	paidAt := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	if err := entry.MarkPaid(paidAt, "june payout"); err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}
	if entry.Status != LedgerPaid {
		t.Fatalf("Status = %s, want %s", entry.Status, LedgerPaid)
	}
	if entry.PaidAt == nil || !entry.PaidAt.Equal(paidAt) {
		t.Fatalf("PaidAt = %v, want %v", entry.PaidAt, paidAt)
	}
	if entry.Notes != "june payout" {
		t.Fatalf("Notes = %q", entry.Notes)
	}
	// paid is terminal.
	if err := entry.MarkPaid(paidAt, ""); !errors.Is(err, ErrLedgerTransition) {
		t.Fatalf("second MarkPaid = %v, want %v", err, ErrLedgerTransition)
	}
	if err := entry.Cancel(paidAt, ""); !errors.Is(err, ErrLedgerTransition) {
		t.Fatalf("Cancel after paid = %v, want %v", err, ErrLedgerTransition)
	}
}

func TestCancelTransition(t *testing.T) {
	entry := owedEntry(t)
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	if err := entry.Cancel(now, "booking cancelled"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if entry.Status != LedgerCancelled {
		t.Fatalf("Status = %s, want %s", entry.Status, LedgerCancelled)
	}
	if entry.PaidAt != nil {
		t.Fatalf("Cancel must not set PaidAt")
	}
	if err := entry.MarkPaid(now, ""); !errors.Is(err, ErrLedgerTransition) {
		t.Fatalf("MarkPaid after cancel = %v, want %v", err, ErrLedgerTransition)
	}
}

func TestAttributionSnapshotsTheRule(t *testing.T) {
	party := &ReferringParty{ID: "party-1", Code: "ref_blog2024", Active: true}
	rule := activeRule(party.ID)
	attribution, err := NewAttribution(NewAttributionParams{
		ID:              "attr-1",
		BookingID:       "booking-1",
		Party:           party,
		Rule:            rule,
		ReferralCode:    party.Code,
		DiscountApplied: money.Must(5000, "USD"),
		RevenueBasis:    money.Must(50000, "USD"),
		Now:             time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NewAttribution failed: %v", err)
	}
	if attribution.CommissionOwed.Amount != 7500 {
		t.Fatalf("CommissionOwed = %d, want 15%% of the pre-discount 50000", attribution.CommissionOwed.Amount)
	}
	if attribution.RuleID != rule.ID {
		t.Fatalf("RuleID = %s, want the resolved rule captured", attribution.RuleID)
	}

	// Editing the rule afterwards must not change the stored figures.
	rule.Commission = Rate{Kind: RatePercent, Value: 50}
	if attribution.CommissionOwed.Amount != 7500 {
		t.Fatalf("attribution changed after a rule edit")
	}
}

func TestNewAttributionRequiresBookingAndRule(t *testing.T) {
	if _, err := NewAttribution(NewAttributionParams{}); err == nil {
		t.Fatalf("NewAttribution without a booking id must fail")
	}
	if _, err := NewAttribution(NewAttributionParams{BookingID: "booking-1"}); !errors.Is(err, ErrNoActiveRule) {
		t.Fatalf("NewAttribution without party/rule = %v, want %v", err, ErrNoActiveRule)
	}
}
