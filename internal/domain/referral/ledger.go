package referral

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrLedgerEntryNotFound = errors.New("referral: ledger entry not found")
	ErrLedgerTransition    = errors.New("referral: illegal ledger status transition")
)

type LedgerStatus string

const (
	LedgerOwed      LedgerStatus = "owed"
	LedgerPaid      LedgerStatus = "paid"
	LedgerCancelled LedgerStatus = "cancelled"
)

type LedgerEntryID string

// CommissionLedgerEntry records one commission obligation. The ledger is
// append-only; status transition is the only mutation, and only
// owed→paid and owed→cancelled are legal.
type CommissionLedgerEntry struct {
	ID            LedgerEntryID
	AttributionID AttributionID
	PartyID       PartyID
	Amount        money.Money
	Status        LedgerStatus
	PaidAt        *time.Time
	Notes         string
	CreatedAt     time.Time
	events.EventRecorder
}

// NewLedgerEntry opens an obligation in the owed state.
func NewLedgerEntry(id LedgerEntryID, attribution *BookingAttribution, now time.Time) *CommissionLedgerEntry {
	e := &CommissionLedgerEntry{
		ID:            id,
		AttributionID: attribution.ID,
		PartyID:       attribution.PartyID,
		Amount:        attribution.CommissionOwed,
		Status:        LedgerOwed,
		CreatedAt:     now.UTC(),
	}
	e.Record(CommissionOwed{
		EntryID:       e.ID,
		AttributionID: e.AttributionID,
		PartyID:       e.PartyID,
		Amount:        e.Amount,
		At:            e.CreatedAt,
	})
	return e
}

// MarkPaid transitions owed→paid.
func (e *CommissionLedgerEntry) MarkPaid(now time.Time, notes string) error {
	if e.Status != LedgerOwed {
		return ErrLedgerTransition
	}
	at := now.UTC()
	e.Status = LedgerPaid
	e.PaidAt = &at
	if notes != "" {
		e.Notes = notes
	}
	e.Record(CommissionStatusChanged{EntryID: e.ID, PartyID: e.PartyID, Status: e.Status, At: at})
	return nil
}

// Cancel transitions owed→cancelled.
func (e *CommissionLedgerEntry) Cancel(now time.Time, notes string) error {
	if e.Status != LedgerOwed {
		return ErrLedgerTransition
	}
	e.Status = LedgerCancelled
	if notes != "" {
		e.Notes = notes
	}
	e.Record(CommissionStatusChanged{EntryID: e.ID, PartyID: e.PartyID, Status: e.Status, At: now.UTC()})
	return nil
}

type LedgerRepository interface {
	ByID(ctx context.Context, id LedgerEntryID) (*CommissionLedgerEntry, error)
	ByAttribution(ctx context.Context, id AttributionID) (*CommissionLedgerEntry, error)
	Append(ctx context.Context, entry *CommissionLedgerEntry) error
	Update(ctx context.Context, entry *CommissionLedgerEntry) error
	ListByParty(ctx context.Context, id PartyID) ([]*CommissionLedgerEntry, error)
}
