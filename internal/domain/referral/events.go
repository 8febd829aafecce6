package referral

import (
	"time"

	"staybook/internal/domain/shared/money"
)

type BookingAttributed struct {
	AttributionID  AttributionID
	BookingID      string
	PartyID        PartyID
	CommissionOwed money.Money
	At             time.Time
}

func (e BookingAttributed) EventName() string     { return "referral.booking_attributed" }
func (e BookingAttributed) AggregateID() string   { return string(e.AttributionID) }
func (e BookingAttributed) OccurredAt() time.Time { return e.At }

type CommissionOwed struct {
	EntryID       LedgerEntryID
	AttributionID AttributionID
	PartyID       PartyID
	Amount        money.Money
	At            time.Time
}

func (e CommissionOwed) EventName() string     { return "referral.commission_owed" }
func (e CommissionOwed) AggregateID() string   { return string(e.EntryID) }
func (e CommissionOwed) OccurredAt() time.Time { return e.At }

type CommissionStatusChanged struct {
	EntryID LedgerEntryID
	PartyID PartyID
	Status  LedgerStatus
	At      time.Time
}

func (e CommissionStatusChanged) EventName() string     { return "referral.commission_status_changed" }
func (e CommissionStatusChanged) AggregateID() string   { return string(e.EntryID) }
func (e CommissionStatusChanged) OccurredAt() time.Time { return e.At }
