package referral

import (
	"context"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainreferral "staybook/internal/domain/referral"
)

const updateLedgerStatusKey = "referral.update_ledger_status"

type UpdateLedgerStatusCommand struct {
	EntryID string
	// Target is the desired status; only paid and cancelled are reachable,
	// and only from owed.
	Target string
	Notes  string
}

func (c UpdateLedgerStatusCommand) Key() string { return updateLedgerStatusKey }

type UpdateLedgerStatusResult struct {
	EntryID string `json:"entry_id"`
	Status  string `json:"status"`
}

type UpdateLedgerStatusHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *UpdateLedgerStatusHandler) Handle(ctx context.Context, cmd UpdateLedgerStatusCommand) (*UpdateLedgerStatusResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return nil, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	entry, err := unit.Ledger().ByID(ctx, domainreferral.LedgerEntryID(cmd.EntryID))
	if err != nil {
		return nil, err
	}

	now := h.nowTime()
	switch domainreferral.LedgerStatus(cmd.Target) {
	case domainreferral.LedgerPaid:
		err = entry.MarkPaid(now, cmd.Notes)
	case domainreferral.LedgerCancelled:
		err = entry.Cancel(now, cmd.Notes)
	default:
		err = domainreferral.ErrLedgerTransition
	}
	if err != nil {
		return nil, err
	}

	if err := unit.Ledger().Update(ctx, entry); err != nil {
		return nil, err
	}
	pending := entry.PendingEvents()
	entry.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}
	return &UpdateLedgerStatusResult{EntryID: cmd.EntryID, Status: string(entry.Status)}, nil
}

func (h *UpdateLedgerStatusHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *UpdateLedgerStatusHandler) nowTime() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[UpdateLedgerStatusCommand, *UpdateLedgerStatusResult] = (*UpdateLedgerStatusHandler)(nil)
