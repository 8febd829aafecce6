package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainreferral "staybook/internal/domain/referral"
	"staybook/internal/domain/shared/money"
)

const attributeBookingKey = "referral.attribute_booking"

// ErrLedgerReconciliation marks the one failure that may not be swallowed:
// the attribution row exists but the ledger write failed, so a commission
// obligation would silently vanish without manual reconciliation.
var ErrLedgerReconciliation = errors.New("referral: ledger write failed after attribution; manual reconciliation required")

type AttributeBookingCommand struct {
	CommandID            string
	BookingID            string
	ReferralCode         string
	RevenueBasisCents    int64
	DiscountAppliedCents int64
	Currency             string
	IdempotencyKeyV      string
}

func (c AttributeBookingCommand) Key() string { return attributeBookingKey }

func (c AttributeBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c AttributeBookingCommand) ResultPrototype() any { return &AttributeBookingResult{} }

type AttributeBookingResult struct {
	Attributed  bool             `json:"attributed"`
	SkipReason  string           `json:"skip_reason,omitempty"`
	Attribution *dto.Attribution `json:"attribution,omitempty"`
}

// AttributeBookingHandler is the attribution recorder: it snapshots the
// incentive in effect, writes the attribution row, then opens the commission
// ledger entry. Referral failure never blocks a booking; it downgrades to an
// unattributed result. The two writes are deliberately sequential: a ledger
// failure after the attribution write surfaces as a reconciliation error
// rather than rolling the attribution back.
type AttributeBookingHandler struct {
	UoWFactory uow.UoWFactory
	Resolver   domainreferral.Resolver
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *AttributeBookingHandler) Handle(ctx context.Context, cmd AttributeBookingCommand) (*AttributeBookingResult, error) {
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

	if cmd.BookingID == "" {
		return nil, errors.New("referral: booking id required")
	}
	basis, err := money.New(cmd.RevenueBasisCents, cmd.Currency)
	if err != nil {
		return nil, err
	}
	discountApplied := money.Money{Amount: cmd.DiscountAppliedCents, Currency: basis.Currency}

	party, rule, resolveErr := h.Resolver.Resolve(ctx, cmd.ReferralCode)
	if resolveErr != nil {
		// Unknown, expired or inactive codes are reported, not fatal.
		if h.Logger != nil {
			h.Logger.Info("booking proceeds unattributed",
				"booking_id", cmd.BookingID, "code", cmd.ReferralCode, "error", resolveErr)
		}
		return &AttributeBookingResult{Attributed: false, SkipReason: resolveErr.Error()}, nil
	}

	now := h.now()
	attribution, err := domainreferral.NewAttribution(domainreferral.NewAttributionParams{
		ID:              domainreferral.AttributionID(newID(cmd.CommandID)),
		BookingID:       cmd.BookingID,
		Party:           party,
		Rule:            rule,
		ReferralCode:    cmd.ReferralCode,
		DiscountApplied: discountApplied,
		RevenueBasis:    basis,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}

	// First write: the attribution snapshot.
	if err := unit.Attributions().Save(ctx, attribution); err != nil {
		if errors.Is(err, domainreferral.ErrAttributionExists) {
			existing, lookupErr := unit.Attributions().ByBooking(ctx, cmd.BookingID)
			if lookupErr == nil {
				mapped := dto.MapAttribution(existing)
				return &AttributeBookingResult{Attributed: true, Attribution: &mapped}, nil
			}
		}
		return nil, err
	}

	// Second write: exactly one ledger entry in the owed state.
	entry := domainreferral.NewLedgerEntry(domainreferral.LedgerEntryID(uuid.NewString()), attribution, now)
	if err := unit.Ledger().Append(ctx, entry); err != nil {
		if h.Logger != nil {
			h.Logger.Error("commission ledger write failed after attribution write",
				"attribution_id", attribution.ID,
				"booking_id", cmd.BookingID,
				"party_id", attribution.PartyID,
				"amount_cents", attribution.CommissionOwed.Amount,
				"error", err,
			)
		}
		return nil, fmt.Errorf("%w: %v", ErrLedgerReconciliation, err)
	}

	pending := append(attribution.PendingEvents(), entry.PendingEvents()...)
	attribution.ClearEvents()
	entry.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	mapped := dto.MapAttribution(attribution)
	return &AttributeBookingResult{Attributed: true, Attribution: &mapped}, nil
}

func (h *AttributeBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *AttributeBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func newID(commandID string) string {
	if commandID != "" {
		return commandID
	}
	return uuid.NewString()
}

var _ commands.Handler[AttributeBookingCommand, *AttributeBookingResult] = (*AttributeBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*AttributeBookingCommand)(nil)
