package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	referralapp "staybook/internal/app/handlers/referral"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	domainrange "staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/events"
	domainunits "staybook/internal/domain/units"
)

const confirmBookingKey = "booking.confirm"

type ConfirmBookingCommand struct {
	CommandID       string
	BookingID       string
	UnitID          string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	QuoteToken      string
	ReferralCode    string
	IdempotencyKeyV string
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }

func (c ConfirmBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ConfirmBookingCommand) ResultPrototype() any { return &ConfirmBookingResult{} }

type ConfirmBookingResult struct {
	BookingID string `json:"booking_id"`
	// Quote echoes the server-held breakdown the booking was confirmed at;
	// the figures are the ones issued at checkout, reused bit-for-bit.
	Quote dto.StayQuote `json:"quote"`

	Attributed            bool             `json:"attributed"`
	AttributionSkipReason string           `json:"attribution_skip_reason,omitempty"`
	Attribution           *dto.Attribution `json:"attribution,omitempty"`
	// LedgerReconciliation flags the commission obligation that could not be
	// written; the booking stands, the amount needs manual follow-up.
	LedgerReconciliation bool `json:"ledger_reconciliation,omitempty"`
}

// ConfirmBookingHandler is the final availability gate. It re-runs the range
// check against a fresh snapshot (optimistic close of the view-to-payment
// race window), redeems the server-issued quote token instead of trusting
// any client-echoed price, invalidates the snapshot range synchronously, and
// records the referral attribution.
type ConfirmBookingHandler struct {
	UoWFactory  uow.UoWFactory
	Snapshots   policies.SnapshotSource
	Tokens      policies.QuoteTokens
	Attribution *referralapp.AttributeBookingHandler
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Logger      *slog.Logger
	Now         func() time.Time
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*ConfirmBookingResult, error) {
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
		return nil, errors.New("booking: booking id required")
	}
	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, domainavailability.ErrInvalidRange
	}
	checker := domainavailability.Checker{}
	if err := checker.Validate(dr, cmd.Guests); err != nil {
		return nil, err
	}
	now := h.nowTime()
	if err := domainbooking.ValidateCheckIn(dr, now); err != nil {
		return nil, err
	}

	quote, err := h.Tokens.Redeem(ctx, cmd.QuoteToken)
	if err != nil {
		return nil, err
	}
	if quote.UnitID != cmd.UnitID || !quote.CheckIn.Equal(dr.CheckIn) ||
		!quote.CheckOut.Equal(dr.CheckOut) || quote.Guests != cmd.Guests {
		return nil, domainbooking.ErrQuoteMismatch
	}
	breakdown := quote.Breakdown.Copy()

	target, err := unit.Units().ByID(ctx, domainunits.UnitID(cmd.UnitID))
	if err != nil {
		return nil, err
	}

	// Mandatory re-check. A calendar fetch failure here degrades softly as
	// elsewhere; a confirmed block fails the confirmation.
	snap, fetchErr := h.Snapshots.Snapshot(ctx, target, dr.CheckIn, dr.CheckOut.AddDate(0, 0, 1))
	if fetchErr != nil && h.Logger != nil {
		h.Logger.Warn("calendar fetch failed at confirmation, proceeding degraded",
			"unit_id", cmd.UnitID, "booking_id", cmd.BookingID, "error", fetchErr)
	}
	decision, err := checker.Evaluate(snap, fetchErr != nil, dr, cmd.Guests)
	if err != nil {
		return nil, err
	}
	if !decision.Available {
		return nil, domainbooking.ErrNoLongerAvailable
	}

	// The booking now claims the range; the very next availability check
	// must observe it. Invalidation is synchronous with the confirmation.
	h.Snapshots.InvalidateRange(target.ID, dr.CheckIn, dr.CheckOut)

	confirmed := domainbooking.Confirmed{
		BookingID: cmd.BookingID,
		UnitID:    target.ID,
		CheckIn:   dr.CheckIn,
		CheckOut:  dr.CheckOut,
		Guests:    cmd.Guests,
		Total:     breakdown.Total.Amount,
		Currency:  breakdown.Currency,
		Source:    breakdown.Source,
		At:        now,
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{confirmed}); err != nil {
		return nil, err
	}

	result := &ConfirmBookingResult{
		BookingID: cmd.BookingID,
		Quote:     dto.MapBreakdown(cmd.UnitID, breakdown, ""),
	}

	if cmd.ReferralCode == "" || h.Attribution == nil {
		return result, nil
	}

	discountCents := int64(0)
	if breakdown.Discount != nil {
		discountCents = breakdown.Discount.Amount.Amount
	}
	attribution, err := h.Attribution.Handle(ctx, referralapp.AttributeBookingCommand{
		CommandID:            cmd.CommandID,
		BookingID:            cmd.BookingID,
		ReferralCode:         cmd.ReferralCode,
		RevenueBasisCents:    breakdown.Subtotal.Amount,
		DiscountAppliedCents: discountCents,
		Currency:             breakdown.Currency,
	})
	if err != nil {
		if errors.Is(err, referralapp.ErrLedgerReconciliation) {
			// The booking stands; the obligation is flagged for manual
			// reconciliation instead of failing the guest.
			result.LedgerReconciliation = true
			return result, nil
		}
		return nil, err
	}
	result.Attributed = attribution.Attributed
	result.AttributionSkipReason = attribution.SkipReason
	result.Attribution = attribution.Attribution
	return result, nil
}

func (h *ConfirmBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *ConfirmBookingHandler) nowTime() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[ConfirmBookingCommand, *ConfirmBookingResult] = (*ConfirmBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*ConfirmBookingCommand)(nil)
