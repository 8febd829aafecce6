package availability

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/dto"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainpricing "staybook/internal/domain/pricing"
	domainrange "staybook/internal/domain/shared/daterange"
	domainunits "staybook/internal/domain/units"
)

const checkRangeKey = "availability.check_range"

type CheckRangeQuery struct {
	UnitID   string
	CheckIn  time.Time
	CheckOut time.Time
	Guests   int
}

func (q CheckRangeQuery) Key() string { return checkRangeKey }

// CheckRangeHandler walks a candidate stay against the cached calendar
// snapshot and attaches a display price when the range is bookable. Calendar
// truth decides availability; a pricing failure only suppresses the price.
type CheckRangeHandler struct {
	UoWFactory uow.UoWFactory
	Snapshots  policies.SnapshotSource
	Pricing    *domainpricing.Engine
	Logger     *slog.Logger
}

func (h *CheckRangeHandler) Handle(ctx context.Context, q CheckRangeQuery) (dto.AvailabilityCheck, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return dto.AvailabilityCheck{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return dto.AvailabilityCheck{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.AvailabilityCheck{}, domainavailability.ErrInvalidRange
	}
	checker := domainavailability.Checker{}
	if err := checker.Validate(dr, q.Guests); err != nil {
		return dto.AvailabilityCheck{}, err
	}

	target, err := unit.Units().ByID(ctx, domainunits.UnitID(q.UnitID))
	if err != nil {
		return dto.AvailabilityCheck{}, err
	}
	if q.Guests > target.GuestsLimit {
		decision := domainavailability.Decision{Reason: "guest_limit"}
		return dto.MapDecision(q.UnitID, dr.CheckIn, dr.CheckOut, decision), nil
	}

	// Fetch one day past checkout so the departure date classifies from
	// data, not from the unknown-date fallback.
	snap, fetchErr := h.Snapshots.Snapshot(ctx, target, dr.CheckIn, dr.CheckOut.AddDate(0, 0, 1))
	if fetchErr != nil && h.Logger != nil {
		h.Logger.Warn("calendar fetch failed, soft-degrading availability",
			"unit_id", q.UnitID, "error", fetchErr)
	}

	decision, err := checker.Evaluate(snap, fetchErr != nil, dr, q.Guests)
	if err != nil {
		return dto.AvailabilityCheck{}, err
	}
	result := dto.MapDecision(q.UnitID, dr.CheckIn, dr.CheckOut, decision)
	if !decision.Available || h.Pricing == nil {
		return result, nil
	}

	breakdown, err := h.Pricing.Price(ctx, domainpricing.QuoteInput{
		Unit:     target,
		Range:    dr,
		Guests:   q.Guests,
		Snapshot: snap,
	})
	if err != nil {
		// Display price is best-effort here; the quote endpoint is the
		// authoritative pricing path.
		if h.Logger != nil {
			h.Logger.Warn("availability price attach failed", "unit_id", q.UnitID, "error", err)
		}
		return result, nil
	}
	total := breakdown.Total.Float()
	result.Price = &total
	result.Currency = breakdown.Currency
	return result, nil
}

var _ queries.Handler[CheckRangeQuery, dto.AvailabilityCheck] = (*CheckRangeHandler)(nil)
