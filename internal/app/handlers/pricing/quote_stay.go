package pricing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staybook/internal/app/dto"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainpricing "staybook/internal/domain/pricing"
	domainreferral "staybook/internal/domain/referral"
	domainrange "staybook/internal/domain/shared/daterange"
	domainunits "staybook/internal/domain/units"
)

const quoteStayKey = "pricing.quote_stay"

type QuoteStayQuery struct {
	UnitID       string
	CheckIn      time.Time
	CheckOut     time.Time
	Guests       int
	Pets         int
	ReferralCode string
}

func (q QuoteStayQuery) Key() string { return quoteStayKey }

// QuoteStayHandler produces the checkout price breakdown and issues the quote
// token the confirmation step must present back. Referral resolution failures
// are silently skipped: the quote proceeds undiscounted.
type QuoteStayHandler struct {
	UoWFactory uow.UoWFactory
	Snapshots  policies.SnapshotSource
	Pricing    *domainpricing.Engine
	Tokens     policies.QuoteTokens
	Resolver   domainreferral.Resolver
	Logger     *slog.Logger
}

func (h *QuoteStayHandler) Handle(ctx context.Context, q QuoteStayQuery) (dto.StayQuote, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return dto.StayQuote{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return dto.StayQuote{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.StayQuote{}, domainavailability.ErrInvalidRange
	}
	if q.Guests <= 0 {
		return dto.StayQuote{}, domainavailability.ErrInvalidGuests
	}
	if q.Pets < 0 {
		return dto.StayQuote{}, errors.New("pricing: pet count cannot be negative")
	}

	target, err := unit.Units().ByID(ctx, domainunits.UnitID(q.UnitID))
	if err != nil {
		return dto.StayQuote{}, err
	}

	var discount domainpricing.DiscountPolicy
	if q.ReferralCode != "" {
		_, rule, resolveErr := h.Resolver.Resolve(ctx, q.ReferralCode)
		if resolveErr != nil {
			if h.Logger != nil {
				h.Logger.Info("referral code skipped for quote",
					"code", q.ReferralCode, "error", resolveErr)
			}
		} else {
			discount = rule
		}
	}

	snap, fetchErr := h.Snapshots.Snapshot(ctx, target, dr.CheckIn, dr.CheckOut)
	if fetchErr != nil && h.Logger != nil {
		h.Logger.Warn("calendar fetch failed for quote, snapshot tier skipped",
			"unit_id", q.UnitID, "error", fetchErr)
	}

	breakdown, err := h.Pricing.Price(ctx, domainpricing.QuoteInput{
		Unit:     target,
		Range:    dr,
		Guests:   q.Guests,
		Pets:     q.Pets,
		Snapshot: snap,
		Discount: discount,
	})
	if err != nil {
		return dto.StayQuote{}, err
	}

	token := ""
	if h.Tokens != nil {
		token, err = h.Tokens.Issue(ctx, policies.StoredQuote{
			UnitID:    q.UnitID,
			CheckIn:   dr.CheckIn,
			CheckOut:  dr.CheckOut,
			Guests:    q.Guests,
			Breakdown: breakdown,
		})
		if err != nil {
			return dto.StayQuote{}, err
		}
	}
	return dto.MapBreakdown(q.UnitID, breakdown, token), nil
}

var _ queries.Handler[QuoteStayQuery, dto.StayQuote] = (*QuoteStayHandler)(nil)
