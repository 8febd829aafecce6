package referral

import (
	"context"
	"errors"
	"time"

	"staybook/internal/app/dto"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainreferral "staybook/internal/domain/referral"
)

const commissionReportKey = "referral.commission_report"

type CommissionReportQuery struct {
	From time.Time
	To   time.Time
}

func (q CommissionReportQuery) Key() string { return commissionReportKey }

// CommissionReportHandler joins attributions with their ledger status and
// aggregates totals per status bucket.
type CommissionReportHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CommissionReportHandler) Handle(ctx context.Context, q CommissionReportQuery) (dto.CommissionReport, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return dto.CommissionReport{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return dto.CommissionReport{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	from, to := q.From, q.To
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.After(to) {
		return dto.CommissionReport{}, errors.New("referral: report period start after end")
	}

	attributions, err := unit.Attributions().ListByPeriod(ctx, from, to)
	if err != nil {
		return dto.CommissionReport{}, err
	}

	report := dto.CommissionReport{From: from, To: to, Rows: make([]dto.CommissionReportRow, 0, len(attributions))}
	var owed, paid, cancelled int64
	for _, a := range attributions {
		status := string(domainreferral.LedgerOwed)
		entry, lookupErr := unit.Ledger().ByAttribution(ctx, a.ID)
		switch {
		case lookupErr == nil:
			status = string(entry.Status)
		case errors.Is(lookupErr, domainreferral.ErrLedgerEntryNotFound):
			// Attribution without a ledger row is the reconciliation gap
			// from a failed second write; report it as owed so it is not
			// lost, the amount is still due.
			status = string(domainreferral.LedgerOwed)
		default:
			return dto.CommissionReport{}, lookupErr
		}

		switch domainreferral.LedgerStatus(status) {
		case domainreferral.LedgerPaid:
			paid += a.CommissionOwed.Amount
		case domainreferral.LedgerCancelled:
			cancelled += a.CommissionOwed.Amount
		default:
			owed += a.CommissionOwed.Amount
		}

		report.Rows = append(report.Rows, dto.CommissionReportRow{
			BookingDate:      a.CreatedAt,
			BookingID:        a.BookingID,
			PartyID:          string(a.PartyID),
			RevenueBasis:     dto.PriceLine{Amount: a.RevenueBasis.Float(), Cents: a.RevenueBasis.Amount},
			DiscountApplied:  dto.PriceLine{Amount: a.DiscountApplied.Float(), Cents: a.DiscountApplied.Amount},
			CommissionOwed:   dto.PriceLine{Amount: a.CommissionOwed.Float(), Cents: a.CommissionOwed.Amount},
			CommissionStatus: status,
		})
	}
	report.TotalOwed = dto.PriceLine{Amount: float64(owed) / 100, Cents: owed}
	report.TotalPaid = dto.PriceLine{Amount: float64(paid) / 100, Cents: paid}
	report.TotalCancelled = dto.PriceLine{Amount: float64(cancelled) / 100, Cents: cancelled}
	return report, nil
}

var _ queries.Handler[CommissionReportQuery, dto.CommissionReport] = (*CommissionReportHandler)(nil)
