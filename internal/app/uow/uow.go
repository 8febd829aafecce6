package uow

import (
	"context"

	domainreferral "staybook/internal/domain/referral"
	domainunits "staybook/internal/domain/units"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Units() domainunits.Repository
	Parties() domainreferral.PartyRepository
	Incentives() domainreferral.IncentiveRepository
	Attributions() domainreferral.AttributionRepository
	Ledger() domainreferral.LedgerRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
