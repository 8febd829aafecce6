package memory

import (
	"context"
	"errors"

	"staybook/internal/app/uow"
	domainreferral "staybook/internal/domain/referral"
	domainunits "staybook/internal/domain/units"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	UnitsRepo        domainunits.Repository
	PartiesRepo      domainreferral.PartyRepository
	IncentivesRepo   domainreferral.IncentiveRepository
	AttributionsRepo domainreferral.AttributionRepository
	LedgerRepo       domainreferral.LedgerRepository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided
// but the abstraction matches the application ports.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.UnitsRepo == nil || f.PartiesRepo == nil || f.IncentivesRepo == nil || f.AttributionsRepo == nil || f.LedgerRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		units:        f.UnitsRepo,
		parties:      f.PartiesRepo,
		incentives:   f.IncentivesRepo,
		attributions: f.AttributionsRepo,
		ledger:       f.LedgerRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	units        domainunits.Repository
	parties      domainreferral.PartyRepository
	incentives   domainreferral.IncentiveRepository
	attributions domainreferral.AttributionRepository
	ledger       domainreferral.LedgerRepository
}

func (u *Unit) Units() domainunits.Repository {
	return u.units
}

func (u *Unit) Parties() domainreferral.PartyRepository {
	return u.parties
}

func (u *Unit) Incentives() domainreferral.IncentiveRepository {
	return u.incentives
}

func (u *Unit) Attributions() domainreferral.AttributionRepository {
	return u.attributions
}

func (u *Unit) Ledger() domainreferral.LedgerRepository {
	return u.ledger
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}

var _ uow.UoWFactory = Factory{}
