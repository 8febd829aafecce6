package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staybook/internal/app/uow"
	domainreferral "staybook/internal/domain/referral"
	domainunits "staybook/internal/domain/units"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	UnitsRepo        domainunits.Repository
	PartiesRepo      domainreferral.PartyRepository
	IncentivesRepo   domainreferral.IncentiveRepository
	AttributionsRepo domainreferral.AttributionRepository
	LedgerRepo       domainreferral.LedgerRepository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:           f.DB,
		session:      session,
		units:        f.UnitsRepo,
		parties:      f.PartiesRepo,
		incentives:   f.IncentivesRepo,
		attributions: f.AttributionsRepo,
		ledger:       f.LedgerRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for
// downstream repositories.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
