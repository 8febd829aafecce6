package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainunits "staybook/internal/domain/units"
)

type UnitRepository struct {
	col *mongo.Collection
}

func NewUnitRepository(db *mongo.Database) *UnitRepository {
	return &UnitRepository{col: db.Collection("units")}
}

func (r *UnitRepository) ByID(ctx context.Context, id domainunits.UnitID) (*domainunits.Unit, error) {
	var doc unitDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainunits.ErrUnitNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *UnitRepository) Save(ctx context.Context, unit *domainunits.Unit) error {
	doc := newUnitDocument(unit)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (r *UnitRepository) List(ctx context.Context) ([]*domainunits.Unit, error) {
	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainunits.Unit
	for cursor.Next(ctx) {
		var doc unitDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type unitDocument struct {
	ID                 string `bson:"_id"`
	Name               string `bson:"name"`
	Currency           string `bson:"currency"`
	BaseNightlyRate    int64  `bson:"base_nightly_rate"`
	GuestsLimit        int    `bson:"guests_limit"`
	PetsAllowed        bool   `bson:"pets_allowed"`
	DefaultMinimumStay int    `bson:"default_minimum_stay"`
	ExternalRef        string `bson:"external_ref"`
}

func newUnitDocument(u *domainunits.Unit) unitDocument {
	return unitDocument{
		ID:                 string(u.ID),
		Name:               u.Name,
		Currency:           u.Currency,
		BaseNightlyRate:    u.BaseNightlyRate,
		GuestsLimit:        u.GuestsLimit,
		PetsAllowed:        u.PetsAllowed,
		DefaultMinimumStay: u.DefaultMinimumStay,
		ExternalRef:        u.ExternalRef,
	}
}

func (d unitDocument) toAggregate() *domainunits.Unit {
	return &domainunits.Unit{
		ID:                 domainunits.UnitID(d.ID),
		Name:               d.Name,
		Currency:           d.Currency,
		BaseNightlyRate:    d.BaseNightlyRate,
		GuestsLimit:        d.GuestsLimit,
		PetsAllowed:        d.PetsAllowed,
		DefaultMinimumStay: d.DefaultMinimumStay,
		ExternalRef:        d.ExternalRef,
	}
}

var _ domainunits.Repository = (*UnitRepository)(nil)
