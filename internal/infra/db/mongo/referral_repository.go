package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainreferral "staybook/internal/domain/referral"
	"staybook/internal/domain/shared/money"
)

type PartyRepository struct {
	col *mongo.Collection
}

func NewPartyRepository(db *mongo.Database) *PartyRepository {
	col := db.Collection("referral_parties")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &PartyRepository{col: col}
}

func (r *PartyRepository) ByCode(ctx context.Context, code string) (*domainreferral.ReferringParty, error) {
	var doc partyDocument
	if err := r.col.FindOne(ctx, bson.M{"code": code}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreferral.ErrPartyNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PartyRepository) ByID(ctx context.Context, id domainreferral.PartyID) (*domainreferral.ReferringParty, error) {
	var doc partyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreferral.ErrPartyNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PartyRepository) Save(ctx context.Context, party *domainreferral.ReferringParty) error {
	doc := newPartyDocument(party)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type partyDocument struct {
	ID        string `bson:"_id"`
	Name      string `bson:"name"`
	Code      string `bson:"code"`
	Active    bool   `bson:"active"`
	CreatedAt int64  `bson:"created_at"`
}

func newPartyDocument(p *domainreferral.ReferringParty) partyDocument {
	return partyDocument{
		ID:        string(p.ID),
		Name:      p.Name,
		Code:      p.Code,
		Active:    p.Active,
		CreatedAt: p.CreatedAt.UnixMilli(),
	}
}

func (d partyDocument) toAggregate() *domainreferral.ReferringParty {
	return &domainreferral.ReferringParty{
		ID:        domainreferral.PartyID(d.ID),
		Name:      d.Name,
		Code:      d.Code,
		Active:    d.Active,
		CreatedAt: timestampToTime(d.CreatedAt),
	}
}

type IncentiveRepository struct {
	col *mongo.Collection
}

func NewIncentiveRepository(db *mongo.Database) *IncentiveRepository {
	col := db.Collection("incentive_rules")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "party_id", Value: 1}, {Key: "active", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &IncentiveRepository{col: col}
}

func (r *IncentiveRepository) ActiveForParty(ctx context.Context, id domainreferral.PartyID) (*domainreferral.IncentiveRule, error) {
	var doc ruleDocument
	if err := r.col.FindOne(ctx, bson.M{"party_id": id, "active": true}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreferral.ErrNoActiveRule
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save inserts the new rule after clearing the party's prior active flag.
// History rows are never deleted.
func (r *IncentiveRepository) Save(ctx context.Context, rule *domainreferral.IncentiveRule) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"party_id": rule.PartyID, "active": true},
		bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return err
	}
	doc := newRuleDocument(rule)
	opts := options.Replace().SetUpsert(true)
	_, err = r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (r *IncentiveRepository) HistoryForParty(ctx context.Context, id domainreferral.PartyID) ([]*domainreferral.IncentiveRule, error) {
	cursor, err := r.col.Find(ctx, bson.M{"party_id": id}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainreferral.IncentiveRule
	for cursor.Next(ctx) {
		var doc ruleDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type ruleDocument struct {
	ID             string              `bson:"_id"`
	PartyID        string              `bson:"party_id"`
	GuestDiscount  domainreferral.Rate `bson:"guest_discount"`
	Commission     domainreferral.Rate `bson:"commission"`
	EffectiveStart *int64              `bson:"effective_start,omitempty"`
	EffectiveEnd   *int64              `bson:"effective_end,omitempty"`
	Active         bool                `bson:"active"`
	CreatedAt      int64               `bson:"created_at"`
}

func newRuleDocument(rule *domainreferral.IncentiveRule) ruleDocument {
	doc := ruleDocument{
		ID:            string(rule.ID),
		PartyID:       string(rule.PartyID),
		GuestDiscount: rule.GuestDiscount,
		Commission:    rule.Commission,
		Active:        rule.Active,
		CreatedAt:     rule.CreatedAt.UnixMilli(),
	}
	if rule.EffectiveStart != nil {
		ms := rule.EffectiveStart.UnixMilli()
		doc.EffectiveStart = &ms
	}
	if rule.EffectiveEnd != nil {
		ms := rule.EffectiveEnd.UnixMilli()
		doc.EffectiveEnd = &ms
	}
	return doc
}

func (d ruleDocument) toAggregate() *domainreferral.IncentiveRule {
	rule := &domainreferral.IncentiveRule{
		ID:            domainreferral.RuleID(d.ID),
		PartyID:       domainreferral.PartyID(d.PartyID),
		GuestDiscount: d.GuestDiscount,
		Commission:    d.Commission,
		Active:        d.Active,
		CreatedAt:     timestampToTime(d.CreatedAt),
	}
	if d.EffectiveStart != nil {
		t := timestampToTime(*d.EffectiveStart)
		rule.EffectiveStart = &t
	}
	if d.EffectiveEnd != nil {
		t := timestampToTime(*d.EffectiveEnd)
		rule.EffectiveEnd = &t
	}
	return rule
}

type AttributionRepository struct {
	col *mongo.Collection
}

func NewAttributionRepository(db *mongo.Database) *AttributionRepository {
	col := db.Collection("booking_attributions")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "booking_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &AttributionRepository{col: col}
}

func (r *AttributionRepository) ByID(ctx context.Context, id domainreferral.AttributionID) (*domainreferral.BookingAttribution, error) {
	var doc attributionDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreferral.ErrAttributionNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *AttributionRepository) ByBooking(ctx context.Context, bookingID string) (*domainreferral.BookingAttribution, error) {
	var doc attributionDocument
	if err := r.col.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreferral.ErrAttributionNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *AttributionRepository) Save(ctx context.Context, attribution *domainreferral.BookingAttribution) error {
	doc := newAttributionDocument(attribution)
	_, err := r.col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return domainreferral.ErrAttributionExists
	}
	return err
}

func (r *AttributionRepository) ListByPeriod(ctx context.Context, from, to time.Time) ([]*domainreferral.BookingAttribution, error) {
	filter := bson.M{"created_at": bson.M{"$gte": from.UnixMilli(), "$lt": to.UnixMilli()}}
	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainreferral.BookingAttribution
	for cursor.Next(ctx) {
		var doc attributionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type attributionDocument struct {
	ID              string      `bson:"_id"`
	BookingID       string      `bson:"booking_id"`
	PartyID         string      `bson:"party_id"`
	ReferralCode    string      `bson:"referral_code"`
	RuleID          string      `bson:"rule_id"`
	DiscountApplied money.Money `bson:"discount_applied"`
	RevenueBasis    money.Money `bson:"revenue_basis"`
	CommissionOwed  money.Money `bson:"commission_owed"`
	CreatedAt       int64       `bson:"created_at"`
}

func newAttributionDocument(a *domainreferral.BookingAttribution) attributionDocument {
	return attributionDocument{
		ID:              string(a.ID),
		BookingID:       a.BookingID,
		PartyID:         string(a.PartyID),
		ReferralCode:    a.ReferralCode,
		RuleID:          string(a.RuleID),
		DiscountApplied: a.DiscountApplied,
		RevenueBasis:    a.RevenueBasis,
		CommissionOwed:  a.CommissionOwed,
		CreatedAt:       a.CreatedAt.UnixMilli(),
	}
}

func (d attributionDocument) toAggregate() *domainreferral.BookingAttribution {
	return &domainreferral.BookingAttribution{
		ID:              domainreferral.AttributionID(d.ID),
		BookingID:       d.BookingID,
		PartyID:         domainreferral.PartyID(d.PartyID),
		ReferralCode:    d.ReferralCode,
		RuleID:          domainreferral.RuleID(d.RuleID),
		DiscountApplied: d.DiscountApplied,
		RevenueBasis:    d.RevenueBasis,
		CommissionOwed:  d.CommissionOwed,
		CreatedAt:       timestampToTime(d.CreatedAt),
	}
}

type LedgerRepository struct {
	col *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	col := db.Collection("commission_ledger")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "attribution_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &LedgerRepository{col: col}
}

func (r *LedgerRepository) ByID(ctx context.Context, id domainreferral.LedgerEntryID) (*domainreferral.CommissionLedgerEntry, error) {
	var doc ledgerDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreferral.ErrLedgerEntryNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *LedgerRepository) ByAttribution(ctx context.Context, id domainreferral.AttributionID) (*domainreferral.CommissionLedgerEntry, error) {
	var doc ledgerDocument
	if err := r.col.FindOne(ctx, bson.M{"attribution_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreferral.ErrLedgerEntryNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *LedgerRepository) Append(ctx context.Context, entry *domainreferral.CommissionLedgerEntry) error {
	doc := newLedgerDocument(entry)
	_, err := r.col.InsertOne(ctx, doc)
	return err
}

// Update replaces the row only while it is still owed, so concurrent status
// changes cannot both win.
func (r *LedgerRepository) Update(ctx context.Context, entry *domainreferral.CommissionLedgerEntry) error {
	doc := newLedgerDocument(entry)
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "status": string(domainreferral.LedgerOwed)}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainreferral.ErrLedgerTransition
	}
	return nil
}

func (r *LedgerRepository) ListByParty(ctx context.Context, id domainreferral.PartyID) ([]*domainreferral.CommissionLedgerEntry, error) {
	cursor, err := r.col.Find(ctx, bson.M{"party_id": id}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainreferral.CommissionLedgerEntry
	for cursor.Next(ctx) {
		var doc ledgerDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type ledgerDocument struct {
	ID            string      `bson:"_id"`
	AttributionID string      `bson:"attribution_id"`
	PartyID       string      `bson:"party_id"`
	Amount        money.Money `bson:"amount"`
	Status        string      `bson:"status"`
	PaidAt        *int64      `bson:"paid_at,omitempty"`
	Notes         string      `bson:"notes,omitempty"`
	CreatedAt     int64       `bson:"created_at"`
}

func newLedgerDocument(e *domainreferral.CommissionLedgerEntry) ledgerDocument {
	doc := ledgerDocument{
		ID:            string(e.ID),
		AttributionID: string(e.AttributionID),
		PartyID:       string(e.PartyID),
		Amount:        e.Amount,
		Status:        string(e.Status),
		Notes:         e.Notes,
		CreatedAt:     e.CreatedAt.UnixMilli(),
	}
	if e.PaidAt != nil {
		ms := e.PaidAt.UnixMilli()
		doc.PaidAt = &ms
	}
	return doc
}

func (d ledgerDocument) toAggregate() *domainreferral.CommissionLedgerEntry {
	entry := &domainreferral.CommissionLedgerEntry{
		ID:            domainreferral.LedgerEntryID(d.ID),
		AttributionID: domainreferral.AttributionID(d.AttributionID),
		PartyID:       domainreferral.PartyID(d.PartyID),
		Amount:        d.Amount,
		Status:        domainreferral.LedgerStatus(d.Status),
		Notes:         d.Notes,
		CreatedAt:     timestampToTime(d.CreatedAt),
	}
	if d.PaidAt != nil {
		t := timestampToTime(*d.PaidAt)
		entry.PaidAt = &t
	}
	return entry
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var (
	_ domainreferral.PartyRepository       = (*PartyRepository)(nil)
	_ domainreferral.IncentiveRepository   = (*IncentiveRepository)(nil)
	_ domainreferral.AttributionRepository = (*AttributionRepository)(nil)
	_ domainreferral.LedgerRepository      = (*LedgerRepository)(nil)
)
