package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainreferral "staybook/internal/domain/referral"
	domainunits "staybook/internal/domain/units"
)

// UnitRepository is an in-memory implementation for demo and test use.
type UnitRepository struct {
	mu    sync.RWMutex
	items map[domainunits.UnitID]*domainunits.Unit
}

func NewUnitRepository() *UnitRepository {
	return &UnitRepository{items: make(map[domainunits.UnitID]*domainunits.Unit)}
}

func (r *UnitRepository) ByID(ctx context.Context, id domainunits.UnitID) (*domainunits.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	unit, ok := r.items[id]
	if !ok {
		return nil, domainunits.ErrUnitNotFound
	}
	copied := *unit
	return &copied, nil
}

func (r *UnitRepository) Save(ctx context.Context, unit *domainunits.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *unit
	r.items[unit.ID] = &copied
	return nil
}

func (r *UnitRepository) List(ctx context.Context) ([]*domainunits.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainunits.Unit, 0, len(r.items))
	for _, unit := range r.items {
		copied := *unit
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PartyRepository stores referring parties keyed by id with a code index.
type PartyRepository struct {
	mu     sync.RWMutex
	items  map[domainreferral.PartyID]*domainreferral.ReferringParty
	byCode map[string]domainreferral.PartyID
}

func NewPartyRepository() *PartyRepository {
	return &PartyRepository{
		items:  make(map[domainreferral.PartyID]*domainreferral.ReferringParty),
		byCode: make(map[string]domainreferral.PartyID),
	}
}

func (r *PartyRepository) ByCode(ctx context.Context, code string) (*domainreferral.ReferringParty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[strings.ToLower(code)]
	if !ok {
		return nil, domainreferral.ErrPartyNotFound
	}
	party := r.items[id]
	copied := *party
	return &copied, nil
}

func (r *PartyRepository) ByID(ctx context.Context, id domainreferral.PartyID) (*domainreferral.ReferringParty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	party, ok := r.items[id]
	if !ok {
		return nil, domainreferral.ErrPartyNotFound
	}
	copied := *party
	return &copied, nil
}

func (r *PartyRepository) Save(ctx context.Context, party *domainreferral.ReferringParty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prior, ok := r.items[party.ID]; ok {
		delete(r.byCode, strings.ToLower(prior.Code))
	}
	copied := *party
	r.items[party.ID] = &copied
	r.byCode[strings.ToLower(party.Code)] = party.ID
	return nil
}

// IncentiveRepository keeps full rule history per party. Saving a new rule
// deactivates the party's prior active rule under the same lock.
type IncentiveRepository struct {
	mu    sync.RWMutex
	rules map[domainreferral.PartyID][]*domainreferral.IncentiveRule
}

func NewIncentiveRepository() *IncentiveRepository {
	return &IncentiveRepository{rules: make(map[domainreferral.PartyID][]*domainreferral.IncentiveRule)}
}

func (r *IncentiveRepository) ActiveForParty(ctx context.Context, id domainreferral.PartyID) (*domainreferral.IncentiveRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rule := range r.rules[id] {
		if rule.Active {
			copied := *rule
			return &copied, nil
		}
	}
	return nil, domainreferral.ErrNoActiveRule
}

func (r *IncentiveRepository) Save(ctx context.Context, rule *domainreferral.IncentiveRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, prior := range r.rules[rule.PartyID] {
		prior.Active = false
	}
	copied := *rule
	r.rules[rule.PartyID] = append(r.rules[rule.PartyID], &copied)
	return nil
}

func (r *IncentiveRepository) HistoryForParty(ctx context.Context, id domainreferral.PartyID) ([]*domainreferral.IncentiveRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainreferral.IncentiveRule, 0, len(r.rules[id]))
	for _, rule := range r.rules[id] {
		copied := *rule
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AttributionRepository enforces the one-attribution-per-booking rule.
type AttributionRepository struct {
	mu        sync.RWMutex
	items     map[domainreferral.AttributionID]*domainreferral.BookingAttribution
	byBooking map[string]domainreferral.AttributionID
}

func NewAttributionRepository() *AttributionRepository {
	return &AttributionRepository{
		items:     make(map[domainreferral.AttributionID]*domainreferral.BookingAttribution),
		byBooking: make(map[string]domainreferral.AttributionID),
	}
}

func (r *AttributionRepository) ByID(ctx context.Context, id domainreferral.AttributionID) (*domainreferral.BookingAttribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return nil, domainreferral.ErrAttributionNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *AttributionRepository) ByBooking(ctx context.Context, bookingID string) (*domainreferral.BookingAttribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byBooking[bookingID]
	if !ok {
		return nil, domainreferral.ErrAttributionNotFound
	}
	copied := *r.items[id]
	return &copied, nil
}

func (r *AttributionRepository) Save(ctx context.Context, attribution *domainreferral.BookingAttribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byBooking[attribution.BookingID]; ok {
		return domainreferral.ErrAttributionExists
	}
	copied := *attribution
	r.items[attribution.ID] = &copied
	r.byBooking[attribution.BookingID] = attribution.ID
	return nil
}

func (r *AttributionRepository) ListByPeriod(ctx context.Context, from, to time.Time) ([]*domainreferral.BookingAttribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainreferral.BookingAttribution
	for _, a := range r.items {
		if a.CreatedAt.Before(from) || !a.CreatedAt.Before(to) {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// LedgerRepository is append-only; Update only replaces the stored row, the
// domain entry enforces legal status transitions.
type LedgerRepository struct {
	mu            sync.RWMutex
	items         map[domainreferral.LedgerEntryID]*domainreferral.CommissionLedgerEntry
	byAttribution map[domainreferral.AttributionID]domainreferral.LedgerEntryID

	// FailAppends makes Append fail; used to exercise the reconciliation
	// path where the attribution write lands but the ledger write does not.
	FailAppends error
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		items:         make(map[domainreferral.LedgerEntryID]*domainreferral.CommissionLedgerEntry),
		byAttribution: make(map[domainreferral.AttributionID]domainreferral.LedgerEntryID),
	}
}

func (r *LedgerRepository) ByID(ctx context.Context, id domainreferral.LedgerEntryID) (*domainreferral.CommissionLedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[id]
	if !ok {
		return nil, domainreferral.ErrLedgerEntryNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *LedgerRepository) ByAttribution(ctx context.Context, id domainreferral.AttributionID) (*domainreferral.CommissionLedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entryID, ok := r.byAttribution[id]
	if !ok {
		return nil, domainreferral.ErrLedgerEntryNotFound
	}
	copied := *r.items[entryID]
	return &copied, nil
}

func (r *LedgerRepository) Append(ctx context.Context, entry *domainreferral.CommissionLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAppends != nil {
		return r.FailAppends
	}
	copied := *entry
	r.items[entry.ID] = &copied
	r.byAttribution[entry.AttributionID] = entry.ID
	return nil
}

func (r *LedgerRepository) Update(ctx context.Context, entry *domainreferral.CommissionLedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[entry.ID]; !ok {
		return domainreferral.ErrLedgerEntryNotFound
	}
	copied := *entry
	r.items[entry.ID] = &copied
	return nil
}

func (r *LedgerRepository) ListByParty(ctx context.Context, id domainreferral.PartyID) ([]*domainreferral.CommissionLedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainreferral.CommissionLedgerEntry
	for _, e := range r.items {
		if e.PartyID != id {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var (
	_ domainunits.Repository               = (*UnitRepository)(nil)
	_ domainreferral.PartyRepository       = (*PartyRepository)(nil)
	_ domainreferral.IncentiveRepository   = (*IncentiveRepository)(nil)
	_ domainreferral.AttributionRepository = (*AttributionRepository)(nil)
	_ domainreferral.LedgerRepository      = (*LedgerRepository)(nil)
)
