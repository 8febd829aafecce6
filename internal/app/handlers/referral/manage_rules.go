package referral

import (
	"context"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainreferral "staybook/internal/domain/referral"
)

const (
	createRuleKey = "referral.create_rule"
	listRulesKey  = "referral.list_rules"
)

type CreateRuleCommand struct {
	PartyID         string
	DiscountKind    string
	DiscountValue   float64
	CommissionKind  string
	CommissionValue float64
	EffectiveStart  *time.Time
	EffectiveEnd    *time.Time
}

func (c CreateRuleCommand) Key() string { return createRuleKey }

type CreateRuleResult struct {
	Rule dto.IncentiveRule `json:"rule"`
}

// CreateRuleHandler activates a new incentive rule for a party. The
// repository deactivates the prior active rule in the same write; the history
// is never deleted.
type CreateRuleHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
}

func (h *CreateRuleHandler) Handle(ctx context.Context, cmd CreateRuleCommand) (*CreateRuleResult, error) {
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

	if _, err := unit.Parties().ByID(ctx, domainreferral.PartyID(cmd.PartyID)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now()
	}
	rule := &domainreferral.IncentiveRule{
		ID:             domainreferral.RuleID(uuid.NewString()),
		PartyID:        domainreferral.PartyID(cmd.PartyID),
		GuestDiscount:  domainreferral.Rate{Kind: domainreferral.RateKind(cmd.DiscountKind), Value: cmd.DiscountValue},
		Commission:     domainreferral.Rate{Kind: domainreferral.RateKind(cmd.CommissionKind), Value: cmd.CommissionValue},
		EffectiveStart: cmd.EffectiveStart,
		EffectiveEnd:   cmd.EffectiveEnd,
		Active:         true,
		CreatedAt:      now,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := unit.Incentives().Save(ctx, rule); err != nil {
		return nil, err
	}
	return &CreateRuleResult{Rule: dto.MapIncentiveRule(rule)}, nil
}

type ListRulesQuery struct {
	PartyID string
}

func (q ListRulesQuery) Key() string { return listRulesKey }

type ListRulesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListRulesHandler) Handle(ctx context.Context, q ListRulesQuery) ([]dto.IncentiveRule, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return nil, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	rules, err := unit.Incentives().HistoryForParty(ctx, domainreferral.PartyID(q.PartyID))
	if err != nil {
		return nil, err
	}
	out := make([]dto.IncentiveRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, dto.MapIncentiveRule(r))
	}
	return out, nil
}

var _ commands.Handler[CreateRuleCommand, *CreateRuleResult] = (*CreateRuleHandler)(nil)
var _ queries.Handler[ListRulesQuery, []dto.IncentiveRule] = (*ListRulesHandler)(nil)
