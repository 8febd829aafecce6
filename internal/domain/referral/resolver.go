package referral

import (
	"context"
	"time"
)

// Resolver is the discount engine's lookup half: a referral code resolves to
// an incentive only when the party is active, the rule is flagged active, and
// the current date falls within its effective window. The returned rule must
// be captured at the moment of resolution so discount and commission always
// agree even if the rule is edited moments later.
type Resolver struct {
	Parties    PartyRepository
	Incentives IncentiveRepository
	Now        func() time.Time
}

func (r Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve returns the party and the rule in effect for the code.
func (r Resolver) Resolve(ctx context.Context, code string) (*ReferringParty, *IncentiveRule, error) {
	if err := ValidateCode(code); err != nil {
		return nil, nil, err
	}
	party, err := r.Parties.ByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if !party.Active {
		return nil, nil, ErrPartyInactive
	}
	rule, err := r.Incentives.ActiveForParty(ctx, party.ID)
	if err != nil {
		return nil, nil, err
	}
	if !rule.InEffect(r.now()) {
		return nil, nil, ErrRuleNotEffective
	}
	return party, rule, nil
}
