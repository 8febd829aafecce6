package policies

import (
	"context"
	"time"

	domainpricing "staybook/internal/domain/pricing"
)

// QuoteTokens is the server-issued price-quote contract: checkout receives a
// token, confirmation presents it back, and the server reuses the stored
// figures verbatim instead of trusting a client-echoed breakdown.
type QuoteTokens interface {
	Issue(ctx context.Context, quote StoredQuote) (string, error)
	Redeem(ctx context.Context, token string) (StoredQuote, error)
}

// StoredQuote binds a breakdown to the stay it was quoted for.
type StoredQuote struct {
	UnitID    string
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	Breakdown domainpricing.PriceBreakdown
	IssuedAt  time.Time
}
