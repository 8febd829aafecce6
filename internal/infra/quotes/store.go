package quotes

import (
	"context"
	"errors"
	"sync"
	"time"

	"staybook/internal/app/policies"
	"staybook/internal/infra/security"
)

var (
	ErrQuoteNotFound = errors.New("quotes: unknown or consumed token")
	ErrQuoteExpired  = errors.New("quotes: token expired")
)

// Store issues single-use quote tokens and holds the priced breakdown
// server-side until confirmation redeems it. Tokens expire after TTL and are
// consumed on redemption, so a breakdown is reused at most once.
type Store struct {
	TTL    time.Duration
	Now    func() time.Time
	Tokens security.RandomTokenGenerator

	mu    sync.Mutex
	items map[string]policies.StoredQuote
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		TTL:   ttl,
		Now:   time.Now,
		items: make(map[string]policies.StoredQuote),
	}
}

func (s *Store) Issue(ctx context.Context, quote policies.StoredQuote) (string, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	quote.IssuedAt = s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.items[token] = quote
	return token, nil
}

func (s *Store) Redeem(ctx context.Context, token string) (policies.StoredQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quote, ok := s.items[token]
	if !ok {
		return policies.StoredQuote{}, ErrQuoteNotFound
	}
	delete(s.items, token)
	if s.now().Sub(quote.IssuedAt) > s.TTL {
		return policies.StoredQuote{}, ErrQuoteExpired
	}
	return quote, nil
}

func (s *Store) sweepLocked() {
	cutoff := s.now().Add(-s.TTL)
	for token, quote := range s.items {
		if quote.IssuedAt.Before(cutoff) {
			delete(s.items, token)
		}
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var _ policies.QuoteTokens = (*Store)(nil)
