package usecase

import (
	"context"
	"fmt"
	"sync"

	"dashboard/domain"
)

type unstakeQuoter interface {
	Quote(ctx context.Context, amount domain.FixedPoint, taker domain.Address) (domain.UnstakeQuote, error)
	EnsureExecutable(quote domain.UnstakeQuote) error
}

// QuoteSession tracks one user's unstake form:
// Idle -> Fetching -> Ready | Failed. Changing the amount or retrying goes
// back to Fetching. Only the result of the latest request is kept.
type QuoteSession struct {
	mu         sync.Mutex
	quoter     unstakeQuoter
	taker      domain.Address
	state      domain.QuoteState
	amount     domain.FixedPoint
	current    domain.UnstakeQuote
	err        error
	generation uint64
}

func NewQuoteSession(quoter unstakeQuoter, taker domain.Address) *QuoteSession {
	return &QuoteSession{
		quoter: quoter,
		taker:  taker,
		state:  domain.QuoteIdle,
	}
}

// SetAmount fetches a quote for amount. A zero amount resets the session.
func (s *QuoteSession) SetAmount(ctx context.Context, amount domain.FixedPoint) domain.QuoteState {
	s.mu.Lock()
	if amount.Sign() <= 0 {
		s.generation++
		s.state = domain.QuoteIdle
		s.amount = domain.FixedPoint{}
		s.current = domain.UnstakeQuote{}
		s.err = nil
		s.mu.Unlock()
		return domain.QuoteIdle
	}
	s.amount = amount
	s.mu.Unlock()

	return s.fetch(ctx, amount)
}

// Retry refetches for the current amount. It recovers a Failed session and
// refreshes a Ready one.
func (s *QuoteSession) Retry(ctx context.Context) (domain.QuoteState, error) {
	s.mu.Lock()
	if s.state == domain.QuoteIdle {
		s.mu.Unlock()
		return domain.QuoteIdle, fmt.Errorf("%w: no amount to quote", domain.ErrorInvalidState)
	}
	amount := s.amount
	s.mu.Unlock()

	return s.fetch(ctx, amount), nil
}

func (s *QuoteSession) State() domain.QuoteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the last ready quote, or the error of the last failure.
func (s *QuoteSession) Current() (domain.UnstakeQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case domain.QuoteReady:
		return s.current, nil
	case domain.QuoteFailed:
		return domain.UnstakeQuote{}, s.err
	default:
		return domain.UnstakeQuote{}, fmt.Errorf("%w: session is %v", domain.ErrorQuoteUnavailable, s.state)
	}
}

// Executable returns the held quote if it may be executed now. A stale quote
// returns ErrorStaleQuote and the caller is expected to Retry.
func (s *QuoteSession) Executable() (domain.UnstakeQuote, error) {
	quote, err := s.Current()
	if err != nil {
		return domain.UnstakeQuote{}, err
	}
	if err := s.quoter.EnsureExecutable(quote); err != nil {
		return domain.UnstakeQuote{}, err
	}
	return quote, nil
}

func (s *QuoteSession) fetch(ctx context.Context, amount domain.FixedPoint) domain.QuoteState {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.state = domain.QuoteFetching
	s.mu.Unlock()

	quote, err := s.quoter.Quote(ctx, amount, s.taker)

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		// superseded
		return s.state
	}
	if err != nil {
		s.state = domain.QuoteFailed
		s.current = domain.UnstakeQuote{}
		s.err = err
		return s.state
	}
	s.state = domain.QuoteReady
	s.current = quote
	s.err = nil
	return s.state
}
