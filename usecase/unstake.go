package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"dashboard/domain"
	"dashboard/interface/exporter"
)

// RouteSelector picks between redeeming through the treasury queue and
// selling on a DEX. All comparisons are done on FixedPoint rates.
type RouteSelector struct {
	rateDecimals   uint8
	outputDecimals uint8
	maxAge         time.Duration
	now            func() time.Time
}

func NewRouteSelector(rateDecimals uint8, outputDecimals uint8, maxAge time.Duration) *RouteSelector {
	return &RouteSelector{
		rateDecimals:   rateDecimals,
		outputDecimals: outputDecimals,
		maxAge:         maxAge,
		now:            time.Now,
	}
}

// SelectRoute returns the swap route only when the quote's effective rate is
// at least the native rate. A missing quote, or one with a zero sell amount,
// always yields the native route.
func (s *RouteSelector) SelectRoute(amount domain.FixedPoint, nativeRate domain.FixedPoint, quote *domain.Quote) domain.UnstakeQuote {
	now := s.now()
	native := domain.UnstakeQuote{
		Route:         domain.RouteNativeQueue,
		InputAmount:   amount,
		OutputAmount:  s.nativeOutput(amount, nativeRate),
		EffectiveRate: nativeRate,
		WaitClass:     domain.WaitQueued,
		QuotedAt:      now,
	}
	if quote == nil {
		return native
	}

	effective, err := quote.EffectiveRate(s.rateDecimals)
	if err != nil {
		return native
	}
	if nativeRate.Cmp(effective) > 0 {
		return native
	}

	return domain.UnstakeQuote{
		Route:         domain.RouteInstantSwap,
		InputAmount:   amount,
		OutputAmount:  quote.BuyAmount.Rescale(s.outputDecimals),
		EffectiveRate: effective,
		WaitClass:     domain.WaitInstant,
		Stale:         s.stale(quote.Timestamp),
		QuotedAt:      quote.Timestamp,
	}
}

// EnsureExecutable rejects a quote that was stale when built or has aged past
// the threshold since.
func (s *RouteSelector) EnsureExecutable(quote domain.UnstakeQuote) error {
	if quote.Stale || s.stale(quote.QuotedAt) {
		return fmt.Errorf("%w: quoted at %v", domain.ErrorStaleQuote, quote.QuotedAt.Format(time.RFC3339))
	}
	return nil
}

func (s *RouteSelector) stale(quotedAt time.Time) bool {
	return s.maxAge > 0 && s.now().Sub(quotedAt) > s.maxAge
}

func (s *RouteSelector) nativeOutput(amount domain.FixedPoint, rate domain.FixedPoint) domain.FixedPoint {
	output, err := amount.MulDiv(rate, domain.OneFixedPoint(rate.Decimals()), s.outputDecimals)
	if err != nil {
		return domain.ZeroFixedPoint(s.outputDecimals)
	}
	return output
}

type UnstakeInteractor struct {
	rates           *ExchangeRateInteractor
	resolver        *BlockResolver
	quoter          SwapQuoter
	selector        *RouteSelector
	stakedToken     domain.Address
	underlyingToken domain.Address
	metrics         *exporter.Metrics
}

func NewUnstakeInteractor(rates *ExchangeRateInteractor,
	resolver *BlockResolver,
	quoter SwapQuoter,
	selector *RouteSelector,
	stakedToken domain.Address,
	underlyingToken domain.Address,
	metrics *exporter.Metrics) *UnstakeInteractor {
	interactor := &UnstakeInteractor{
		rates:           rates,
		resolver:        resolver,
		quoter:          quoter,
		selector:        selector,
		stakedToken:     stakedToken,
		underlyingToken: underlyingToken,
		metrics:         metrics,
	}
	return interactor
}

// Quote prices unstaking amount through both routes at the current head.
// A failing swap provider degrades to the native route.
func (interactor *UnstakeInteractor) Quote(ctx context.Context, amount domain.FixedPoint, taker domain.Address) (domain.UnstakeQuote, error) {
	if amount.Sign() <= 0 {
		return domain.UnstakeQuote{}, fmt.Errorf("%w: unstake amount must be positive", domain.ErrorInvalidAmount)
	}

	resolved, err := interactor.resolver.Resolve(ctx, domain.LatestBlock())
	if err != nil {
		return domain.UnstakeQuote{}, err
	}
	rate, err := interactor.rates.RateAt(ctx, resolved)
	if err != nil {
		return domain.UnstakeQuote{}, err
	}

	quote := interactor.fetchQuote(ctx, amount, taker)
	if quote != nil && interactor.selector.stale(quote.Timestamp) {
		log.Printf("🟡 swap quote from %v is stale, fetching again\n", quote.Timestamp.Format(time.RFC3339))
		quote = interactor.fetchQuote(ctx, amount, taker)
	}
	if ctx.Err() != nil {
		return domain.UnstakeQuote{}, fmt.Errorf("%w: %v", domain.ErrorCancelled, ctx.Err())
	}

	if rate.Unavailable() && quote == nil {
		return domain.UnstakeQuote{}, fmt.Errorf("%w: exchange rate unavailable at %v and no swap quote", domain.ErrorQuoteUnavailable, resolved)
	}

	selected := interactor.selector.SelectRoute(amount, rate.PreciseRate, quote)
	if selected.Route == domain.RouteNativeQueue && rate.Unavailable() {
		return domain.UnstakeQuote{}, fmt.Errorf("%w: exchange rate unavailable at %v and the swap quote has no usable rate", domain.ErrorQuoteUnavailable, resolved)
	}
	if selected.Route == domain.RouteNativeQueue {
		selected.WaitClass = interactor.nativeWaitClass(ctx, amount, resolved)
	}

	interactor.metrics.RouteSelected(selected.Route.String())
	return selected, nil
}

// EnsureExecutable must pass before a quote is offered for execution.
func (interactor *UnstakeInteractor) EnsureExecutable(quote domain.UnstakeQuote) error {
	return interactor.selector.EnsureExecutable(quote)
}

func (interactor *UnstakeInteractor) fetchQuote(ctx context.Context, amount domain.FixedPoint, taker domain.Address) *domain.Quote {
	if interactor.quoter == nil {
		return nil
	}
	quote, err := interactor.quoter.GetQuote(ctx, interactor.stakedToken, interactor.underlyingToken, amount, taker)
	if err != nil {
		if !isCancellation(err) {
			log.Printf("🟡 swap quote unavailable, using native route - %v\n", err.Error())
		}
		return nil
	}
	return &quote
}

// nativeWaitClass is ShortDelay when the treasury can burn amount without
// waiting for the next round.
func (interactor *UnstakeInteractor) nativeWaitClass(ctx context.Context, amount domain.FixedPoint, resolved domain.ResolvedBlock) domain.WaitClass {
	budget, err := interactor.rates.BurnBudget(ctx, resolved)
	if err != nil {
		if !isCancellation(err) {
			log.Printf("🟡 burn budget unavailable at %v - %v\n", resolved, err.Error())
		}
		return domain.WaitQueued
	}
	if !budget.IsZero() && amount.Cmp(budget) <= 0 {
		return domain.WaitShortDelay
	}
	return domain.WaitQueued
}
