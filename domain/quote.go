package domain

import (
	"time"
)

type Route uint8

const (
	RouteNativeQueue Route = iota + 1
	RouteInstantSwap
)

func (r Route) String() string {
	switch r {
	case RouteNativeQueue:
		return "native-queue"
	case RouteInstantSwap:
		return "instant-swap"
	default:
		return "unknown"
	}
}

func (r Route) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

type WaitClass uint8

const (
	WaitInstant WaitClass = iota + 1
	WaitShortDelay
	WaitQueued
)

func (w WaitClass) String() string {
	switch w {
	case WaitInstant:
		return "instant"
	case WaitShortDelay:
		return "short-delay"
	case WaitQueued:
		return "queued"
	default:
		return "unknown"
	}
}

func (w WaitClass) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// Quote is a swap quote as returned by the swap-quote provider.
type Quote struct {
	SellToken  Address
	BuyToken   Address
	SellAmount FixedPoint
	BuyAmount  FixedPoint
	Timestamp  time.Time
}

// EffectiveRate is BuyAmount / SellAmount at the given precision.
func (q Quote) EffectiveRate(decimals uint8) (FixedPoint, error) {
	return q.BuyAmount.Div(q.SellAmount, decimals)
}

func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.Timestamp)
}

type UnstakeQuote struct {
	Route         Route
	InputAmount   FixedPoint
	OutputAmount  FixedPoint
	EffectiveRate FixedPoint
	WaitClass     WaitClass
	Stale         bool
	QuotedAt      time.Time
}

// QuoteState is the UI-observable state of an unstake quote session.
type QuoteState uint8

const (
	QuoteIdle QuoteState = iota
	QuoteFetching
	QuoteReady
	QuoteFailed
)

func (s QuoteState) String() string {
	switch s {
	case QuoteFetching:
		return "fetching"
	case QuoteReady:
		return "ready"
	case QuoteFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (s QuoteState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
