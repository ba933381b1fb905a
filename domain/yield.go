package domain

import (
	"github.com/shopspring/decimal"
)

type YieldKind uint8

const (
	YieldNatural YieldKind = iota + 1
	YieldIncentive
	YieldBearing
)

func (k YieldKind) String() string {
	switch k {
	case YieldNatural:
		return "natural"
	case YieldIncentive:
		return "incentive"
	case YieldBearing:
		return "yield-bearing"
	default:
		return "unknown"
	}
}

func (k YieldKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// YieldComponent is one additive percentage contribution, e.g. 4.2 for 4.2%.
// TotalSupplied is set only by the component that is the source of truth for it.
type YieldComponent struct {
	Title         string
	Value         decimal.Decimal
	Kind          YieldKind
	Remarks       string
	TotalSupplied *FixedPoint
}

type CompositeYield struct {
	Total         decimal.Decimal
	Components    []YieldComponent
	TotalSupplied *FixedPoint
}
