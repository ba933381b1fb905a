package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ProtocolID is the closed set of integrations a holding can come from.
type ProtocolID uint8

const (
	ProtocolWallet ProtocolID = iota + 1
	ProtocolDex
	ProtocolLending
	ProtocolVault
)

var protocolNames = map[ProtocolID]string{
	ProtocolWallet:  "wallet",
	ProtocolDex:     "dex",
	ProtocolLending: "lending",
	ProtocolVault:   "vault",
}

func (p ProtocolID) String() string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return fmt.Sprintf("protocol(%d)", uint8(p))
}

func (p ProtocolID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func ParseProtocolID(s string) (ProtocolID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for id, name := range protocolNames {
		if name == s {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrorUnknownProtocol, s)
}

// AllProtocols lists every protocol in a stable order.
func AllProtocols() []ProtocolID {
	ids := make([]ProtocolID, 0, len(protocolNames))
	for id := range protocolNames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Holding is the staked-token exposure a user has inside one protocol.
// A zero Holding with Err set is a valid result meaning "unavailable".
type Holding struct {
	StakedTokenAmount     FixedPoint
	UnderlyingTokenAmount FixedPoint
	Source                ProtocolID
	Err                   error
}

func ZeroHolding(source ProtocolID, stakedDecimals, underlyingDecimals uint8) Holding {
	return Holding{
		StakedTokenAmount:     ZeroFixedPoint(stakedDecimals),
		UnderlyingTokenAmount: ZeroFixedPoint(underlyingDecimals),
		Source:                source,
	}
}

func FailedHolding(source ProtocolID, stakedDecimals, underlyingDecimals uint8, err error) Holding {
	h := ZeroHolding(source, stakedDecimals, underlyingDecimals)
	h.Err = err
	return h
}

func (h Holding) Failed() bool {
	return h.Err != nil
}

// AggregateHoldings is built once per aggregation and never mutated afterwards.
type AggregateHoldings struct {
	PerProtocol map[ProtocolID]Holding
	Total       Holding
	Block       ResolvedBlock
	Partial     bool
}

// NewAggregateHoldings sums every holding without an error into Total.
// Failed protocols stay visible in PerProtocol but contribute zero.
func NewAggregateHoldings(block ResolvedBlock, holdings []Holding, stakedDecimals, underlyingDecimals uint8) AggregateHoldings {
	result := AggregateHoldings{
		PerProtocol: make(map[ProtocolID]Holding, len(holdings)),
		Total:       ZeroHolding(0, stakedDecimals, underlyingDecimals),
		Block:       block,
	}
	for _, h := range holdings {
		result.PerProtocol[h.Source] = h
		if h.Failed() {
			continue
		}
		result.Total.StakedTokenAmount = result.Total.StakedTokenAmount.Add(h.StakedTokenAmount)
		result.Total.UnderlyingTokenAmount = result.Total.UnderlyingTokenAmount.Add(h.UnderlyingTokenAmount)
	}
	return result
}

// Failures returns the protocols whose holdings carry an error.
func (a AggregateHoldings) Failures() []ProtocolID {
	failed := make([]ProtocolID, 0)
	for id, h := range a.PerProtocol {
		if h.Failed() {
			failed = append(failed, id)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	return failed
}

// Position is a raw (staked, underlying) pair reported by an off-chain index.
// Missing fields are zero.
type Position struct {
	Staked     FixedPoint
	Underlying FixedPoint
}

// Holding turns the position into a Holding for source.
func (p Position) Holding(source ProtocolID, stakedDecimals, underlyingDecimals uint8) Holding {
	return Holding{
		StakedTokenAmount:     p.Staked.Rescale(stakedDecimals),
		UnderlyingTokenAmount: p.Underlying.Rescale(underlyingDecimals),
		Source:                source,
	}
}
