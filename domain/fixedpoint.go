package domain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrorDivisionByZero = fmt.Errorf("division by zero")
	ErrorInvalidAmount  = fmt.Errorf("invalid amount")
	ErrorPrecisionLoss  = fmt.Errorf("amount has more fraction digits than allowed")
)

// FixedPoint is an immutable arbitrary-precision decimal: raw / 10^decimals.
// Every operation returns a new value; the raw integer is never shared.
//
// Rounding: whenever a result must drop digits (Rescale down, Mul, Div, MulDiv)
// the value is floored toward negative infinity.
type FixedPoint struct {
	raw      *big.Int
	decimals uint8
}

func NewFixedPoint(raw *big.Int, decimals uint8) FixedPoint {
	v := new(big.Int)
	if raw != nil {
		v.Set(raw)
	}
	return FixedPoint{raw: v, decimals: decimals}
}

func NewFixedPointInt64(raw int64, decimals uint8) FixedPoint {
	return FixedPoint{raw: big.NewInt(raw), decimals: decimals}
}

func ZeroFixedPoint(decimals uint8) FixedPoint {
	return FixedPoint{raw: new(big.Int), decimals: decimals}
}

// OneFixedPoint returns 1.0 at the given precision.
func OneFixedPoint(decimals uint8) FixedPoint {
	return FixedPoint{raw: pow10(int(decimals)), decimals: decimals}
}

// ParseFixedPoint parses a decimal string like "1234.5678". Inputs with more
// fraction digits than decimals are rejected instead of being truncated.
func ParseFixedPoint(s string, decimals uint8) (FixedPoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FixedPoint{}, ErrorInvalidAmount
	}

	negative := false
	if s[0] == '-' || s[0] == '+' {
		negative = s[0] == '-'
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return FixedPoint{}, fmt.Errorf("%w: %q", ErrorInvalidAmount, s)
	}
	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" && frac == "" {
		return FixedPoint{}, fmt.Errorf("%w: %q", ErrorInvalidAmount, s)
	}
	if len(frac) > int(decimals) {
		return FixedPoint{}, fmt.Errorf("%w: %q at %d decimals", ErrorPrecisionLoss, s, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	raw, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return FixedPoint{}, fmt.Errorf("%w: %q", ErrorInvalidAmount, s)
	}
	if negative {
		raw.Neg(raw)
	}
	return FixedPoint{raw: raw, decimals: decimals}, nil
}

// Raw returns a copy of the underlying integer.
func (f FixedPoint) Raw() *big.Int {
	return new(big.Int).Set(f.value())
}

func (f FixedPoint) Decimals() uint8 {
	return f.decimals
}

func (f FixedPoint) IsZero() bool {
	return f.value().Sign() == 0
}

func (f FixedPoint) Sign() int {
	return f.value().Sign()
}

// Cmp compares two values after bringing them to a common precision.
func (f FixedPoint) Cmp(o FixedPoint) int {
	d := maxDecimals(f.decimals, o.decimals)
	return f.scaledTo(d).Cmp(o.scaledTo(d))
}

func (f FixedPoint) Equal(o FixedPoint) bool {
	return f.Cmp(o) == 0
}

// Add returns f + o at the larger of the two precisions. Exact.
func (f FixedPoint) Add(o FixedPoint) FixedPoint {
	d := maxDecimals(f.decimals, o.decimals)
	return FixedPoint{raw: new(big.Int).Add(f.scaledTo(d), o.scaledTo(d)), decimals: d}
}

// Sub returns f - o at the larger of the two precisions. Exact.
func (f FixedPoint) Sub(o FixedPoint) FixedPoint {
	d := maxDecimals(f.decimals, o.decimals)
	return FixedPoint{raw: new(big.Int).Sub(f.scaledTo(d), o.scaledTo(d)), decimals: d}
}

// Mul returns f * o rounded (floor) to out decimals.
func (f FixedPoint) Mul(o FixedPoint, out uint8) FixedPoint {
	product := new(big.Int).Mul(f.value(), o.value())
	return rescaleRaw(product, int(f.decimals)+int(o.decimals), out)
}

// Div returns f / o floored to out decimals:
// f.raw * 10^(out + o.decimals - f.decimals) / o.raw.
func (f FixedPoint) Div(o FixedPoint, out uint8) (FixedPoint, error) {
	if o.IsZero() {
		return FixedPoint{}, ErrorDivisionByZero
	}
	return divScaled(f.value(), int(f.decimals), o.value(), int(o.decimals), out), nil
}

// MulDiv returns f * num / den as a single widened operation so the
// intermediate product is never truncated. The result is floored to out decimals.
func (f FixedPoint) MulDiv(num, den FixedPoint, out uint8) (FixedPoint, error) {
	if den.IsZero() {
		return FixedPoint{}, ErrorDivisionByZero
	}
	product := new(big.Int).Mul(f.value(), num.value())
	return divScaled(product, int(f.decimals)+int(num.decimals), den.value(), int(den.decimals), out), nil
}

// Rescale changes precision. Going up is exact; going down floors.
func (f FixedPoint) Rescale(decimals uint8) FixedPoint {
	return rescaleRaw(f.value(), int(f.decimals), decimals)
}

// String renders the value at full precision, e.g. "1.052631578947368421".
func (f FixedPoint) String() string {
	return formatRaw(f.value(), int(f.decimals))
}

// DisplayString renders the value floored to precision fraction digits.
func (f FixedPoint) DisplayString(precision uint8) string {
	if precision >= f.decimals {
		return f.String()
	}
	return f.Rescale(precision).String()
}

// Float64 is for display only. Never feed it back into a computation.
func (f FixedPoint) Float64() float64 {
	num := new(big.Float).SetInt(f.value())
	den := new(big.Float).SetInt(pow10(int(f.decimals)))
	v, _ := new(big.Float).Quo(num, den).Float64()
	return v
}

func (f FixedPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f FixedPoint) value() *big.Int {
	if f.raw == nil {
		return new(big.Int)
	}
	return f.raw
}

func (f FixedPoint) scaledTo(decimals uint8) *big.Int {
	if decimals == f.decimals {
		return f.value()
	}
	return new(big.Int).Mul(f.value(), pow10(int(decimals)-int(f.decimals)))
}

func divScaled(num *big.Int, numDecimals int, den *big.Int, denDecimals int, out uint8) FixedPoint {
	exp := int(out) + denDecimals - numDecimals
	n := new(big.Int).Set(num)
	d := new(big.Int).Set(den)
	if exp >= 0 {
		n.Mul(n, pow10(exp))
	} else {
		d.Mul(d, pow10(-exp))
	}
	return FixedPoint{raw: floorDiv(n, d), decimals: out}
}

func rescaleRaw(raw *big.Int, from int, to uint8) FixedPoint {
	diff := int(to) - from
	switch {
	case diff == 0:
		return FixedPoint{raw: new(big.Int).Set(raw), decimals: to}
	case diff > 0:
		return FixedPoint{raw: new(big.Int).Mul(raw, pow10(diff)), decimals: to}
	default:
		return FixedPoint{raw: floorDiv(raw, pow10(-diff)), decimals: to}
	}
}

// floorDiv divides rounding toward negative infinity. big.Int.Quo truncates
// toward zero and big.Int.Div is Euclidean, neither of which is floor for all signs.
func floorDiv(x, y *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && (r.Sign() < 0) != (y.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

func formatRaw(raw *big.Int, decimals int) string {
	abs := new(big.Int).Abs(raw)
	digits := abs.String()
	sign := ""
	if raw.Sign() < 0 {
		sign = "-"
	}
	if decimals == 0 {
		return sign + digits
	}
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	cut := len(digits) - decimals
	return sign + digits[:cut] + "." + digits[cut:]
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func maxDecimals(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}
