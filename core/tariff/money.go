package tariff

import (
	"fmt"
	"math/big"
	"strings"
)

// AmountDecimals is the fixed-point scale shared by monetary amounts and
// energy quantities. All arithmetic floors intermediate results.
const AmountDecimals = 18

var amountScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(AmountDecimals), nil)

// whToKwh converts integer watt-hours to 1e18-scaled kWh.
var whToKwh = new(big.Int).Exp(big.NewInt(10), big.NewInt(AmountDecimals-3), nil)

// Amount is an integer fixed-point value with 18 decimal places. The zero
// value is not usable; construct amounts through the New* helpers. Amounts
// are immutable: every operation returns a fresh value.
type Amount struct {
	v big.Int
}

// NewAmount returns an amount of the given number of whole units.
func NewAmount(units int64) *Amount {
	a := &Amount{}
	a.v.Mul(big.NewInt(units), amountScale)
	return a
}

// NewAmountRaw wraps an already 1e18-scaled integer.
func NewAmountRaw(raw *big.Int) *Amount {
	a := &Amount{}
	a.v.Set(raw)
	return a
}

// EnergyFromWh converts a watt-hour meter delta to a 1e18-scaled kWh amount.
func EnergyFromWh(wh int64) *Amount {
	a := &Amount{}
	a.v.Mul(big.NewInt(wh), whToKwh)
	return a
}

// ParseAmount parses a decimal string such as "0.25" into an amount.
// At most 18 fractional digits are accepted.
func ParseAmount(s string) (*Amount, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > AmountDecimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, AmountDecimals)
	}
	digits := intPart + fracPart + strings.Repeat("0", AmountDecimals-len(fracPart))
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if neg {
		v.Neg(v)
	}
	return NewAmountRaw(v), nil
}

// MustAmount parses a decimal string and panics on failure. Intended for
// constants and tests.
func MustAmount(s string) *Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Raw returns a copy of the underlying 1e18-scaled integer.
func (a *Amount) Raw() *big.Int { return new(big.Int).Set(&a.v) }

// Add returns a+b.
func (a *Amount) Add(b *Amount) *Amount {
	r := &Amount{}
	r.v.Add(&a.v, &b.v)
	return r
}

// Sub returns a-b.
func (a *Amount) Sub(b *Amount) *Amount {
	r := &Amount{}
	r.v.Sub(&a.v, &b.v)
	return r
}

// MulScaled returns floor(a*b/1e18), the fixed-point product. Used to price
// a 1e18-scaled quantity at a 1e18-scaled unit price.
func (a *Amount) MulScaled(b *Amount) *Amount {
	r := &Amount{}
	r.v.Mul(&a.v, &b.v)
	r.v.Quo(&r.v, amountScale)
	return r
}

// MulInt returns a*n.
func (a *Amount) MulInt(n int64) *Amount {
	r := &Amount{}
	r.v.Mul(&a.v, big.NewInt(n))
	return r
}

// AddVAT returns a + floor(a*vat/100) for an integer VAT percentage.
func (a *Amount) AddVAT(vat int) *Amount {
	tax := new(big.Int).Mul(&a.v, big.NewInt(int64(vat)))
	tax.Quo(tax, big.NewInt(100))
	r := &Amount{}
	r.v.Add(&a.v, tax)
	return r
}

// Cmp compares a and b, returning -1, 0 or 1.
func (a *Amount) Cmp(b *Amount) int { return a.v.Cmp(&b.v) }

// Sign returns -1, 0 or 1 depending on the sign of a.
func (a *Amount) Sign() int { return a.v.Sign() }

// IsZero reports whether a is nil or exactly zero. A nil amount is treated
// as "unset" throughout the tariff model.
func (a *Amount) IsZero() bool { return a == nil || a.v.Sign() == 0 }

// Float64 returns an approximate float representation. Only used for
// advisory calculations such as cost projection, never for pricing.
func (a *Amount) Float64() float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(&a.v), new(big.Float).SetInt(amountScale)).Float64()
	return f
}

// String renders the amount as a decimal with trailing zeros trimmed.
func (a *Amount) String() string {
	v := new(big.Int).Set(&a.v)
	neg := v.Sign() < 0
	if neg {
		v.Neg(v)
	}
	quo, rem := new(big.Int).QuoRem(v, amountScale, new(big.Int))
	s := quo.String()
	if rem.Sign() != 0 {
		frac := fmt.Sprintf("%018d", rem)
		frac = strings.TrimRight(frac, "0")
		s += "." + frac
	}
	if neg {
		s = "-" + s
	}
	return s
}

// MarshalJSON encodes the amount as a decimal string.
func (a *Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted decimal strings and bare JSON numbers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		a.v.SetInt64(0)
		return nil
	}
	p, err := ParseAmount(s)
	if err != nil {
		return err
	}
	a.v.Set(&p.v)
	return nil
}

// Price carries a pre-tax and a taxed amount for the same cost. A nil or
// zero ExclVat on a tariff min/max price means the clamp is unset.
type Price struct {
	ExclVat *Amount `json:"excl_vat"`
	InclVat *Amount `json:"incl_vat"`
}

// ZeroPrice returns a price with both fields set to zero.
func ZeroPrice() Price {
	return Price{ExclVat: NewAmount(0), InclVat: NewAmount(0)}
}
