// Package fixed provides the exact decimal number used for every amount,
// quantity, price and rate in a ledger.
//
// Addition and subtraction are exact. Multiplication and division round
// their result to Scale decimal places, half away from zero. Business
// predicates such as "fully paid" compare with a tolerance (see
// GreaterThan) because chained tax and currency arithmetic accumulates
// rounding noise.
package fixed

import (
	"database/sql/driver"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Scale is the number of decimal places kept by Mul and Div.
const Scale int32 = 10

// Tolerance is the default slack for tolerant comparisons.
var Tolerance = MustParse("0.005")

// Zero is the additive identity.
var Zero = Number{}

// One is the multiplicative identity.
var One = New(1)

// Number is an immutable fixed-point decimal. The zero value is 0.
type Number struct {
	v decimal.Decimal
}

// New returns n as a Number.
func New(n int64) Number { return Number{v: decimal.NewFromInt(n)} }

// FromDecimal wraps d.
func FromDecimal(d decimal.Decimal) Number { return Number{v: d} }

// Parse reads a decimal string such as "-12.50".
func Parse(s string) (Number, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Number{}, fmt.Errorf("parsing number %q: %w", s, err)
	}
	return Number{v: d}, nil
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Number {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseFraction reads GnuCash's "num/denom" notation, e.g. "10800/100".
// A plain decimal string is accepted as well.
func ParseFraction(s string) (Number, error) {
	for i := 0; i < len(s); i++ {
		if s[i] != '/' {
			continue
		}
		num, err := Parse(s[:i])
		if err != nil {
			return Number{}, err
		}
		den, err := Parse(s[i+1:])
		if err != nil {
			return Number{}, err
		}
		if den.IsZero() {
			return Number{}, fmt.Errorf("parsing number %q: zero denominator", s)
		}
		return num.Div(den), nil
	}
	return Parse(s)
}

func (n Number) Add(m Number) Number { return Number{v: n.v.Add(m.v)} }
func (n Number) Sub(m Number) Number { return Number{v: n.v.Sub(m.v)} }
func (n Number) Neg() Number         { return Number{v: n.v.Neg()} }
func (n Number) Abs() Number         { return Number{v: n.v.Abs()} }

// Mul returns n*m rounded to Scale places.
func (n Number) Mul(m Number) Number { return Number{v: n.v.Mul(m.v).Round(Scale)} }

// Div returns n/m rounded to Scale places. It panics when m is zero.
func (n Number) Div(m Number) Number { return Number{v: n.v.DivRound(m.v, Scale)} }

// Percent returns n/100.
func (n Number) Percent() Number { return Number{v: n.v.Shift(-2)} }

func (n Number) IsZero() bool        { return n.v.IsZero() }
func (n Number) IsPositive() bool    { return n.v.IsPositive() }
func (n Number) IsNegative() bool    { return n.v.IsNegative() }
func (n Number) Equal(m Number) bool { return n.v.Equal(m.v) }
func (n Number) Cmp(m Number) int    { return n.v.Cmp(m.v) }

// GreaterThan reports whether n exceeds m by more than tolerance.
func (n Number) GreaterThan(m, tolerance Number) bool {
	return n.v.Sub(m.v).GreaterThan(tolerance.v.Abs())
}

// ApproxEqual reports whether n and m differ by at most tolerance.
func (n Number) ApproxEqual(m, tolerance Number) bool {
	return n.v.Sub(m.v).Abs().LessThanOrEqual(tolerance.v.Abs())
}

// Round returns n rounded to places decimal places.
func (n Number) Round(places int32) Number { return Number{v: n.v.Round(places)} }

// Decimal exposes the underlying value.
func (n Number) Decimal() decimal.Decimal { return n.v }

func (n Number) String() string                 { return n.v.String() }
func (n Number) StringFixed(places int32) string { return n.v.StringFixed(places) }

// Format renders n in the notation of an ISO 4217 currency, rounded to the
// currency's minor unit. Unknown codes fall back to four decimals and the
// code as suffix.
func (n Number) Format(currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return n.v.StringFixed(4) + " " + currency
	}
	minor := n.v.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}

// MinorUnits returns the number of decimal places of an ISO 4217
// currency. Codes unknown to go-money get two.
func MinorUnits(currency string) int32 {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return 2
	}
	return int32(cur.Fraction)
}

// StringCurrency renders n rounded to the currency's minor unit, followed
// by the code.
func (n Number) StringCurrency(currency string) string {
	return n.v.StringFixed(MinorUnits(currency)) + " " + currency
}

// MarshalYAML writes the number as a string to keep it exact.
func (n Number) MarshalYAML() (any, error) { return n.v.String(), nil }

// UnmarshalYAML accepts a scalar in decimal or num/denom notation.
func (n *Number) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", value.Line)
	}
	parsed, err := ParseFraction(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*n = parsed
	return nil
}

// Value implements driver.Valuer.
func (n Number) Value() (driver.Value, error) { return n.v.String(), nil }

// Scan implements sql.Scanner.
func (n *Number) Scan(src any) error { return n.v.Scan(src) }

// Sum adds up ns.
func Sum(ns ...Number) Number {
	total := Zero
	for _, n := range ns {
		total = total.Add(n)
	}
	return total
}
