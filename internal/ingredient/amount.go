package ingredient

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Amount is a non-negative decimal quantity or price.
//
// Decoding is lenient: numbers and numeric strings are accepted, anything else
// (including negative values) becomes zero. This is the only place loosely
// typed input is turned into numbers.
type Amount struct {
	value decimal.Decimal
}

// A builds an Amount from a number. Negative values are clamped to zero.
func A[T float64 | int | int64 | decimal.Decimal](value T) Amount {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return clamp(v)
	case float64:
		return clamp(decimal.NewFromFloat(v))
	case int:
		return clamp(decimal.NewFromInt(int64(v)))
	case int64:
		return clamp(decimal.NewFromInt(v))
	default:
		panic("unsupported type")
	}
}

// ParseAmount parses s, returning zero for blank, malformed or negative input.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}
	}
	// Accept a decimal comma as typed in forms ("1,5").
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return Amount{}
	}
	return clamp(d)
}

func clamp(d decimal.Decimal) Amount {
	if d.IsNegative() {
		return Amount{}
	}
	return Amount{value: d}
}

func (a Amount) Decimal() decimal.Decimal { return a.value }
func (a Amount) IsZero() bool             { return a.value.IsZero() }
func (a Amount) IsPositive() bool         { return a.value.IsPositive() }
func (a Amount) Equal(b Amount) bool      { return a.value.Equal(b.value) }
func (a Amount) GreaterThan(b Amount) bool {
	return a.value.GreaterThan(b.value)
}
func (a Amount) Add(b Amount) Amount { return Amount{value: a.value.Add(b.value)} }
func (a Amount) Mul(d decimal.Decimal) Amount {
	return clamp(a.value.Mul(d))
}

// Sub subtracts b and floors the result at zero.
func (a Amount) Sub(b Amount) Amount { return clamp(a.value.Sub(b.value)) }

// Float64 is for display only.
func (a Amount) Float64() float64 { return a.value.InexactFloat64() }

func (a Amount) String() string { return a.value.String() }

// MarshalJSON writes the amount as a JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.String()), nil
}

// UnmarshalJSON accepts a number, a numeric string or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	*a = ParseAmount(string(bytes.Trim(data, `"`)))
	return nil
}

// UnmarshalYAML accepts any scalar; non-numeric scalars decode to zero.
func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		*a = Amount{}
		return nil
	}
	*a = ParseAmount(node.Value)
	return nil
}

// MarshalYAML writes the amount as a plain number.
func (a Amount) MarshalYAML() (interface{}, error) {
	return a.value.InexactFloat64(), nil
}
