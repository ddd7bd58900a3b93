// internal/pkg/money/money.go
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places money is stored and serialized with
const Scale int32 = 2

// Money is a decimal amount in the store currency.
// The zero value is 0.00.
type Money struct {
	amount decimal.Decimal
}

// New wraps a decimal amount
func New(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// FromInt creates money from a whole amount
func FromInt(amount int64) Money {
	return Money{amount: decimal.NewFromInt(amount)}
}

// FromString parses a decimal string such as "19.99"
func FromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money amount %q: %w", amount, err)
	}
	return Money{amount: d}, nil
}

// MustParse is FromString that panics on malformed input. For literals and tests.
func MustParse(amount string) Money {
	m, err := FromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns 0.00
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the underlying decimal
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Mul multiplies by an arbitrary decimal factor without rounding
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor)}
}

// MulInt multiplies by a quantity without rounding
func (m Money) MulInt(n int) Money {
	return m.Mul(decimal.NewFromInt(int64(n)))
}

// Round rounds half away from zero to the given number of places
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places)}
}

// RoundCents rounds to the storage scale
func (m Money) RoundCents() Money {
	return m.Round(Scale)
}

// Max returns the larger of m and other
func (m Money) Max(other Money) Money {
	if m.amount.GreaterThanOrEqual(other.amount) {
		return m
	}
	return other
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

func (m Money) Equal(other Money) bool       { return m.amount.Equal(other.amount) }
func (m Money) LessThan(other Money) bool    { return m.amount.LessThan(other.amount) }
func (m Money) GreaterThan(other Money) bool { return m.amount.GreaterThan(other.amount) }

// String formats with exactly two decimal places
func (m Money) String() string {
	return m.amount.StringFixed(Scale)
}

// MarshalJSON encodes money as a string with two decimal places, e.g. "19.90"
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		m.amount = decimal.Zero
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid money amount %s: %w", data, err)
	}
	m.amount = d
	return nil
}

// Value implements driver.Valuer, persisting at the storage scale
func (m Money) Value() (driver.Value, error) {
	return m.amount.StringFixed(Scale), nil
}

// Scan implements sql.Scanner
func (m *Money) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		m.amount = decimal.Zero
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("scan money from %q: %w", v, err)
		}
		m.amount = d
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("scan money from %q: %w", v, err)
		}
		m.amount = d
	case float64:
		m.amount = decimal.NewFromFloat(v).Round(Scale)
	case float32:
		m.amount = decimal.NewFromFloat32(v).Round(Scale)
	case int64:
		m.amount = decimal.NewFromInt(v)
	default:
		return fmt.Errorf("cannot scan %T into money", value)
	}
	return nil
}

// Sum adds up amounts without re-rounding
func Sum(amounts ...Money) Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
