package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept by every Money value.
const Scale = 4

// ratioPlaces is the number of decimal places kept by Ratio.
const ratioPlaces = 8

// ErrNegative is the panic value (wrapped) raised when a negative amount is constructed.
var ErrNegative = errors.New("money value cannot be lower than zero")

// Money is a non-negative amount with fixed scale, or Undefined.
type Money struct {
	amount  decimal.Decimal
	defined bool
}

var (
	// Undefined is the "no price" sentinel. It is the zero value of Money.
	Undefined = Money{}

	// Zero is the defined amount 0.
	Zero = Money{amount: decimal.Zero, defined: true}
)

// New returns d rounded half-up to Scale digits. It panics if d is negative.
func New(d decimal.Decimal) Money {
	if d.Sign() < 0 {
		panic(fmt.Errorf("%w: %s", ErrNegative, d.String()))
	}
	return Money{amount: d.Round(Scale), defined: true}
}

// FromInt returns a whole amount. It panics if v is negative.
func FromInt(v int64) Money {
	return New(decimal.NewFromInt(v))
}

// Parse reads a decimal amount from text. Any failure, including a negative
// amount, yields Zero.
func Parse(text string) Money {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || d.Sign() < 0 {
		return Zero
	}
	return New(d)
}

// IsDefined reports whether m carries a strictly positive amount. Zero is not
// a usable price and reports false.
func (m Money) IsDefined() bool {
	return m.defined && m.amount.Sign() > 0
}

// IsUndefined reports whether m is the Undefined sentinel.
func (m Money) IsUndefined() bool {
	return !m.defined
}

// Decimal returns the underlying amount. Undefined returns decimal zero.
func (m Money) Decimal() decimal.Decimal {
	if !m.defined {
		return decimal.Zero
	}
	return m.amount
}

// Multiply scales m by v.
func (m Money) Multiply(v decimal.Decimal) Money {
	if !m.defined {
		return Undefined
	}
	if v.IsZero() {
		return Zero
	}
	return New(m.amount.Mul(v))
}

// MultiplyInt scales m by an integer.
func (m Money) MultiplyInt(v int) Money {
	return m.Multiply(decimal.NewFromInt(int64(v)))
}

// Divide divides m by v. Division by zero yields Undefined.
func (m Money) Divide(v decimal.Decimal) Money {
	if !m.defined || v.IsZero() {
		return Undefined
	}
	return New(m.amount.DivRound(v, Scale))
}

// DivideInt divides m by an integer.
func (m Money) DivideInt(v int) Money {
	return m.Divide(decimal.NewFromInt(int64(v)))
}

// Ratio returns m / other rounded to 8 decimal places, or NaN when either
// side is Undefined or other is zero.
func (m Money) Ratio(other Money) float64 {
	if !m.defined || !other.defined || other.amount.IsZero() {
		return math.NaN()
	}
	f, _ := m.amount.DivRound(other.amount, ratioPlaces).Float64()
	return f
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	if !m.defined || !other.defined {
		return Undefined
	}
	return New(m.amount.Add(other.amount))
}

// Sub returns m - other. Callers must never subtract more than m holds: a
// negative result panics.
func (m Money) Sub(other Money) Money {
	if !m.defined || !other.defined {
		return Undefined
	}
	return New(m.amount.Sub(other.amount))
}

// Equal compares by value. Undefined only equals Undefined.
func (m Money) Equal(other Money) bool {
	if m.defined != other.defined {
		return false
	}
	return !m.defined || m.amount.Equal(other.amount)
}

// Float64 returns the amount as a float, NaN for Undefined.
func (m Money) Float64() float64 {
	if !m.defined {
		return math.NaN()
	}
	f, _ := m.amount.Float64()
	return f
}

// String renders "X" for Undefined, "-" for zero and the plain amount otherwise.
func (m Money) String() string {
	switch {
	case !m.defined:
		return "X"
	case m.amount.IsZero():
		return "-"
	default:
		return m.amount.String()
	}
}

// MarshalJSON encodes Undefined as null and amounts as JSON numbers.
func (m Money) MarshalJSON() ([]byte, error) {
	if !m.defined {
		return []byte("null"), nil
	}
	return []byte(m.amount.String()), nil
}

// UnmarshalJSON accepts null as Undefined and a JSON number or numeric
// string as an amount.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode money: %w", err)
	}
	if d.Sign() < 0 {
		return fmt.Errorf("decode money: %w: %s", ErrNegative, d.String())
	}
	*m = New(d)
	return nil
}
