// Package money is the exact fixed-point amount type used for every balance,
// deposit, withdrawal, and exchange in the system. Token amounts carry six
// fractional digits, fiat amounts two. No binary floating point touches money.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

const (
	// TokenScale is the number of fractional digits of the token (USDT).
	TokenScale int32 = 6
	// FiatScale is the number of fractional digits of fiat amounts.
	FiatScale int32 = 2
)

// Amount is an exact base-10 amount. The zero value is 0.
type Amount struct {
	d decimal.Decimal
}

func fromDecimal(d decimal.Decimal) Amount { return Amount{d: d} }

// Zero is the zero amount.
var Zero = Amount{}

// ParseToken parses a positive token amount with at most six fractional
// digits. Malformed, non-positive, or over-precise input returns
// ErrInvalidAmount.
func ParseToken(s string) (Amount, error) {
	return parse(s, TokenScale)
}

// ParseFiat parses a positive fiat amount with at most two fractional digits.
func ParseFiat(s string) (Amount, error) {
	return parse(s, FiatScale)
}

func parse(s string, scale int32) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse %q: %w", s, ErrInvalidAmount)
	}
	if !d.IsPositive() {
		return Amount{}, fmt.Errorf("parse %q: not positive: %w", s, ErrInvalidAmount)
	}
	if d.Exponent() < -scale {
		return Amount{}, fmt.Errorf("parse %q: more than %d fractional digits: %w", s, scale, ErrInvalidAmount)
	}
	return Amount{d: d}, nil
}

// FromDecimal wraps an arbitrary decimal. Callers own the precision.
func FromDecimal(d decimal.Decimal) Amount { return Amount{d: d} }

// FromUnits converts an integer amount of smallest token units (e.g. 10123400
// at scale 6) into an Amount of 10.1234.
func FromUnits(units *big.Int, scale int32) Amount {
	return Amount{d: decimal.NewFromBigInt(units, -scale)}
}

// Units converts the amount into smallest token units, truncating anything
// below the scale.
func (a Amount) Units(scale int32) *big.Int {
	return a.d.Shift(scale).Truncate(0).BigInt()
}

func (a Amount) Add(b Amount) Amount { return fromDecimal(a.d.Add(b.d)) }
func (a Amount) Sub(b Amount) Amount { return fromDecimal(a.d.Sub(b.d)) }

// MulRate multiplies the amount by an exchange rate without rounding;
// format with FormatFiat/RoundFiat when presenting the result.
func (a Amount) MulRate(rate decimal.Decimal) Amount {
	return fromDecimal(a.d.Mul(rate))
}

// RoundFiat rounds half-up to the fiat scale.
func (a Amount) RoundFiat() Amount { return fromDecimal(a.d.Round(FiatScale)) }

func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }
func (a Amount) IsPositive() bool { return a.d.IsPositive() }
func (a Amount) IsNegative() bool { return a.d.IsNegative() }
func (a Amount) IsZero() bool { return a.d.IsZero() }

func (a Amount) Decimal() decimal.Decimal { return a.d }

// FormatToken renders with exactly six digits after the decimal point,
// rounding half-up on the last retained digit. Amounts are always positive,
// so Round (half away from zero) is half-up here.
func (a Amount) FormatToken() string { return a.d.StringFixed(TokenScale) }

// FormatFiat renders with exactly two digits after the decimal point.
func (a Amount) FormatFiat() string { return a.d.StringFixed(FiatScale) }

// String renders the shortest exact representation, for logs.
func (a Amount) String() string { return a.d.String() }

func (a Amount) MarshalJSON() ([]byte, error) { return a.d.MarshalJSON() }

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.d.UnmarshalJSON(b)
}

// Value implements driver.Valuer so Amount can be written to NUMERIC columns.
func (a Amount) Value() (driver.Value, error) { return a.d.Value() }

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error { return a.d.Scan(src) }
