package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Cents is a monetary amount in minor units of the session currency.
type Cents int64

// MaxAmount is the largest single amount the parse boundary accepts
// (one hundred billion in major units). Sums of hundreds of thousands of such
// amounts still fit in an int64.
const MaxAmount Cents = 1e13

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats the amount with two fraction digits, e.g. "12.50".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// ParseAmount converts user input in major units into Cents.
// Blank input is zero.
func ParseAmount(s string) (Cents, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	return toCents(d)
}

// ParseQuantity converts a quantity typed at the table into Cents. When
// chipValue is set the input is a chip count and is multiplied by it;
// otherwise the input is already a currency amount.
func ParseQuantity(s string, chipValue *Cents) (Cents, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if chipValue == nil {
		return toCents(d)
	}
	return toCents(d.Mul(chipValue.Decimal()))
}

// toCents rounds d to cents, half away from zero, and rejects values above
// MaxAmount.
func toCents(d decimal.Decimal) (Cents, error) {
	c := d.Round(2).Shift(2)
	if c.GreaterThan(decimal.NewFromInt(int64(MaxAmount))) {
		return 0, fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, d, MaxAmount)
	}
	return Cents(c.IntPart()), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	}
	return d, nil
}
