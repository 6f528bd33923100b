package commands

import (
	"github.com/Rhymond/go-money"
	"github.com/susu3304/chipledger/internal/ledger"
)

// Formatter renders ledger amounts in a display currency.
type Formatter struct {
	currency *money.Currency
}

// NewFormatter returns a formatter for the ISO currency code, falling back
// to USD for codes go-money does not know.
func NewFormatter(code string) Formatter {
	cur := money.GetCurrency(code)
	if cur == nil {
		cur = money.GetCurrency(money.USD)
	}
	return Formatter{currency: cur}
}

// Amount formats c, which is always held in hundredths, in the minor units
// of the display currency.
func (f Formatter) Amount(c ledger.Cents) string {
	minor := c.Decimal().Shift(int32(f.currency.Fraction)).Round(0).IntPart()
	return money.New(minor, f.currency.Code).Display()
}

// Signed is Amount with an explicit plus sign on gains.
func (f Formatter) Signed(c ledger.Cents) string {
	if c > 0 {
		return "+" + f.Amount(c)
	}
	return f.Amount(c)
}
