// README: Common money and geo value objects used across modules.
package types

import "fmt"

// Currency is fixed; the meter does not support multi-currency.
const (
	Currency       = "INR"
	CurrencySymbol = "₹"
)

type ID string

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney returns an amount in the meter currency.
func NewMoney(amount int64) Money {
	return Money{Amount: amount, Currency: Currency}
}

// Display formats the amount for presentation, e.g. "₹38.00".
func (m Money) Display() string {
	return fmt.Sprintf("%s%.2f", CurrencySymbol, float64(m.Amount))
}
