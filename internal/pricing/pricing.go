// Package pricing derives table costs and reservation amounts.  All money
// is fixed-point decimal; conversion to integer minor units only happens
// at the payment gateway boundary.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencySymbol is appended to every formatted amount.
const CurrencySymbol = "€"

var (
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrNegativeQuantity = errors.New("quantity must not be negative")
	// ErrInexactAmount is returned when an amount has sub-cent precision
	// and cannot be expressed in minor units without rounding.
	ErrInexactAmount = errors.New("amount is not representable in minor units")
	// ErrAmountOutOfRange is returned for amounts the record store cannot
	// hold (DECIMAL(12,2)).
	ErrAmountOutOfRange = errors.New("amount exceeds 9999999999.99")
)

var (
	hundred       = decimal.NewFromInt(100)
	maxMinorUnits = decimal.NewFromInt(1 << 62)
	maxAmount     = decimal.RequireFromString("9999999999.99")
)

// ValidateAmount reports whether amount can be stored as is: not
// negative, at most two decimals and within DECIMAL(12,2).
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: %s", ErrInexactAmount, amount.String())
	}
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: %s", ErrAmountOutOfRange, amount.String())
	}
	return nil
}

// TableTotalCost returns minSpend × capacity.
func TableTotalCost(minSpend decimal.Decimal, capacity int) (decimal.Decimal, error) {
	return multiply(minSpend, capacity)
}

// ReservationTotalAmount returns minSpend × numPeople.
func ReservationTotalAmount(minSpend decimal.Decimal, numPeople int) (decimal.Decimal, error) {
	return multiply(minSpend, numPeople)
}

func multiply(unit decimal.Decimal, n int) (decimal.Decimal, error) {
	if err := ValidateAmount(unit); err != nil {
		return decimal.Zero, err
	}
	if n < 0 {
		return decimal.Zero, ErrNegativeQuantity
	}
	total := unit.Mul(decimal.NewFromInt(int64(n)))
	if total.GreaterThan(maxAmount) {
		return decimal.Zero, fmt.Errorf("%w: %s * %d", ErrAmountOutOfRange, unit.String(), n)
	}
	return total, nil
}

// AmountRemaining returns total − paid.  The result is negative when the
// reservation was overpaid; it is not clamped.
func AmountRemaining(total, paid decimal.Decimal) decimal.Decimal {
	return total.Sub(paid)
}

// IsOverpaid reports whether more than the total has been paid.
func IsOverpaid(total, paid decimal.Decimal) bool {
	return AmountRemaining(total, paid).IsNegative()
}

// ToMinorUnits converts an amount to integer cents.  Amounts with a
// fractional cent are rejected instead of rounded.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	cents := amount.Mul(hundred)
	if !cents.IsInteger() || cents.GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("%w: %s", ErrInexactAmount, amount.String())
	}
	return cents.IntPart(), nil
}

// FromMinorUnits converts integer cents back to a decimal amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders an amount with two decimals and the currency symbol,
// e.g. "12.50 €".
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " " + CurrencySymbol
}
