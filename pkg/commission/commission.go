// Package commission holds the commission arithmetic shared by the webhook
// handler, the ledger reconciliation and the CLI.
package commission

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
)

// DefaultRate is the share of the order total credited to Capty
const DefaultRate = 0.10

// DefaultCurrency is assumed when an order carries no currency code
const DefaultCurrency = "USD"

var (
	// ErrInvalidRate is returned for rates outside [0, 1]
	ErrInvalidRate = errors.New("commission rate must be between 0 and 1")
	// ErrInvalidAmount is returned when an order total cannot be parsed
	ErrInvalidAmount = errors.New("invalid amount")
)

// Quote is the commission computed for one order
type Quote struct {
	Rate     float64
	Amount   float64
	Currency string
}

// Calculator computes commissions at a fixed rate
type Calculator struct {
	rate float64
}

// NewCalculator creates a calculator for the given rate
func NewCalculator(rate float64) (*Calculator, error) {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}
	return &Calculator{rate: rate}, nil
}

// Rate returns the rate applied to every order
func (c *Calculator) Rate() float64 {
	return c.rate
}

// Compute returns the commission owed for an order total
func (c *Calculator) Compute(total float64, currencyCode string) Quote {
	code := NormalizeCurrency(currencyCode)
	return Quote{
		Rate:     c.rate,
		Amount:   Round(total*c.rate, code),
		Currency: code,
	}
}

// NormalizeCurrency upper-cases a currency code and falls back to USD when it
// is empty or not three letters
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !isISOCode(code) {
		return DefaultCurrency
	}
	return code
}

// isISOCode reports whether code has the shape of an ISO 4217 code
func isISOCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// Precision returns the number of minor-unit digits for a currency.
// Unknown codes use two digits.
func Precision(code string) int {
	scale, _ := rounding(code)
	return scale
}

func rounding(code string) (scale, increment int) {
	unit, err := currency.ParseISO(NormalizeCurrency(code))
	if err != nil {
		return 2, 1
	}
	scale, increment = currency.Standard.Rounding(unit)
	if increment <= 0 {
		increment = 1
	}
	return scale, increment
}

// Round rounds an amount to the standard precision of the currency
func Round(amount float64, code string) float64 {
	scale, increment := rounding(code)
	factor := math.Pow10(scale) / float64(increment)
	return math.Round(amount*factor) / factor
}

// ParseAmount parses a Shopify decimal string such as "129.95"
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// OrderReference builds the Capty reference shown next to an order,
// CAPTY-{orderId}-{first 8 characters of the click id}.
func OrderReference(orderID, clickID string) string {
	short := clickID
	if r := []rune(short); len(r) > 8 {
		short = string(r[:8])
	}
	if short == "" {
		short = "unknown"
	}
	return fmt.Sprintf("CAPTY-%s-%s", orderID, short)
}
