package exchange

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// QuantityPrecision is the decimal-place precision market orders are
// rounded to. Good enough for the majors; per-symbol lot filters are the
// live client's concern.
const QuantityPrecision = 6

// QuantityForQuote converts a quote-currency amount into a base quantity at
// the given price, rounded down to QuantityPrecision so the order never
// spends more than the quote amount.
func QuantityForQuote(quoteAmount, price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("exchange: non-positive price %f", price)
	}
	qty := decimal.NewFromFloat(quoteAmount).
		Div(decimal.NewFromFloat(price)).
		RoundDown(QuantityPrecision)
	f, _ := qty.Float64()
	if f < 0 {
		return 0, fmt.Errorf("exchange: negative quantity for quote %f", quoteAmount)
	}
	return f, nil
}

// FormatQuantity renders a quantity the way exchange REST APIs expect:
// plain decimal notation, no exponent, trailing zeros trimmed.
func FormatQuantity(qty float64) string {
	return decimal.NewFromFloat(qty).RoundDown(QuantityPrecision).String()
}
