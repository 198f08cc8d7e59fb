package pricing

import (
	"fmt"
	"math"
)

// DiscountType is a closed set; anything else is rejected before any
// mutation happens.
type DiscountType string

const (
	DiscountNone        DiscountType = "none"
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

func ParseDiscountType(raw string) (DiscountType, bool) {
	switch DiscountType(raw) {
	case DiscountNone, "":
		return DiscountNone, true
	case DiscountPercentage:
		return DiscountPercentage, true
	case DiscountFixedAmount:
		return DiscountFixedAmount, true
	default:
		return "", false
	}
}

// LineInput is one cart line with the price captured at sale time. Monetary
// values are integer minor units (cents). DiscountValue is interpreted per
// DiscountType: percent for percentage discounts, cents for fixed amounts.
type LineInput struct {
	UnitPriceCents int64
	Quantity       int64
	DiscountType   DiscountType
	DiscountValue  float64
}

type PricedLine struct {
	UnitPriceCents           int64
	Quantity                 int64
	DiscountType             DiscountType
	DiscountValue            float64
	DiscountedUnitPriceCents int64
	LineTotalCents           int64
	DiscountCents            int64
}

type Totals struct {
	Lines              []PricedLine
	SubtotalCents      int64
	TotalDiscountCents int64
	TaxAmountCents     int64
	TotalCents         int64
}

// LineError reports the offending line of an invalid cart. Any single bad
// line fails the whole calculation; callers must not have mutated anything
// before calling Calculate.
type LineError struct {
	Index  int
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Index, e.Reason)
}

// Calculate prices a cart. Pure function: validates every line's discount,
// derives the discounted unit price (rounded to a cent, once per line), and
// aggregates subtotal, total discount, tax, and total.
func Calculate(lines []LineInput, taxRatePercent float64) (*Totals, error) {
	if len(lines) == 0 {
		return nil, &LineError{Index: 0, Reason: "no line items"}
	}
	if taxRatePercent < 0 || taxRatePercent > 100 {
		return nil, fmt.Errorf("tax rate %.2f out of range", taxRatePercent)
	}

	totals := &Totals{Lines: make([]PricedLine, 0, len(lines))}

	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, &LineError{Index: i, Reason: "quantity must be positive"}
		}
		if line.UnitPriceCents < 0 {
			return nil, &LineError{Index: i, Reason: "unit price must be non-negative"}
		}

		discounted, err := discountedUnitPrice(i, line)
		if err != nil {
			return nil, err
		}

		lineTotal := discounted * line.Quantity
		discount := (line.UnitPriceCents - discounted) * line.Quantity

		totals.Lines = append(totals.Lines, PricedLine{
			UnitPriceCents:           line.UnitPriceCents,
			Quantity:                 line.Quantity,
			DiscountType:             line.DiscountType,
			DiscountValue:            line.DiscountValue,
			DiscountedUnitPriceCents: discounted,
			LineTotalCents:           lineTotal,
			DiscountCents:            discount,
		})

		totals.SubtotalCents += lineTotal
		totals.TotalDiscountCents += discount
	}

	totals.TaxAmountCents = roundCents(float64(totals.SubtotalCents) * taxRatePercent / 100)
	totals.TotalCents = totals.SubtotalCents + totals.TaxAmountCents

	return totals, nil
}

func discountedUnitPrice(index int, line LineInput) (int64, error) {
	switch line.DiscountType {
	case DiscountNone, "":
		if line.DiscountValue != 0 {
			return 0, &LineError{Index: index, Reason: "discount value must be zero when no discount is applied"}
		}
		return line.UnitPriceCents, nil

	case DiscountPercentage:
		if line.DiscountValue < 0 || line.DiscountValue > 100 {
			return 0, &LineError{Index: index, Reason: fmt.Sprintf("percentage discount %.2f out of range [0,100]", line.DiscountValue)}
		}
		return roundCents(float64(line.UnitPriceCents) * (1 - line.DiscountValue/100)), nil

	case DiscountFixedAmount:
		if line.DiscountValue < 0 || line.DiscountValue > float64(line.UnitPriceCents) {
			return 0, &LineError{Index: index, Reason: fmt.Sprintf("fixed discount %.2f out of range [0,unit price]", line.DiscountValue)}
		}
		return line.UnitPriceCents - roundCents(line.DiscountValue), nil

	default:
		return 0, &LineError{Index: index, Reason: fmt.Sprintf("unknown discount type %q", line.DiscountType)}
	}
}

// roundCents rounds half away from zero; inputs are non-negative here.
func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
