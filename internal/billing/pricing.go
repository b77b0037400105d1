package billing

import "math"

// PriceQuote is the fully derived pricing of an order. The invariant
// TotalCents == SubtotalCents - DiscountCents + TaxCents always holds.
type PriceQuote struct {
	SubtotalCents int64
	DiscountCents int64
	TaxCents      int64
	TotalCents    int64
}

// DiscountCents computes the discount for a raw subtotal. Returns 0 when no
// discount is given or when it applies to neither the customer's category nor
// GENERAL. PERCENT takes value% of the subtotal; FLAT is capped at the
// subtotal so the taxable amount can never go negative.
func DiscountCents(subtotal int64, d *Discount, cat CustomerCategory) int64 {
	if d == nil {
		return 0
	}
	if d.AppliesTo != CategoryGeneral && d.AppliesTo != cat {
		return 0
	}
	switch d.Kind {
	case DiscountPercent:
		return roundCents(float64(subtotal) * d.Value / 100)
	case DiscountFlat:
		flat := roundCents(d.Value)
		if flat < 0 {
			return 0
		}
		if flat > subtotal {
			return subtotal
		}
		return flat
	}
	return 0
}

// TaxCents computes tax on the post-discount amount.
func TaxCents(taxable int64, t *Tax) int64 {
	if t == nil {
		return 0
	}
	return roundCents(float64(taxable) * t.RatePercent / 100)
}

// Quote prices an order. The order of operations is fixed: the discount is
// taken on the raw subtotal, tax on subtotal minus discount.
func Quote(subtotal int64, d *Discount, t *Tax, cat CustomerCategory) PriceQuote {
	discount := DiscountCents(subtotal, d, cat)
	tax := TaxCents(subtotal-discount, t)
	return PriceQuote{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TaxCents:      tax,
		TotalCents:    subtotal - discount + tax,
	}
}

func roundCents(x float64) int64 {
	return int64(math.Round(x))
}
