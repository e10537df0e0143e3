package cart

import (
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
)

// Totals summarizes the priced lines of a cart. Lines flagged unavailable by
// the sanitizer stay in the cart but never contribute here.
type Totals struct {
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Savings    decimal.Decimal `json:"savings"`
}

// ComputeTotals derives item count, subtotal and savings from the line
// snapshots. Combo savings are added on top when a combo snapshot is present;
// the subtotal itself stays per-piece, checkout applies the combo price.
func ComputeTotals(record *models.CartRecord) Totals {
	totals := Totals{
		Subtotal: decimal.Zero,
		Savings:  decimal.Zero,
	}
	for i := range record.Items {
		item := &record.Items[i]
		if record.UnavailableItems.Contains(item.ProductID, item.Size) {
			continue
		}
		totals.TotalItems += item.Quantity
		totals.Subtotal = totals.Subtotal.Add(item.LineTotal)

		perPiece := item.OriginalDisplayPrice.Sub(item.DisplayPrice)
		if perPiece.IsPositive() {
			qty := decimal.NewFromInt(int64(item.Quantity))
			totals.Savings = totals.Savings.Add(perPiece.Mul(qty))
		}
	}
	if record.AppliedCombo != nil && record.AppliedCombo.Savings.IsPositive() {
		totals.Savings = totals.Savings.Add(record.AppliedCombo.Savings)
	}
	return totals
}
