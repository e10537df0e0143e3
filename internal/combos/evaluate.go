package combos

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// Unit is a single purchasable piece in the cart; a line with quantity 3
// expands to three units.
type Unit struct {
	ProductID uuid.UUID
	Size      string
	Price     decimal.Decimal
}

// ExpandUnits flattens cart lines into per-piece units.
func ExpandUnits(lines []LineInput) []Unit {
	var units []Unit
	for _, line := range lines {
		for i := 0; i < line.Quantity; i++ {
			units = append(units, Unit{
				ProductID: line.ProductID,
				Size:      line.Size,
				Price:     line.DisplayPrice,
			})
		}
	}
	return units
}

// LineInput is a cart line as the evaluator sees it.
type LineInput struct {
	ProductID    uuid.UUID
	Size         string
	Quantity     int
	DisplayPrice decimal.Decimal
}

// BestCombo picks the live offer that leaves the customer with the lowest
// total. An offer covers its MinQuantity most expensive units at the fixed
// ComboPrice; the rest of the cart is charged normally. An offer only
// qualifies when it is strictly cheaper than paying per piece. Returns nil
// when no offer qualifies.
func BestCombo(offers []models.ComboOffer, units []Unit, now time.Time) *types.AppliedCombo {
	if len(offers) == 0 || len(units) == 0 {
		return nil
	}

	sorted := make([]Unit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Price.GreaterThan(sorted[j].Price)
	})

	prefix := make([]decimal.Decimal, len(sorted)+1)
	prefix[0] = decimal.Zero
	for i, unit := range sorted {
		prefix[i+1] = prefix[i].Add(unit.Price)
	}

	var best *types.AppliedCombo
	for _, offer := range offers {
		if !offer.ActiveAt(now) {
			continue
		}
		if offer.MinQuantity <= 0 || offer.MinQuantity > len(sorted) {
			continue
		}

		coveredOriginal := prefix[offer.MinQuantity]
		savings := coveredOriginal.Sub(offer.ComboPrice)
		if !savings.IsPositive() {
			continue
		}

		if best == nil || savings.GreaterThan(best.Savings) {
			best = &types.AppliedCombo{
				ComboID:       offer.ID,
				Name:          offer.Name,
				ComboPrice:    offer.ComboPrice,
				OriginalPrice: coveredOriginal,
				Savings:       savings,
				ItemCount:     offer.MinQuantity,
				CapturedAt:    now,
			}
		}
	}
	return best
}
