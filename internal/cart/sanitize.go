package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/pricing"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

const sanitizeLockTTL = 10 * time.Second

// Sanitize revalidates every line against the live catalog and partitions the
// cart into purchasable lines and unavailable flags. Flagged lines stay in
// the cart, excluded from totals, so a re-run reports the same partition and
// the flags hold until the customer removes the line. The unavailable set is
// fully replaced on every run. A concurrent run for the same session is
// skipped; the caller gets the cart as-is.
func (s *service) Sanitize(ctx context.Context, sessionID string) (*CartDTO, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}

	lockScope := "sanitize:" + sessionID
	acquired, err := s.locker.AcquireLock(ctx, lockScope, sanitizeLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire sanitize lock")
	}
	if !acquired {
		return s.Get(ctx, sessionID, enums.SalesChannelRetail)
	}
	defer func() {
		_ = s.locker.ReleaseLock(context.WithoutCancel(ctx), lockScope)
	}()

	var (
		saved       *models.CartRecord
		itemCount   int
		flagCount   int
		missingCart bool
	)
	// Lines are read and rewritten in the same transaction so a mutation
	// committed just before the rewrite is still in the snapshot.
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		record, err := txRepo.FindActiveBySession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				missingCart = true
				return nil
			}
			return err
		}

		products, err := s.loadProductsForCart(ctx, record)
		if err != nil {
			return err
		}

		items, unavailable := partition(record.Items, products, s.deriver)
		itemCount = len(items)
		flagCount = len(unavailable)

		if err := txRepo.ReplaceItems(ctx, record.ID, items); err != nil {
			return err
		}

		now := s.now()
		record.UnavailableItems = unavailable
		record.SanitizedAt = &now
		if _, err := txRepo.Save(ctx, record); err != nil {
			return err
		}

		saved, err = s.refreshCombo(ctx, txRepo, record.SessionID)
		return err
	}); err != nil {
		return nil, wrapCartErr(err, "sanitize cart")
	}

	if missingCart {
		return emptyCart(sessionID, enums.SalesChannelRetail), nil
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"session_id":  sessionID,
			"kept":        itemCount - flagCount,
			"unavailable": flagCount,
		})
		s.logg.Info(logCtx, "cart sanitized")
	}

	return toDTO(saved), nil
}

func (s *service) loadProductsForCart(ctx context.Context, record *models.CartRecord) (map[uuid.UUID]*models.Product, error) {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(record.Items))
	for i := range record.Items {
		id := record.Items[i].ProductID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	rows, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}

	products := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		products[rows[i].ID] = &rows[i]
	}
	return products, nil
}

// partition re-snapshots every purchasable line and records a flag for each
// line that is not. Flagged lines keep their last snapshot and stay in the
// returned item set, so running the partition again over its own output
// reproduces the same flags. Short stock clamps with a warning instead of
// flagging the line.
func partition(items []models.CartItem, products map[uuid.UUID]*models.Product, deriver *pricing.Deriver) ([]models.CartItem, types.UnavailableItems) {
	kept := make([]models.CartItem, 0, len(items))
	unavailable := types.UnavailableItems{}

	for i := range items {
		item := items[i]

		product, ok := products[item.ProductID]
		if !ok || !product.IsActive {
			unavailable = append(unavailable, types.UnavailableItem{
				ProductID: item.ProductID,
				Size:      item.Size,
				Reason:    enums.UnavailableReasonProductNotFound,
				Message:   fmt.Sprintf("%s is no longer available", item.Title),
			})
			kept = append(kept, item)
			continue
		}

		available := product.StockBySize.Available(item.Size)
		if available <= 0 {
			unavailable = append(unavailable, types.UnavailableItem{
				ProductID: item.ProductID,
				Size:      item.Size,
				Reason:    enums.UnavailableReasonSizeOutOfStock,
				Message:   fmt.Sprintf("%s is out of stock in size %s", product.Title, item.Size),
			})
			kept = append(kept, item)
			continue
		}

		var warnings types.CartItemWarnings
		quantity := item.Quantity
		if quantity > available {
			quantity = available
			warnings = append(warnings, types.CartItemWarning{
				Type:    enums.CartItemWarningTypeClampedToStock,
				Message: fmt.Sprintf("only %d left in size %s", available, item.Size),
			})
		}

		breakdown := deriver.Derive(product.EffectiveBasePrice(), product.DiscountType, product.DiscountValue)
		if !breakdown.DisplayPrice.Equal(item.DisplayPrice) {
			warnings = append(warnings, types.CartItemWarning{
				Type:    enums.CartItemWarningTypePriceChanged,
				Message: fmt.Sprintf("price updated from %s to %s", item.DisplayPrice.String(), breakdown.DisplayPrice.String()),
			})
		}

		var image *string
		if len(product.Images) > 0 {
			image = &product.Images[0]
		}

		kept = append(kept, models.CartItem{
			CartID:               item.CartID,
			ProductID:            product.ID,
			Size:                 item.Size,
			Quantity:             quantity,
			Title:                product.Title,
			BasePrice:            breakdown.BasePrice,
			DiscountType:         product.DiscountType,
			DiscountValue:        product.DiscountValue,
			DisplayPrice:         breakdown.DisplayPrice,
			OriginalDisplayPrice: breakdown.OriginalDisplayPrice,
			LineTotal:            breakdown.LineTotal(quantity),
			FeaturedImage:        image,
			Warnings:             warnings,
		})
	}

	return kept, unavailable
}
