package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/internal/combos"
	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
	"github.com/adityakhanna/vastra-backend/pkg/pricing"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type comboEvaluator interface {
	Evaluate(ctx context.Context, channel enums.SalesChannel, lines []combos.LineInput, now time.Time) (*types.AppliedCombo, error)
}

type sessionLocker interface {
	AcquireLock(ctx context.Context, scope string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope string) error
}

// Service exposes the session cart operations.
type Service interface {
	Get(ctx context.Context, sessionID string, channel enums.SalesChannel) (*CartDTO, error)
	AddItem(ctx context.Context, sessionID string, channel enums.SalesChannel, input AddItemInput) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, size string, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID, size string) (*CartDTO, error)
	Clear(ctx context.Context, sessionID string) (*CartDTO, error)
	Sanitize(ctx context.Context, sessionID string) (*CartDTO, error)
}

// AddItemInput is the payload to add pieces of one (product, size) to a cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Size      string
	Quantity  int
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
	deriver  *pricing.Deriver
	combosvc comboEvaluator
	locker   sessionLocker
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader, deriver *pricing.Deriver, combosvc comboEvaluator, locker sessionLocker, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if deriver == nil {
		return nil, fmt.Errorf("pricing deriver required")
	}
	if combosvc == nil {
		return nil, fmt.Errorf("combo evaluator required")
	}
	if locker == nil {
		return nil, fmt.Errorf("session locker required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		deriver:  deriver,
		combosvc: combosvc,
		locker:   locker,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Get returns the session's cart; sessions without one read as an empty cart.
func (s *service) Get(ctx context.Context, sessionID string, channel enums.SalesChannel) (*CartDTO, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}

	record, err := s.repo.FindActiveBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyCart(sessionID, channel), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return toDTO(record), nil
}

// AddItem merges quantity into the (product, size) line, clamping to stock.
func (s *service) AddItem(ctx context.Context, sessionID string, channel enums.SalesChannel, input AddItemInput) (*CartDTO, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	size := strings.TrimSpace(input.Size)
	if size == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !channel.IsValid() {
		channel = enums.SalesChannelRetail
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	available := product.StockBySize.Available(size)
	if available <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "size is out of stock").
			WithDetails(map[string]string{
				"product_id": product.ID.String(),
				"size":       size,
				"reason":     string(enums.UnavailableReasonSizeOutOfStock),
			})
	}

	var saved *models.CartRecord
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		record, err := s.findOrCreateCart(ctx, txRepo, sessionID, channel)
		if err != nil {
			return err
		}

		quantity := input.Quantity
		var existing *models.CartItem
		for i := range record.Items {
			item := &record.Items[i]
			if item.ProductID == input.ProductID && item.Size == size {
				existing = item
				break
			}
		}
		if existing != nil {
			quantity += existing.Quantity
		}

		var warnings types.CartItemWarnings
		if quantity > available {
			quantity = available
			warnings = append(warnings, types.CartItemWarning{
				Type:    enums.CartItemWarningTypeClampedToStock,
				Message: fmt.Sprintf("only %d left in size %s", available, size),
			})
		}

		item := s.snapshotItem(record.ID, product, size, quantity)
		if existing != nil {
			item.ID = existing.ID
			item.CreatedAt = existing.CreatedAt
		}
		item.Warnings = warnings
		if err := txRepo.SaveItem(ctx, &item); err != nil {
			return err
		}

		saved, err = s.refreshCombo(ctx, txRepo, record.SessionID)
		return err
	}); err != nil {
		return nil, wrapCartErr(err, "add cart item")
	}

	return toDTO(saved), nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line; values
// beyond stock are clamped with a warning.
func (s *service) UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, size string, quantity int) (*CartDTO, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	size = strings.TrimSpace(size)
	if productID == uuid.Nil || size == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and size are required")
	}

	if quantity <= 0 {
		return s.RemoveItem(ctx, sessionID, productID, size)
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	available := product.StockBySize.Available(size)
	if available <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "size is out of stock")
	}

	var saved *models.CartRecord
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		record, err := txRepo.FindActiveBySession(ctx, sessionID)
		if err != nil {
			return err
		}

		var existing *models.CartItem
		for i := range record.Items {
			item := &record.Items[i]
			if item.ProductID == productID && item.Size == size {
				existing = item
				break
			}
		}
		if existing == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		var warnings types.CartItemWarnings
		if quantity > available {
			quantity = available
			warnings = append(warnings, types.CartItemWarning{
				Type:    enums.CartItemWarningTypeClampedToStock,
				Message: fmt.Sprintf("only %d left in size %s", available, size),
			})
		}

		item := s.snapshotItem(record.ID, product, size, quantity)
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		item.Warnings = warnings
		if err := txRepo.SaveItem(ctx, &item); err != nil {
			return err
		}

		saved, err = s.refreshCombo(ctx, txRepo, record.SessionID)
		return err
	}); err != nil {
		return nil, wrapCartErr(err, "update cart item")
	}

	return toDTO(saved), nil
}

// RemoveItem drops the line and any matching unavailable flag.
func (s *service) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID, size string) (*CartDTO, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	size = strings.TrimSpace(size)
	if productID == uuid.Nil || size == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and size are required")
	}

	var saved *models.CartRecord
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		record, err := txRepo.FindActiveBySession(ctx, sessionID)
		if err != nil {
			return err
		}

		if err := txRepo.DeleteItem(ctx, record.ID, productID, size); err != nil {
			return err
		}

		if filtered := withoutUnavailable(record.UnavailableItems, productID, size); len(filtered) != len(record.UnavailableItems) {
			record.UnavailableItems = filtered
			if _, err := txRepo.Save(ctx, record); err != nil {
				return err
			}
		}

		saved, err = s.refreshCombo(ctx, txRepo, record.SessionID)
		return err
	}); err != nil {
		return nil, wrapCartErr(err, "remove cart item")
	}

	return toDTO(saved), nil
}

// Clear empties the cart: lines, unavailable flags and combo snapshot.
func (s *service) Clear(ctx context.Context, sessionID string) (*CartDTO, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}

	var saved *models.CartRecord
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		record, err := txRepo.FindActiveBySession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := txRepo.DeleteAllItems(ctx, record.ID); err != nil {
			return err
		}
		record.UnavailableItems = nil
		record.AppliedCombo = nil
		if _, err := txRepo.Save(ctx, record); err != nil {
			return err
		}

		saved, err = txRepo.FindActiveBySession(ctx, record.SessionID)
		return err
	}); err != nil {
		return nil, wrapCartErr(err, "clear cart")
	}

	if saved == nil {
		return emptyCart(sessionID, enums.SalesChannelRetail), nil
	}
	return toDTO(saved), nil
}

func (s *service) findOrCreateCart(ctx context.Context, repo CartRepository, sessionID string, channel enums.SalesChannel) (*models.CartRecord, error) {
	record, err := repo.FindActiveBySession(ctx, sessionID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return repo.Create(ctx, &models.CartRecord{
		SessionID: sessionID,
		Channel:   channel,
		Status:    enums.CartStatusActive,
	})
}

// refreshCombo reloads the cart and recaptures the combo snapshot from the
// current lines.
func (s *service) refreshCombo(ctx context.Context, repo CartRepository, sessionID string) (*models.CartRecord, error) {
	record, err := repo.FindActiveBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	lines := make([]combos.LineInput, 0, len(record.Items))
	for i := range record.Items {
		item := &record.Items[i]
		if record.UnavailableItems.Contains(item.ProductID, item.Size) {
			continue
		}
		lines = append(lines, combos.LineInput{
			ProductID:    item.ProductID,
			Size:         item.Size,
			Quantity:     item.Quantity,
			DisplayPrice: item.DisplayPrice,
		})
	}

	applied, err := s.combosvc.Evaluate(ctx, record.Channel, lines, s.now())
	if err != nil {
		return nil, err
	}

	record.AppliedCombo = applied
	return repo.Save(ctx, record)
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "product is no longer available").
			WithDetails(map[string]string{
				"product_id": product.ID.String(),
				"reason":     string(enums.UnavailableReasonProductNotFound),
			})
	}
	return product, nil
}

func (s *service) snapshotItem(cartID uuid.UUID, product *models.Product, size string, quantity int) models.CartItem {
	breakdown := s.deriver.Derive(product.EffectiveBasePrice(), product.DiscountType, product.DiscountValue)
	var image *string
	if len(product.Images) > 0 {
		image = &product.Images[0]
	}
	return models.CartItem{
		CartID:               cartID,
		ProductID:            product.ID,
		Size:                 size,
		Quantity:             quantity,
		Title:                product.Title,
		BasePrice:            breakdown.BasePrice,
		DiscountType:         product.DiscountType,
		DiscountValue:        product.DiscountValue,
		DisplayPrice:         breakdown.DisplayPrice,
		OriginalDisplayPrice: breakdown.OriginalDisplayPrice,
		LineTotal:            breakdown.LineTotal(quantity),
		FeaturedImage:        image,
	}
}

func withoutUnavailable(items types.UnavailableItems, productID uuid.UUID, size string) types.UnavailableItems {
	if len(items) == 0 {
		return items
	}
	filtered := make(types.UnavailableItems, 0, len(items))
	for _, entry := range items {
		if entry.ProductID == productID && entry.Size == size {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

func emptyCart(sessionID string, channel enums.SalesChannel) *CartDTO {
	if !channel.IsValid() {
		channel = enums.SalesChannelRetail
	}
	return &CartDTO{
		SessionID: sessionID,
		Channel:   channel,
		Status:    enums.CartStatusActive,
		Items:     []CartItemDTO{},
	}
}

func validateSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return nil
}

func wrapCartErr(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
