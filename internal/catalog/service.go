package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/pagination"
	"github.com/adityakhanna/vastra-backend/pkg/pricing"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// Service exposes catalog read paths plus admin product management.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)

	CreateProduct(ctx context.Context, input CreateProductInput) (*AdminProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*AdminProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	SetStock(ctx context.Context, productID uuid.UUID, stock types.SizeStock) (*AdminProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Title         string
	Slug          string
	Description   *string
	Category      string
	Channel       enums.SalesChannel
	BasePrice     decimal.Decimal
	DiscountType  enums.DiscountType
	DiscountValue decimal.Decimal
	StockBySize   types.SizeStock
	Images        []string
	IsActive      bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Title         *string
	Slug          *string
	Description   *string
	Category      *string
	Channel       *enums.SalesChannel
	BasePrice     *decimal.Decimal
	DiscountType  *enums.DiscountType
	DiscountValue *decimal.Decimal
	Images        *[]string
	IsActive      *bool
}

type service struct {
	repo    ProductRepository
	deriver *pricing.Deriver
}

// NewService constructs a catalog service instance.
func NewService(repo ProductRepository, deriver *pricing.Deriver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if deriver == nil {
		return nil, fmt.Errorf("pricing deriver required")
	}
	return &service{repo: repo, deriver: deriver}, nil
}

// GetProduct loads any product by id; used by admin paths.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(product, s.deriver), nil
}

// GetProductBySlug serves the public detail page; inactive products read as
// not found.
func (s *service) GetProductBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}

	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return toDTO(product, s.deriver), nil
}

// ListProducts returns one cursor page of active products.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	rows, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	result := &ProductListResult{Products: make([]ProductDTO, 0, len(rows))}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		result.Products = append(result.Products, *toDTO(&rows[i], s.deriver))
	}
	if hasMore {
		last := rows[len(rows)-1]
		cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		result.NextCursor = &cursor
	}
	return result, nil
}

// CreateProduct creates the product with its stock map and derived stock cache.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*AdminProductDTO, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	stock := input.StockBySize
	if stock == nil {
		stock = types.SizeStock{}
	}

	product := &models.Product{
		Title:         strings.TrimSpace(input.Title),
		Slug:          normalizeSlug(input.Slug),
		Description:   input.Description,
		Category:      strings.TrimSpace(input.Category),
		Channel:       input.Channel,
		BasePrice:     input.BasePrice,
		DiscountType:  input.DiscountType,
		DiscountValue: input.DiscountValue,
		StockBySize:   stock,
		InStock:       stock.AnyInStock(),
		Images:        pq.StringArray(input.Images),
		IsActive:      input.IsActive,
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return toAdminDTO(created, s.deriver), nil
}

// UpdateProduct applies the provided fields and re-derives the stock cache.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*AdminProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		product.Title = strings.TrimSpace(*input.Title)
	}
	if input.Slug != nil {
		product.Slug = normalizeSlug(*input.Slug)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Channel != nil {
		if !input.Channel.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sales channel")
		}
		product.Channel = *input.Channel
	}
	if input.BasePrice != nil {
		if input.BasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
		}
		product.BasePrice = *input.BasePrice
		product.LegacyPrice = nil
	}
	if input.DiscountType != nil {
		if !input.DiscountType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
		}
		product.DiscountType = *input.DiscountType
	}
	if input.DiscountValue != nil {
		product.DiscountValue = *input.DiscountValue
	}
	if err := validateDiscount(product.DiscountType, product.DiscountValue); err != nil {
		return nil, err
	}
	if input.Images != nil {
		product.Images = pq.StringArray(*input.Images)
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if product.Title == "" || product.Slug == "" || product.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title, slug and category are required")
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return toAdminDTO(updated, s.deriver), nil
}

// DeleteProduct removes the product. Carts that still reference it surface the
// removal through the sanitizer on their next pass.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.loadProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// SetStock replaces the stock map wholesale and keeps the cached in_stock
// flag consistent with it.
func (s *service) SetStock(ctx context.Context, productID uuid.UUID, stock types.SizeStock) (*AdminProductDTO, error) {
	if stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock map is required")
	}
	for size, qty := range stock {
		if strings.TrimSpace(size) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock size keys cannot be blank")
		}
		if qty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("stock for size %q cannot be negative", size))
		}
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	product.StockBySize = stock
	product.InStock = stock.AnyInStock()

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
	}
	return toAdminDTO(updated, s.deriver), nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func validateCreate(input CreateProductInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if normalizeSlug(input.Slug) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if !input.Channel.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid sales channel")
	}
	if input.BasePrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
	}
	if !input.DiscountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
	}
	if err := validateDiscount(input.DiscountType, input.DiscountValue); err != nil {
		return err
	}
	for size, qty := range input.StockBySize {
		if strings.TrimSpace(size) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock size keys cannot be blank")
		}
		if qty < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("stock for size %q cannot be negative", size))
		}
	}
	return nil
}

func validateDiscount(discountType enums.DiscountType, value decimal.Decimal) error {
	switch discountType {
	case enums.DiscountTypePercentage:
		if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount must be within [0,100]")
		}
	case enums.DiscountTypeFlat:
		if value.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "flat discount cannot be negative")
		}
	case enums.DiscountTypeNone:
		// value ignored
	}
	return nil
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
