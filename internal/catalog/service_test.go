package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/pricing"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

type stubProductRepo struct {
	products map[uuid.UUID]*models.Product
	bySlug   map[string]uuid.UUID
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{
		products: map[uuid.UUID]*models.Product{},
		bySlug:   map[string]uuid.UUID{},
	}
}

func (s *stubProductRepo) Create(_ context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	copied := *product
	s.products[copied.ID] = &copied
	s.bySlug[copied.Slug] = copied.ID
	return &copied, nil
}

func (s *stubProductRepo) Update(_ context.Context, product *models.Product) (*models.Product, error) {
	copied := *product
	s.products[copied.ID] = &copied
	s.bySlug[copied.Slug] = copied.ID
	return &copied, nil
}

func (s *stubProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.products, id)
	return nil
}

func (s *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

func (s *stubProductRepo) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	id, ok := s.bySlug[slug]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	product := s.products[id]
	if product == nil || !product.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

func (s *stubProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			rows = append(rows, *product)
		}
	}
	return rows, nil
}

func (s *stubProductRepo) List(_ context.Context, input ListProductsInput) ([]models.Product, error) {
	var rows []models.Product
	for _, product := range s.products {
		if !product.IsActive {
			continue
		}
		if input.Channel.IsValid() && product.Channel != input.Channel {
			continue
		}
		rows = append(rows, *product)
	}
	return rows, nil
}

func (s *stubProductRepo) DecrementStockTx(_ *gorm.DB, productID uuid.UUID, size string, quantity int) (bool, error) {
	product, ok := s.products[productID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if product.StockBySize.Available(size) < quantity {
		return false, nil
	}
	product.StockBySize[size] -= quantity
	product.InStock = product.StockBySize.AnyInStock()
	return true, nil
}

func (s *stubProductRepo) WithTx(*gorm.DB) ProductRepository { return s }

func newTestService(t *testing.T) (Service, *stubProductRepo) {
	t.Helper()
	repo := newStubProductRepo()
	svc, err := NewService(repo, pricing.NewDeriver(decimal.NewFromInt(79)))
	require.NoError(t, err)
	return svc, repo
}

func validCreateInput() CreateProductInput {
	return CreateProductInput{
		Title:         "Linen Kurta",
		Slug:          "Linen-Kurta",
		Category:      "kurtas",
		Channel:       enums.SalesChannelRetail,
		BasePrice:     decimal.NewFromInt(100),
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		StockBySize:   types.SizeStock{"M": 5, "L": 0},
		IsActive:      true,
	}
}

func TestCreateProductDerivesPricingAndStock(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	dto, err := svc.CreateProduct(context.Background(), validCreateInput())
	require.NoError(t, err)

	assert.Equal(t, "linen-kurta", dto.Slug)
	assert.True(t, dto.InStock)
	assert.Equal(t, "179", dto.OriginalDisplayPrice.String())
	assert.Equal(t, "161.1", dto.DisplayPrice.String())
	assert.True(t, dto.HasDiscount)
}

func TestCreateProductRejectsBadDiscount(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	input := validCreateInput()
	input.DiscountValue = decimal.NewFromInt(120)

	_, err := svc.CreateProduct(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateProductRejectsNegativeStock(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	input := validCreateInput()
	input.StockBySize = types.SizeStock{"M": -1}

	_, err := svc.CreateProduct(context.Background(), input)
	assert.Error(t, err)
}

func TestGetProductBySlugHidesInactive(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	dto, err := svc.CreateProduct(context.Background(), validCreateInput())
	require.NoError(t, err)

	found, err := svc.GetProductBySlug(context.Background(), "linen-kurta")
	require.NoError(t, err)
	assert.Equal(t, dto.ID, found.ID)

	repo.products[dto.ID].IsActive = false
	_, err = svc.GetProductBySlug(context.Background(), "linen-kurta")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSetStockKeepsCacheConsistent(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	created, err := svc.CreateProduct(context.Background(), validCreateInput())
	require.NoError(t, err)

	updated, err := svc.SetStock(context.Background(), created.ID, types.SizeStock{"M": 0, "L": 0})
	require.NoError(t, err)
	assert.False(t, updated.InStock)

	updated, err = svc.SetStock(context.Background(), created.ID, types.SizeStock{"XL": 2})
	require.NoError(t, err)
	assert.True(t, updated.InStock)

	_, err = svc.SetStock(context.Background(), created.ID, types.SizeStock{"M": -3})
	assert.Error(t, err)
}

func TestUpdateProductRevalidatesDiscount(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	created, err := svc.CreateProduct(context.Background(), validCreateInput())
	require.NoError(t, err)

	flat := enums.DiscountTypeFlat
	tooBig := decimal.NewFromInt(500)
	updated, err := svc.UpdateProduct(context.Background(), created.ID, UpdateProductInput{
		DiscountType:  &flat,
		DiscountValue: &tooBig,
	})
	require.NoError(t, err)
	// Flat discounts larger than the buffered price floor the display at zero.
	assert.Equal(t, "0", updated.DisplayPrice.String())

	pct := enums.DiscountTypePercentage
	_, err = svc.UpdateProduct(context.Background(), created.ID, UpdateProductInput{
		DiscountType: &pct,
	})
	assert.Error(t, err)
}

func TestDeleteProductNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	err := svc.DeleteProduct(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
