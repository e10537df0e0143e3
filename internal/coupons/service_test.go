package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
)

type stubCouponRepo struct {
	coupons map[string]*models.Coupon
}

func newStubCouponRepo() *stubCouponRepo {
	return &stubCouponRepo{coupons: map[string]*models.Coupon{}}
}

func (s *stubCouponRepo) Create(_ context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	copied := *coupon
	s.coupons[copied.Code] = &copied
	return &copied, nil
}

func (s *stubCouponRepo) Update(_ context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	copied := *coupon
	s.coupons[copied.Code] = &copied
	return &copied, nil
}

func (s *stubCouponRepo) Delete(_ context.Context, id uuid.UUID) error {
	for code, coupon := range s.coupons {
		if coupon.ID == id {
			delete(s.coupons, code)
		}
	}
	return nil
}

func (s *stubCouponRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	for _, coupon := range s.coupons {
		if coupon.ID == id {
			copied := *coupon
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCouponRepo) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	coupon, ok := s.coupons[NormalizeCode(code)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *coupon
	return &copied, nil
}

func (s *stubCouponRepo) ListAll(_ context.Context) ([]models.Coupon, error) {
	var rows []models.Coupon
	for _, coupon := range s.coupons {
		rows = append(rows, *coupon)
	}
	return rows, nil
}

func (s *stubCouponRepo) ConsumeTx(_ *gorm.DB, code string) (bool, error) {
	coupon, ok := s.coupons[NormalizeCode(code)]
	if !ok || !coupon.IsActive {
		return false, nil
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return false, nil
	}
	coupon.UsedCount++
	return true, nil
}

func newCouponService(t *testing.T) (Service, *stubCouponRepo) {
	t.Helper()
	repo := newStubCouponRepo()
	svc, err := NewService(repo, NewMemoryAppliedStore())
	require.NoError(t, err)
	return svc, repo
}

func seedCoupon(t *testing.T, svc Service, input UpsertCouponInput) *models.Coupon {
	t.Helper()
	coupon, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	return coupon
}

func TestValidatePercentageCouponWithCap(t *testing.T) {
	t.Parallel()

	svc, _ := newCouponService(t)
	cap := decimal.NewFromInt(100)
	seedCoupon(t, svc, UpsertCouponInput{
		Code: "festive10", Type: enums.CouponTypePercentage,
		Value: decimal.NewFromInt(10), MaxDiscount: &cap, IsActive: true,
	})

	result, err := svc.Validate(context.Background(), "FESTIVE10", decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.Equal(t, "50", result.Discount.String())

	result, err = svc.Validate(context.Background(), "festive10", decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.Equal(t, "100", result.Discount.String(), "discount capped at max_discount")
}

func TestValidateFlatCouponClampedToSubtotal(t *testing.T) {
	t.Parallel()

	svc, _ := newCouponService(t)
	seedCoupon(t, svc, UpsertCouponInput{
		Code: "FLAT200", Type: enums.CouponTypeFlat,
		Value: decimal.NewFromInt(200), IsActive: true,
	})

	result, err := svc.Validate(context.Background(), "FLAT200", decimal.NewFromInt(150))
	require.NoError(t, err)
	assert.Equal(t, "150", result.Discount.String())
}

func TestValidateRejectsExpiredInactiveAndExhausted(t *testing.T) {
	t.Parallel()

	svc, repo := newCouponService(t)
	past := time.Now().Add(-time.Hour)
	seedCoupon(t, svc, UpsertCouponInput{
		Code: "EXPIRED", Type: enums.CouponTypeFlat,
		Value: decimal.NewFromInt(50), ExpiresAt: &past, IsActive: true,
	})
	seedCoupon(t, svc, UpsertCouponInput{
		Code: "INACTIVE", Type: enums.CouponTypeFlat,
		Value: decimal.NewFromInt(50), IsActive: false,
	})
	limit := 1
	seedCoupon(t, svc, UpsertCouponInput{
		Code: "EXHAUSTED", Type: enums.CouponTypeFlat,
		Value: decimal.NewFromInt(50), UsageLimit: &limit, IsActive: true,
	})
	repo.coupons["EXHAUSTED"].UsedCount = 1

	for _, code := range []string{"EXPIRED", "INACTIVE", "EXHAUSTED"} {
		_, err := svc.Validate(context.Background(), code, decimal.NewFromInt(500))
		require.Error(t, err, code)
		assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code(), code)
	}

	_, err := svc.Validate(context.Background(), "MISSING", decimal.NewFromInt(500))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestValidateEnforcesMinSubtotal(t *testing.T) {
	t.Parallel()

	svc, _ := newCouponService(t)
	seedCoupon(t, svc, UpsertCouponInput{
		Code: "BIG", Type: enums.CouponTypeFlat,
		Value: decimal.NewFromInt(100), MinSubtotal: decimal.NewFromInt(999), IsActive: true,
	})

	_, err := svc.Validate(context.Background(), "BIG", decimal.NewFromInt(500))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Validate(context.Background(), "BIG", decimal.NewFromInt(999))
	assert.NoError(t, err)
}

func TestApplyAndRemoveRoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newCouponService(t)
	seedCoupon(t, svc, UpsertCouponInput{
		Code: "WELCOME", Type: enums.CouponTypeFlat,
		Value: decimal.NewFromInt(75), IsActive: true,
	})

	applied, err := svc.Apply(context.Background(), "sess-1", "welcome", decimal.NewFromInt(400))
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", applied.Code)
	assert.Equal(t, "75", applied.Discount.String())

	stored, err := svc.GetApplied(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "WELCOME", stored.Code)

	require.NoError(t, svc.Remove(context.Background(), "sess-1"))
	stored, err = svc.GetApplied(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestCreateCouponValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newCouponService(t)
	_, err := svc.Create(context.Background(), UpsertCouponInput{
		Code: "PCT", Type: enums.CouponTypePercentage, Value: decimal.NewFromInt(150),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
