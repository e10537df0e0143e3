package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adityakhanna/vastra-backend/pkg/db/models"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

// Service validates and applies coupon codes, and manages them for admins.
type Service interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*ValidationResult, error)
	Apply(ctx context.Context, sessionID, code string, subtotal decimal.Decimal) (*types.AppliedCoupon, error)
	Remove(ctx context.Context, sessionID string) error
	GetApplied(ctx context.Context, sessionID string) (*types.AppliedCoupon, error)

	Create(ctx context.Context, input UpsertCouponInput) (*models.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, input UpsertCouponInput) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.Coupon, error)
}

// ValidationResult pairs the matched coupon with the discount it would grant
// against the given subtotal.
type ValidationResult struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

// UpsertCouponInput holds the validated payload to create or replace a coupon.
type UpsertCouponInput struct {
	Code        string
	Type        enums.CouponType
	Value       decimal.Decimal
	MinSubtotal decimal.Decimal
	MaxDiscount *decimal.Decimal
	ExpiresAt   *time.Time
	UsageLimit  *int
	IsActive    bool
}

type service struct {
	repo    CouponRepository
	applied AppliedCouponStore
	now     func() time.Time
}

// NewService constructs a coupon service instance.
func NewService(repo CouponRepository, applied AppliedCouponStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if applied == nil {
		return nil, fmt.Errorf("applied coupon store required")
	}
	return &service{repo: repo, applied: applied, now: time.Now}, nil
}

// Validate checks the code against the subtotal without recording anything.
func (s *service) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*ValidationResult, error) {
	if NormalizeCode(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if subtotal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal cannot be negative")
	}

	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if !coupon.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon is no longer active")
	}
	if coupon.ExpiresAt != nil && s.now().After(*coupon.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon has expired")
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
	}
	if subtotal.LessThan(coupon.MinSubtotal) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order subtotal must be at least %s", coupon.MinSubtotal.String())).
			WithDetails(map[string]string{"min_subtotal": coupon.MinSubtotal.String()})
	}

	return &ValidationResult{
		Coupon:   coupon,
		Discount: DiscountFor(coupon, subtotal),
	}, nil
}

// Apply validates the code and pins it to the session.
func (s *service) Apply(ctx context.Context, sessionID, code string, subtotal decimal.Decimal) (*types.AppliedCoupon, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	result, err := s.Validate(ctx, code, subtotal)
	if err != nil {
		return nil, err
	}

	applied := types.AppliedCoupon{
		Code:     result.Coupon.Code,
		Discount: result.Discount,
	}
	if err := s.applied.Save(ctx, sessionID, applied); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save applied coupon")
	}
	return &applied, nil
}

// Remove forgets the session's applied coupon. Idempotent.
func (s *service) Remove(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := s.applied.Clear(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear applied coupon")
	}
	return nil
}

// GetApplied returns the session's pinned coupon, or nil.
func (s *service) GetApplied(ctx context.Context, sessionID string) (*types.AppliedCoupon, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	applied, err := s.applied.Get(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load applied coupon")
	}
	return applied, nil
}

func (s *service) Create(ctx context.Context, input UpsertCouponInput) (*models.Coupon, error) {
	if err := validateCoupon(input); err != nil {
		return nil, err
	}

	coupon := couponFromInput(&models.Coupon{}, input)
	created, err := s.repo.Create(ctx, coupon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpsertCouponInput) (*models.Coupon, error) {
	if err := validateCoupon(input); err != nil {
		return nil, err
	}

	coupon, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, couponFromInput(coupon, input))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
	}
	return nil
}

func (s *service) List(ctx context.Context) ([]models.Coupon, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	return rows, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return coupon, nil
}

// DiscountFor computes the discount a coupon grants on a subtotal. The result
// never exceeds the subtotal, and percentage coupons honor MaxDiscount.
func DiscountFor(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Type {
	case enums.CouponTypePercentage:
		discount = subtotal.Mul(coupon.Value).Div(decimal.NewFromInt(100)).Round(2)
		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
	case enums.CouponTypeFlat:
		discount = coupon.Value
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount
}

func couponFromInput(coupon *models.Coupon, input UpsertCouponInput) *models.Coupon {
	coupon.Code = NormalizeCode(input.Code)
	coupon.Type = input.Type
	coupon.Value = input.Value
	coupon.MinSubtotal = input.MinSubtotal
	coupon.MaxDiscount = input.MaxDiscount
	coupon.ExpiresAt = input.ExpiresAt
	coupon.UsageLimit = input.UsageLimit
	coupon.IsActive = input.IsActive
	return coupon
}

func validateCoupon(input UpsertCouponInput) error {
	if NormalizeCode(input.Code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon type")
	}
	if input.Value.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "value cannot be negative")
	}
	if input.Type == enums.CouponTypePercentage && input.Value.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage value must be within [0,100]")
	}
	if input.MinSubtotal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "min subtotal cannot be negative")
	}
	if input.MaxDiscount != nil && input.MaxDiscount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "max discount cannot be negative")
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
	}
	return nil
}
