package coupons

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/api/middleware"
	"github.com/adityakhanna/vastra-backend/api/responses"
	"github.com/adityakhanna/vastra-backend/api/validators"
	cartsvc "github.com/adityakhanna/vastra-backend/internal/cart"
	couponsvc "github.com/adityakhanna/vastra-backend/internal/coupons"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
)

type applyCouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type upsertCouponRequest struct {
	Code        string           `json:"code" validate:"required,max=64"`
	Type        string           `json:"type" validate:"required,oneof=percentage flat"`
	Value       decimal.Decimal  `json:"value"`
	MinSubtotal decimal.Decimal  `json:"min_subtotal"`
	MaxDiscount *decimal.Decimal `json:"max_discount,omitempty"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	UsageLimit  *int             `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	IsActive    bool             `json:"is_active"`
}

// cartReader loads the active cart so the coupon can be checked against its
// subtotal.
type cartReader interface {
	Get(ctx context.Context, sessionID string, channel enums.SalesChannel) (*cartsvc.CartDTO, error)
}

// Apply validates a code against the session's cart and pins it.
func Apply(svc couponsvc.Service, carts cartReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())

		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subtotal, err := sessionSubtotal(r, carts, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applied, err := svc.Apply(r.Context(), sessionID, payload.Code, subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, applied)
	}
}

// Remove clears the coupon pinned to the session.
func Remove(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		if err := svc.Remove(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// GetApplied returns the coupon currently pinned to the session, if any.
func GetApplied(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		applied, err := svc.GetApplied(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, applied)
	}
}

// AdminList serves every coupon for the merchandising console.
func AdminList(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		coupons, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, coupons)
	}
}

// AdminCreate creates a coupon.
func AdminCreate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		var payload upsertCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := toUpsertInput(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}

// AdminUpdate replaces a coupon definition.
func AdminUpdate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		couponID, err := pathUUID(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload upsertCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := toUpsertInput(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Update(r.Context(), couponID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, coupon)
	}
}

// AdminDelete removes a coupon.
func AdminDelete(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		couponID, err := pathUUID(r, "couponId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), couponID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// sessionSubtotal loads the active cart and nets combo savings off the
// subtotal, matching what checkout validates against.
func sessionSubtotal(r *http.Request, carts cartReader, sessionID string) (decimal.Decimal, error) {
	channel := enums.SalesChannelRetail
	if raw := middleware.ChannelFromContext(r.Context()); raw != "" {
		parsed, err := enums.ParseSalesChannel(raw)
		if err == nil {
			channel = parsed
		}
	}

	cart, err := carts.Get(r.Context(), sessionID, channel)
	if err != nil {
		return decimal.Zero, err
	}

	subtotal := cart.Totals.Subtotal
	if cart.AppliedCombo != nil {
		subtotal = subtotal.Sub(cart.AppliedCombo.Savings)
	}
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	return subtotal, nil
}

func toUpsertInput(payload upsertCouponRequest) (couponsvc.UpsertCouponInput, error) {
	couponType, err := enums.ParseCouponType(payload.Type)
	if err != nil {
		return couponsvc.UpsertCouponInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon type")
	}
	return couponsvc.UpsertCouponInput{
		Code:        payload.Code,
		Type:        couponType,
		Value:       payload.Value,
		MinSubtotal: payload.MinSubtotal,
		MaxDiscount: payload.MaxDiscount,
		ExpiresAt:   payload.ExpiresAt,
		UsageLimit:  payload.UsageLimit,
		IsActive:    payload.IsActive,
	}, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}
