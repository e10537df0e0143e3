package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adityakhanna/vastra-backend/api/middleware"
	"github.com/adityakhanna/vastra-backend/api/responses"
	"github.com/adityakhanna/vastra-backend/api/validators"
	cartsvc "github.com/adityakhanna/vastra-backend/internal/cart"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size" validate:"required,max=20"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type updateItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size" validate:"required,max=20"`
	Quantity  int       `json:"quantity" validate:"min=0"`
}

// couponReleaser drops the session's applied coupon once the cart empties. A
// coupon has nothing to discount against an empty cart.
type couponReleaser interface {
	Remove(ctx context.Context, sessionID string) error
}

func releaseCouponIfEmpty(ctx context.Context, coupons couponReleaser, logg *logger.Logger, sessionID string, cart *cartsvc.CartDTO) {
	if coupons == nil || cart == nil || len(cart.Items) > 0 {
		return
	}
	if err := coupons.Remove(ctx, sessionID); err != nil && logg != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "failed to release coupon for empty cart")
	}
}

// Fetch serves the session's active cart with derived totals.
func Fetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		sessionID, channel := sessionAndChannel(r)
		cart, err := svc.Get(r.Context(), sessionID, channel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cart)
	}
}

// AddItem adds pieces of one (product, size) to the cart.
func AddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, channel := sessionAndChannel(r)
		cart, err := svc.AddItem(r.Context(), sessionID, channel, cartsvc.AddItemInput{
			ProductID: payload.ProductID,
			Size:      payload.Size,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cart)
	}
}

// UpdateItem sets the quantity of one line; zero removes it.
func UpdateItem(svc cartsvc.Service, coupons couponReleaser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, _ := sessionAndChannel(r)
		cart, err := svc.UpdateQuantity(r.Context(), sessionID, payload.ProductID, payload.Size, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		releaseCouponIfEmpty(r.Context(), coupons, logg, sessionID, cart)
		responses.WriteSuccess(w, cart)
	}
}

// RemoveItem drops one line from the cart.
func RemoveItem(svc cartsvc.Service, coupons couponReleaser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		size := strings.TrimSpace(r.URL.Query().Get("size"))
		if size == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "size query parameter required"))
			return
		}

		sessionID, _ := sessionAndChannel(r)
		cart, err := svc.RemoveItem(r.Context(), sessionID, productID, size)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		releaseCouponIfEmpty(r.Context(), coupons, logg, sessionID, cart)
		responses.WriteSuccess(w, cart)
	}
}

// Clear empties the cart.
func Clear(svc cartsvc.Service, coupons couponReleaser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		sessionID, _ := sessionAndChannel(r)
		cart, err := svc.Clear(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		releaseCouponIfEmpty(r.Context(), coupons, logg, sessionID, cart)
		responses.WriteSuccess(w, cart)
	}
}

// Sanitize revalidates every line against the live catalog.
func Sanitize(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		sessionID, _ := sessionAndChannel(r)
		cart, err := svc.Sanitize(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cart)
	}
}

func sessionAndChannel(r *http.Request) (string, enums.SalesChannel) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	channel := enums.SalesChannelRetail
	if raw := middleware.ChannelFromContext(r.Context()); raw != "" {
		if parsed, err := enums.ParseSalesChannel(raw); err == nil {
			channel = parsed
		}
	}
	return sessionID, channel
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}
