package checkout

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adityakhanna/vastra-backend/api/middleware"
	"github.com/adityakhanna/vastra-backend/api/responses"
	"github.com/adityakhanna/vastra-backend/api/validators"
	checkoutsvc "github.com/adityakhanna/vastra-backend/internal/checkout"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
	"github.com/adityakhanna/vastra-backend/pkg/outbox"
	"github.com/adityakhanna/vastra-backend/pkg/types"
)

type createOrderRequest struct {
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
}

type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required,max=128"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required,max=128"`
	Signature        string `json:"signature" validate:"required,max=256"`
}

// CreateOrder converts the session's cart into a pending order.
func CreateOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := payload.ShippingAddress.Validate(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address"))
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		customerID := customerIDFromContext(r)

		order, err := svc.CreateOrder(r.Context(), checkoutsvc.CreateOrderInput{
			SessionID:       sessionID,
			CustomerID:      customerID,
			ShippingAddress: payload.ShippingAddress,
			Actor:           actorFromContext(r, sessionID, customerID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// CreateGatewayOrder opens (or reuses) the payment gateway handle for an order.
func CreateGatewayOrder(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := middleware.SessionIDFromContext(r.Context())
		gatewayOrder, err := svc.CreateGatewayOrder(r.Context(), sessionID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, gatewayOrder)
	}
}

// VerifyPayment checks the gateway callback signature and marks the order paid.
func VerifyPayment(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.VerifyPayment(r.Context(), checkoutsvc.VerifyPaymentInput{
			SessionID:        middleware.SessionIDFromContext(r.Context()),
			OrderID:          orderID,
			GatewayOrderID:   payload.GatewayOrderID,
			GatewayPaymentID: payload.GatewayPaymentID,
			Signature:        payload.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func customerIDFromContext(r *http.Request) *uuid.UUID {
	raw := middleware.CustomerIDFromContext(r.Context())
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func actorFromContext(r *http.Request, sessionID string, customerID *uuid.UUID) *outbox.ActorRef {
	role := middleware.RoleFromContext(r.Context())
	if role == "" {
		role = string(enums.ActorRoleCustomer)
	}
	return &outbox.ActorRef{
		CustomerID: customerID,
		SessionID:  sessionID,
		Role:       role,
	}
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}
