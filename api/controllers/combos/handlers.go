package combos

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adityakhanna/vastra-backend/api/responses"
	"github.com/adityakhanna/vastra-backend/api/validators"
	combosvc "github.com/adityakhanna/vastra-backend/internal/combos"
	"github.com/adityakhanna/vastra-backend/pkg/enums"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
)

type upsertComboRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	MinQuantity int             `json:"min_quantity" validate:"required,min=2"`
	ComboPrice  decimal.Decimal `json:"combo_price"`
	Channel     string          `json:"channel" validate:"required,oneof=retail wholesale"`
	StartsAt    *time.Time      `json:"starts_at,omitempty"`
	EndsAt      *time.Time      `json:"ends_at,omitempty"`
	IsActive    bool            `json:"is_active"`
}

func toUpsertInput(payload upsertComboRequest) (combosvc.UpsertComboInput, error) {
	channel, err := enums.ParseSalesChannel(payload.Channel)
	if err != nil {
		return combosvc.UpsertComboInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel")
	}
	return combosvc.UpsertComboInput{
		Name:        payload.Name,
		MinQuantity: payload.MinQuantity,
		ComboPrice:  payload.ComboPrice,
		Channel:     channel,
		StartsAt:    payload.StartsAt,
		EndsAt:      payload.EndsAt,
		IsActive:    payload.IsActive,
	}, nil
}

// AdminList serves every combo offer for the merchandising console.
func AdminList(svc combosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "combos service unavailable"))
			return
		}

		offers, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, offers)
	}
}

// AdminCreate creates a combo offer.
func AdminCreate(svc combosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "combos service unavailable"))
			return
		}

		var payload upsertComboRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := toUpsertInput(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

// AdminUpdate replaces a combo offer.
func AdminUpdate(svc combosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "combos service unavailable"))
			return
		}

		comboID, err := pathUUID(r, "comboId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload upsertComboRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := toUpsertInput(payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.Update(r.Context(), comboID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, offer)
	}
}

// AdminDelete removes a combo offer.
func AdminDelete(svc combosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "combos service unavailable"))
			return
		}

		comboID, err := pathUUID(r, "comboId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), comboID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
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
