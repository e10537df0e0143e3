package analytics

import (
	"net/http"
	"time"

	"github.com/adityakhanna/vastra-backend/api/responses"
	"github.com/adityakhanna/vastra-backend/api/validators"
	analyticssvc "github.com/adityakhanna/vastra-backend/internal/analytics"
	pkgerrors "github.com/adityakhanna/vastra-backend/pkg/errors"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
)

const (
	defaultReportDays = 30
	maxReportDays     = 365
)

// RevenueByDay serves daily paid revenue for the console dashboard.
func RevenueByDay(reports *analyticssvc.Reports, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reports == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics unavailable"))
			return
		}

		since, err := sinceParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := reports.RevenueByDay(r.Context(), since)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revenue report"))
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// ChannelSplit serves paid revenue broken down by sales channel.
func ChannelSplit(reports *analyticssvc.Reports, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reports == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics unavailable"))
			return
		}

		since, err := sinceParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := reports.ChannelSplit(r.Context(), since)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "channel report"))
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// TopProducts serves the best sellers by units in paid orders.
func TopProducts(reports *analyticssvc.Reports, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reports == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics unavailable"))
			return
		}

		since, err := sinceParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := reports.TopProducts(r.Context(), since, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "top products report"))
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

// ComboAttachment serves the share of orders converting with a combo.
func ComboAttachment(reports *analyticssvc.Reports, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reports == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics unavailable"))
			return
		}

		since, err := sinceParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := reports.ComboAttachment(r.Context(), since)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "combo report"))
			return
		}

		responses.WriteSuccess(w, row)
	}
}

func sinceParam(r *http.Request) (time.Time, error) {
	days, err := validators.ParseQueryInt(r, "days", defaultReportDays, 1, maxReportDays)
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().UTC().AddDate(0, 0, -days), nil
}
