package controllers

import (
	"net/http"

	"github.com/dfmorales/facturas-backend/api/middleware"
	"github.com/dfmorales/facturas-backend/api/responses"
	"github.com/dfmorales/facturas-backend/api/validators"
	reportsvc "github.com/dfmorales/facturas-backend/internal/reports"
	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
	"github.com/dfmorales/facturas-backend/pkg/logger"
	"github.com/google/uuid"
)

// ReportsDashboard serves the landing-page aggregates. Every number comes
// from the same filtered invoice set.
func ReportsDashboard(svc reportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		filters, err := reportFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dashboard, err := svc.Dashboard(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dashboard)
	}
}

func ReportsSummary(svc reportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}

		filters, err := reportFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

func reportFilters(r *http.Request) (reportsvc.Filters, error) {
	requesterID := middleware.RequesterUUIDFromContext(r.Context())
	if requesterID == uuid.Nil {
		return reportsvc.Filters{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}

	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return reportsvc.Filters{}, err
	}
	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return reportsvc.Filters{}, err
	}

	return reportsvc.Filters{
		RequesterID: requesterID,
		Roles:       middleware.RoleSetFromContext(r.Context()),
		Provider:    validators.ParseQueryString(r, "provider"),
		From:        from,
		To:          to,
	}, nil
}
