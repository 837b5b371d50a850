package controllers

import (
	"net/http"

	"github.com/dfmorales/facturas-backend/api/responses"
	"github.com/dfmorales/facturas-backend/api/validators"
	rolesvc "github.com/dfmorales/facturas-backend/internal/roles"
	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
	"github.com/dfmorales/facturas-backend/pkg/logger"
)

type createRoleRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

func AdminCreateRole(svc rolesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role service unavailable"))
			return
		}

		var body createRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := svc.CreateRole(r.Context(), body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, role)
	}
}

func AdminListRoles(svc rolesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "role service unavailable"))
			return
		}

		roles, err := svc.ListRoles(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, roles)
	}
}
