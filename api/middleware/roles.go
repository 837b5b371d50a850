package middleware

import (
	"net/http"

	"github.com/dfmorales/facturas-backend/api/responses"
	"github.com/dfmorales/facturas-backend/pkg/enums"
	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
	"github.com/dfmorales/facturas-backend/pkg/logger"
)

func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	want := enums.NormalizeRoleName(role)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enums.NormalizeRoleName(RoleFromContext(r.Context())) != want {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
