package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dfmorales/facturas-backend/api/middleware"
	"github.com/dfmorales/facturas-backend/api/responses"
	"github.com/dfmorales/facturas-backend/api/validators"
	invoicesvc "github.com/dfmorales/facturas-backend/internal/invoices"
	"github.com/dfmorales/facturas-backend/pkg/enums"
	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
	"github.com/dfmorales/facturas-backend/pkg/logger"
	"github.com/dfmorales/facturas-backend/pkg/pagination"
)

type writeInvoiceRequest struct {
	Number         string          `json:"number" validate:"required,max=50"`
	IssuedAt       time.Time       `json:"issued_at" validate:"required"`
	Provider       string          `json:"provider" validate:"required,max=200"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	PUCCode        string          `json:"puc_code" validate:"required,max=20"`
	Detail         string          `json:"detail" validate:"required"`
	Nature         string          `json:"nature" validate:"required"`
	WithholdingPct decimal.Decimal `json:"withholding_pct"`
	MunicipalPct   decimal.Decimal `json:"municipal_pct"`
	OwnerID        *string         `json:"owner_id,omitempty" validate:"omitempty,uuid"`
}

func (req writeInvoiceRequest) toInput() (invoicesvc.WriteInvoiceInput, error) {
	nature, err := enums.ParseInvoiceNature(req.Nature)
	if err != nil {
		return invoicesvc.WriteInvoiceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid nature")
	}

	input := invoicesvc.WriteInvoiceInput{
		Number:         req.Number,
		IssuedAt:       req.IssuedAt,
		Provider:       req.Provider,
		Amount:         req.Amount,
		PUCCode:        req.PUCCode,
		Detail:         req.Detail,
		Nature:         nature,
		WithholdingPct: req.WithholdingPct,
		MunicipalPct:   req.MunicipalPct,
	}
	if req.OwnerID != nil {
		ownerID, err := uuid.Parse(*req.OwnerID)
		if err != nil {
			return invoicesvc.WriteInvoiceInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid owner id")
		}
		input.OwnerID = &ownerID
	}
	return input, nil
}

// CreateInvoice derives the tax block server-side; clients never submit it.
func CreateInvoice(svc invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		requester, err := requesterFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body writeInvoiceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.CreateInvoice(r.Context(), requester, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

func GetInvoice(svc invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		requester, err := requesterFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.GetInvoice(r.Context(), requester, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoice)
	}
}

func ListInvoices(svc invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		requester, err := requesterFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		nature, err := validators.ParseQueryNature(r, "nature")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListInvoices(r.Context(), invoicesvc.ListInvoicesInput{
			Requester: requester,
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: r.URL.Query().Get("cursor"),
			},
			Provider: validators.ParseQueryString(r, "provider"),
			Nature:   nature,
			From:     from,
			To:       to,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// UpdateInvoice is a full replace; the tax block is recomputed from the new
// figures.
func UpdateInvoice(svc invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		requester, err := requesterFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body writeInvoiceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.UpdateInvoice(r.Context(), requester, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoice)
	}
}

func DeleteInvoice(svc invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		requester, err := requesterFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteInvoice(r.Context(), requester, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func requesterFromContext(ctx context.Context) (invoicesvc.Requester, error) {
	id := middleware.RequesterUUIDFromContext(ctx)
	if id == uuid.Nil {
		return invoicesvc.Requester{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return invoicesvc.Requester{
		ID:    id,
		Roles: middleware.RoleSetFromContext(ctx),
	}, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}
