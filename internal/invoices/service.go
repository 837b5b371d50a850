package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dfmorales/facturas-backend/internal/authz"
	"github.com/dfmorales/facturas-backend/internal/tax"
	"github.com/dfmorales/facturas-backend/pkg/db"
	"github.com/dfmorales/facturas-backend/pkg/db/models"
	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
	"github.com/dfmorales/facturas-backend/pkg/logger"
	"github.com/dfmorales/facturas-backend/pkg/pagination"
)

// Service exposes invoice lifecycle operations. Authorization is enforced
// here, against the stored owner, never in the HTTP layer.
type Service interface {
	CreateInvoice(ctx context.Context, requester Requester, input WriteInvoiceInput) (*InvoiceDTO, error)
	GetInvoice(ctx context.Context, requester Requester, id uuid.UUID) (*InvoiceDTO, error)
	ListInvoices(ctx context.Context, input ListInvoicesInput) (*InvoiceListResult, error)
	UpdateInvoice(ctx context.Context, requester Requester, id uuid.UUID, input WriteInvoiceInput) (*InvoiceDTO, error)
	DeleteInvoice(ctx context.Context, requester Requester, id uuid.UUID) error
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Repo   *Repository
	Logger *logger.Logger
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService constructs an invoice service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) CreateInvoice(ctx context.Context, requester Requester, input WriteInvoiceInput) (*InvoiceDTO, error) {
	if err := validateWriteInput(&input); err != nil {
		return nil, err
	}

	ownerID, err := resolveOwner(requester, input.OwnerID)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.NumberTaken(ctx, input.Number, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check invoice number")
	}
	if taken {
		return nil, numberConflict()
	}

	assessment, err := tax.Assess(tax.Input{
		Amount:         input.Amount,
		WithholdingPct: input.WithholdingPct,
		MunicipalPct:   input.MunicipalPct,
	})
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		Number:         input.Number,
		IssuedAt:       input.IssuedAt,
		Provider:       input.Provider,
		Amount:         input.Amount,
		PUCCode:        input.PUCCode,
		Detail:         input.Detail,
		Nature:         input.Nature,
		VAT:            assessment.VAT,
		WithholdingTax: assessment.Withholding,
		MunicipalTax:   assessment.MunicipalTax,
		WithholdingPct: input.WithholdingPct,
		MunicipalPct:   input.MunicipalPct,
		UserID:         ownerID,
	}
	created, err := s.repo.Create(ctx, invoice)
	if err != nil {
		// The unique index is the authoritative uniqueness check; the
		// pre-check above only loses under concurrency.
		if db.IsUniqueViolation(err, "idx_invoices_number") {
			return nil, numberConflict()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert invoice")
	}

	s.logg.Info(s.logg.WithInvoiceNumber(ctx, created.Number), "invoice created")

	saved, err := s.repo.FindByID(ctx, created.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload invoice")
	}
	return NewInvoiceDTO(saved), nil
}

func (s *service) GetInvoice(ctx context.Context, requester Requester, id uuid.UUID) (*InvoiceDTO, error) {
	invoice, err := s.findInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(requester.Roles, invoice.UserID, requester.ID) {
		return nil, accessDenied()
	}
	return NewInvoiceDTO(invoice), nil
}

func (s *service) ListInvoices(ctx context.Context, input ListInvoicesInput) (*InvoiceListResult, error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Pagination.Limit)

	rows, err := s.repo.ListPage(ctx, Filter{
		OwnerID:  authz.ScopeToOwner(input.Requester.Roles, input.Requester.ID),
		Provider: input.Provider,
		Nature:   input.Nature,
		From:     input.From,
		To:       input.To,
	}, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list invoices")
	}

	result := &InvoiceListResult{Items: make([]InvoiceDTO, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		rows = rows[:limit]
	}
	for i := range rows {
		result.Items = append(result.Items, *NewInvoiceDTO(&rows[i]))
	}
	return result, nil
}

// UpdateInvoice replaces every client-settable field and re-derives the tax
// block. Partial patches are not supported.
func (s *service) UpdateInvoice(ctx context.Context, requester Requester, id uuid.UUID, input WriteInvoiceInput) (*InvoiceDTO, error) {
	if err := validateWriteInput(&input); err != nil {
		return nil, err
	}

	invoice, err := s.findInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccess(requester.Roles, invoice.UserID, requester.ID) {
		return nil, accessDenied()
	}

	taken, err := s.repo.NumberTaken(ctx, input.Number, &invoice.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check invoice number")
	}
	if taken {
		return nil, numberConflict()
	}

	assessment, err := tax.Assess(tax.Input{
		Amount:         input.Amount,
		WithholdingPct: input.WithholdingPct,
		MunicipalPct:   input.MunicipalPct,
	})
	if err != nil {
		return nil, err
	}

	invoice.Number = input.Number
	invoice.IssuedAt = input.IssuedAt
	invoice.Provider = input.Provider
	invoice.Amount = input.Amount
	invoice.PUCCode = input.PUCCode
	invoice.Detail = input.Detail
	invoice.Nature = input.Nature
	invoice.VAT = assessment.VAT
	invoice.WithholdingTax = assessment.Withholding
	invoice.MunicipalTax = assessment.MunicipalTax
	invoice.WithholdingPct = input.WithholdingPct
	invoice.MunicipalPct = input.MunicipalPct
	if input.OwnerID != nil {
		newOwner, err := resolveOwner(requester, input.OwnerID)
		if err != nil {
			return nil, err
		}
		invoice.UserID = newOwner
	}
	invoice.Owner = nil

	if _, err := s.repo.Update(ctx, invoice); err != nil {
		if db.IsUniqueViolation(err, "idx_invoices_number") {
			return nil, numberConflict()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update invoice")
	}

	updated, err := s.repo.FindByID(ctx, invoice.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload invoice")
	}
	return NewInvoiceDTO(updated), nil
}

func (s *service) DeleteInvoice(ctx context.Context, requester Requester, id uuid.UUID) error {
	invoice, err := s.findInvoice(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanAccess(requester.Roles, invoice.UserID, requester.ID) {
		return accessDenied()
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete invoice")
	}

	s.logg.Info(s.logg.WithInvoiceNumber(ctx, invoice.Number), "invoice deleted")
	return nil
}

func (s *service) findInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load invoice")
	}
	return invoice, nil
}

func validateWriteInput(input *WriteInvoiceInput) error {
	input.Number = strings.TrimSpace(input.Number)
	input.Provider = strings.TrimSpace(input.Provider)
	input.PUCCode = strings.TrimSpace(input.PUCCode)
	input.Detail = strings.TrimSpace(input.Detail)

	missing := []string{}
	if input.Number == "" {
		missing = append(missing, "number")
	}
	if input.IssuedAt.IsZero() {
		missing = append(missing, "issued_at")
	}
	if input.Provider == "" {
		missing = append(missing, "provider")
	}
	if input.PUCCode == "" {
		missing = append(missing, "puc_code")
	}
	if input.Detail == "" {
		missing = append(missing, "detail")
	}
	// A zero amount is indistinguishable from an omitted one, and neither
	// names a billable record. Both are rejected as missing.
	if input.Amount.IsZero() {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	if !input.Nature.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "nature must be credit or debit")
	}
	if input.Amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-negative")
	}
	if input.WithholdingPct.IsNegative() || input.MunicipalPct.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "tax percentages must be non-negative")
	}
	return nil
}

// resolveOwner decides whose invoice this is. Non-admins may not assign
// records to anyone but themselves.
func resolveOwner(requester Requester, explicit *uuid.UUID) (uuid.UUID, error) {
	if explicit == nil || *explicit == requester.ID {
		if requester.ID == uuid.Nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "requester identity required")
		}
		return requester.ID, nil
	}
	if !requester.Roles.IsAdmin() {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators may assign an owner")
	}
	return *explicit, nil
}

func numberConflict() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "an invoice with this number already exists")
}

func accessDenied() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "invoice belongs to another user")
}
