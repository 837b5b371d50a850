package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dfmorales/facturas-backend/internal/authz"
	"github.com/dfmorales/facturas-backend/pkg/db/models"
	"github.com/dfmorales/facturas-backend/pkg/enums"
	"github.com/dfmorales/facturas-backend/pkg/pagination"
)

// Requester identifies who is performing an operation.
type Requester struct {
	ID    uuid.UUID
	Roles authz.RoleSet
}

// WriteInvoiceInput is the payload for create and full-replace update.
// Percentages are in percentage points; the tax block is always derived
// server-side and never accepted from the client.
type WriteInvoiceInput struct {
	Number         string
	IssuedAt       time.Time
	Provider       string
	Amount         decimal.Decimal
	PUCCode        string
	Detail         string
	Nature         enums.InvoiceNature
	WithholdingPct decimal.Decimal
	MunicipalPct   decimal.Decimal

	// OwnerID may only be set by admins; everyone else owns what they create.
	OwnerID *uuid.UUID
}

// ListInvoicesInput carries pagination plus the optional filters shared with
// reporting.
type ListInvoicesInput struct {
	Requester  Requester
	Pagination pagination.Params
	Provider   *string
	Nature     *enums.InvoiceNature
	From       *time.Time
	To         *time.Time
}

// TaxBlockDTO is the derived tax portion of an invoice.
type TaxBlockDTO struct {
	VAT            decimal.Decimal `json:"vat"`
	Withholding    decimal.Decimal `json:"withholding"`
	MunicipalTax   decimal.Decimal `json:"municipal_tax"`
	WithholdingPct decimal.Decimal `json:"withholding_pct"`
	MunicipalPct   decimal.Decimal `json:"municipal_pct"`
}

// InvoiceDTO is the API shape of an invoice.
type InvoiceDTO struct {
	ID        uuid.UUID           `json:"id"`
	Number    string              `json:"number"`
	IssuedAt  time.Time           `json:"issued_at"`
	Provider  string              `json:"provider"`
	Amount    decimal.Decimal     `json:"amount"`
	PUCCode   string              `json:"puc_code"`
	Detail    string              `json:"detail"`
	Nature    enums.InvoiceNature `json:"nature"`
	Taxes     TaxBlockDTO         `json:"taxes"`
	OwnerID   uuid.UUID           `json:"owner_id"`
	OwnerName string              `json:"owner_name,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// InvoiceListResult is a cursor-paginated page of invoices.
type InvoiceListResult struct {
	Items      []InvoiceDTO `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// NewInvoiceDTO maps the stored invoice onto its API shape.
func NewInvoiceDTO(invoice *models.Invoice) *InvoiceDTO {
	if invoice == nil {
		return nil
	}
	dto := &InvoiceDTO{
		ID:       invoice.ID,
		Number:   invoice.Number,
		IssuedAt: invoice.IssuedAt,
		Provider: invoice.Provider,
		Amount:   invoice.Amount,
		PUCCode:  invoice.PUCCode,
		Detail:   invoice.Detail,
		Nature:   invoice.Nature,
		Taxes: TaxBlockDTO{
			VAT:            invoice.VAT,
			Withholding:    invoice.WithholdingTax,
			MunicipalTax:   invoice.MunicipalTax,
			WithholdingPct: invoice.WithholdingPct,
			MunicipalPct:   invoice.MunicipalPct,
		},
		OwnerID:   invoice.UserID,
		CreatedAt: invoice.CreatedAt,
		UpdatedAt: invoice.UpdatedAt,
	}
	if invoice.Owner != nil {
		dto.OwnerName = invoice.Owner.DisplayName()
	}
	return dto
}
