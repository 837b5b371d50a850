package reports

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dfmorales/facturas-backend/internal/authz"
)

// Filters selects the invoice set every aggregate is computed from. One
// filter set feeds the whole report so totals and breakdowns can never
// disagree.
type Filters struct {
	RequesterID uuid.UUID
	Roles       authz.RoleSet
	Provider    *string
	From        *time.Time
	To          *time.Time
}

// RecentInvoice is the trimmed invoice row shown on dashboards.
type RecentInvoice struct {
	ID       uuid.UUID       `json:"id"`
	Number   string          `json:"number"`
	Provider string          `json:"provider"`
	Amount   decimal.Decimal `json:"amount"`
	IssuedAt time.Time       `json:"issued_at"`
	Owner    string          `json:"owner"`
}

// Dashboard is the landing-page stat block.
type Dashboard struct {
	TotalInvoices      int64           `json:"total_invoices"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	CurrentMonthAmount decimal.Decimal `json:"current_month_amount"`
	PercentChange      decimal.Decimal `json:"percent_change"`
	ActiveUsers        int64           `json:"active_users"`
	PendingUsers       int64           `json:"pending_users"`
	RecentInvoices     []RecentInvoice `json:"recent_invoices"`
}

// NatureBreakdown groups count and amount by accounting nature.
type NatureBreakdown struct {
	Nature string          `json:"nature"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthBucket is one month of the trailing monthly breakdown, keyed YYYY-MM.
type MonthBucket struct {
	Month  string          `json:"month"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// GroupTotal is a grouped count/amount pair for providers and PUC codes.
type GroupTotal struct {
	Key    string          `json:"key"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is the full report payload.
type Summary struct {
	TotalInvoices    int64             `json:"total_invoices"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	TotalVAT         decimal.Decimal   `json:"total_vat"`
	TotalWithholding decimal.Decimal   `json:"total_withholding"`
	TotalMunicipal   decimal.Decimal   `json:"total_municipal"`
	ByNature         []NatureBreakdown `json:"by_nature"`
	ByMonth          []MonthBucket     `json:"by_month"`
	TopProviders     []GroupTotal      `json:"top_providers"`
	TopAccounts      []GroupTotal      `json:"top_accounts"`
	RecentInvoices   []RecentInvoice   `json:"recent_invoices"`
}
