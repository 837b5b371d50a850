package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dfmorales/facturas-backend/internal/authz"
	"github.com/dfmorales/facturas-backend/internal/invoices"
	"github.com/dfmorales/facturas-backend/pkg/config"
	"github.com/dfmorales/facturas-backend/pkg/db/models"
	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
)

const monthKeyLayout = "2006-01"

// Service computes reporting aggregates over invoices.
type Service interface {
	Dashboard(ctx context.Context, filters Filters) (*Dashboard, error)
	Summary(ctx context.Context, filters Filters) (*Summary, error)
}

type invoiceSource interface {
	ListAll(ctx context.Context, q invoices.Filter) ([]models.Invoice, error)
}

type userCounter interface {
	CountActive(ctx context.Context) (int64, error)
	CountPendingApproval(ctx context.Context) (int64, error)
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Invoices invoiceSource
	Users    userCounter
	Cfg      config.ReportingConfig
	Now      func() time.Time // optional; defaults to time.Now
}

type service struct {
	invoices invoiceSource
	users    userCounter
	cfg      config.ReportingConfig
	now      func() time.Time
}

// NewService constructs a reporting service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice source required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user counter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		invoices: params.Invoices,
		users:    params.Users,
		cfg:      params.Cfg,
		now:      now,
	}, nil
}

// load fetches the one invoice set all aggregates are derived from.
func (s *service) load(ctx context.Context, filters Filters) ([]models.Invoice, error) {
	rows, err := s.invoices.ListAll(ctx, invoices.Filter{
		OwnerID:  authz.ScopeToOwner(filters.Roles, filters.RequesterID),
		Provider: filters.Provider,
		From:     filters.From,
		To:       filters.To,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load invoices for report")
	}
	return rows, nil
}

func (s *service) Dashboard(ctx context.Context, filters Filters) (*Dashboard, error) {
	rows, err := s.load(ctx, filters)
	if err != nil {
		return nil, err
	}

	now := s.now()
	currentStart := monthStart(now)
	priorStart := monthStart(currentStart.AddDate(0, -1, 0))

	total := decimal.Zero
	currentMonth := decimal.Zero
	priorMonth := decimal.Zero
	for i := range rows {
		total = total.Add(rows[i].Amount)
		switch {
		case inRange(rows[i].IssuedAt, currentStart, currentStart.AddDate(0, 1, 0)):
			currentMonth = currentMonth.Add(rows[i].Amount)
		case inRange(rows[i].IssuedAt, priorStart, currentStart):
			priorMonth = priorMonth.Add(rows[i].Amount)
		}
	}

	activeUsers, err := s.users.CountActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count active users")
	}
	pendingUsers, err := s.users.CountPendingApproval(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count pending users")
	}

	return &Dashboard{
		TotalInvoices:      int64(len(rows)),
		TotalAmount:        total,
		CurrentMonthAmount: currentMonth,
		PercentChange:      percentChange(currentMonth, priorMonth),
		ActiveUsers:        activeUsers,
		PendingUsers:       pendingUsers,
		RecentInvoices:     recentByCreation(rows, s.cfg.DashboardRecent),
	}, nil
}

func (s *service) Summary(ctx context.Context, filters Filters) (*Summary, error) {
	rows, err := s.load(ctx, filters)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalInvoices:    int64(len(rows)),
		TotalAmount:      decimal.Zero,
		TotalVAT:         decimal.Zero,
		TotalWithholding: decimal.Zero,
		TotalMunicipal:   decimal.Zero,
	}

	windowStart := monthStart(s.now()).AddDate(0, -(s.cfg.MonthlyWindowMonths - 1), 0)
	byNature := map[string]*NatureBreakdown{}
	byMonth := map[string]*MonthBucket{}
	byProvider := map[string]*GroupTotal{}
	byAccount := map[string]*GroupTotal{}

	for i := range rows {
		row := &rows[i]
		summary.TotalAmount = summary.TotalAmount.Add(row.Amount)
		summary.TotalVAT = summary.TotalVAT.Add(row.VAT)
		summary.TotalWithholding = summary.TotalWithholding.Add(row.WithholdingTax)
		summary.TotalMunicipal = summary.TotalMunicipal.Add(row.MunicipalTax)

		accumulate(byNature, string(row.Nature), row.Amount, func(key string) *NatureBreakdown {
			return &NatureBreakdown{Nature: key}
		}, func(b *NatureBreakdown, amount decimal.Decimal) {
			b.Count++
			b.Amount = b.Amount.Add(amount)
		})

		if !row.IssuedAt.Before(windowStart) {
			accumulate(byMonth, row.IssuedAt.Format(monthKeyLayout), row.Amount, func(key string) *MonthBucket {
				return &MonthBucket{Month: key}
			}, func(b *MonthBucket, amount decimal.Decimal) {
				b.Count++
				b.Amount = b.Amount.Add(amount)
			})
		}

		accumulate(byProvider, row.Provider, row.Amount, func(key string) *GroupTotal {
			return &GroupTotal{Key: key}
		}, func(b *GroupTotal, amount decimal.Decimal) {
			b.Count++
			b.Amount = b.Amount.Add(amount)
		})
		accumulate(byAccount, row.PUCCode, row.Amount, func(key string) *GroupTotal {
			return &GroupTotal{Key: key}
		}, func(b *GroupTotal, amount decimal.Decimal) {
			b.Count++
			b.Amount = b.Amount.Add(amount)
		})
	}

	for _, b := range byNature {
		summary.ByNature = append(summary.ByNature, *b)
	}
	sort.Slice(summary.ByNature, func(i, j int) bool {
		return summary.ByNature[i].Nature < summary.ByNature[j].Nature
	})

	for _, b := range byMonth {
		summary.ByMonth = append(summary.ByMonth, *b)
	}
	sort.Slice(summary.ByMonth, func(i, j int) bool {
		return summary.ByMonth[i].Month < summary.ByMonth[j].Month
	})

	summary.TopProviders = topGroups(byProvider, s.cfg.TopProviders)
	summary.TopAccounts = topGroups(byAccount, s.cfg.TopAccounts)
	summary.RecentInvoices = recentByIssue(rows, s.cfg.RecentInvoices)

	return summary, nil
}

func accumulate[T any](m map[string]*T, key string, amount decimal.Decimal, create func(string) *T, add func(*T, decimal.Decimal)) {
	bucket, ok := m[key]
	if !ok {
		bucket = create(key)
		m[key] = bucket
	}
	add(bucket, amount)
}

func topGroups(m map[string]*GroupTotal, limit int) []GroupTotal {
	out := make([]GroupTotal, 0, len(m))
	for _, g := range m {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// recentByIssue assumes rows arrive newest-issued first, which is how the
// repository orders them.
func recentByIssue(rows []models.Invoice, limit int) []RecentInvoice {
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return toRecent(rows)
}

func recentByCreation(rows []models.Invoice, limit int) []RecentInvoice {
	sorted := make([]models.Invoice, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return toRecent(sorted)
}

func toRecent(rows []models.Invoice) []RecentInvoice {
	out := make([]RecentInvoice, 0, len(rows))
	for i := range rows {
		owner := "unknown"
		if rows[i].Owner != nil {
			owner = rows[i].Owner.DisplayName()
		}
		out = append(out, RecentInvoice{
			ID:       rows[i].ID,
			Number:   rows[i].Number,
			Provider: rows[i].Provider,
			Amount:   rows[i].Amount,
			IssuedAt: rows[i].IssuedAt,
			Owner:    owner,
		})
	}
	return out
}

// percentChange follows the convention that growth from a zero prior month
// reads as 0, not infinity.
func percentChange(current, prior decimal.Decimal) decimal.Decimal {
	if prior.IsZero() {
		return decimal.Zero
	}
	return current.Sub(prior).Div(prior).Mul(decimal.NewFromInt(100)).Round(2)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
