package reports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dfmorales/facturas-backend/internal/authz"
	"github.com/dfmorales/facturas-backend/internal/invoices"
	"github.com/dfmorales/facturas-backend/internal/users"
	"github.com/dfmorales/facturas-backend/pkg/config"
	"github.com/dfmorales/facturas-backend/pkg/db/models"
	"github.com/dfmorales/facturas-backend/pkg/enums"
)

var reportNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testReportingConfig() config.ReportingConfig {
	return config.ReportingConfig{
		MonthlyWindowMonths: 6,
		TopProviders:        5,
		TopAccounts:         5,
		RecentInvoices:      10,
		DashboardRecent:     5,
	}
}

type reportFixture struct {
	conn  *gorm.DB
	svc   Service
	owner *models.User
	other *models.User
	seq   int
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Role{}, &models.User{}, &models.Invoice{}))

	role := &models.Role{Name: "user"}
	require.NoError(t, conn.Create(role).Error)

	makeUser := func(email, first, last string) *models.User {
		user := &models.User{
			Email:        email,
			PasswordHash: "hash",
			FirstName:    first,
			LastName:     last,
			RoleID:       role.ID,
			IsActive:     true,
			Approved:     true,
		}
		require.NoError(t, conn.Create(user).Error)
		return user
	}

	svc, err := NewService(ServiceParams{
		Invoices: invoices.NewRepository(conn),
		Users:    users.NewRepository(conn),
		Cfg:      testReportingConfig(),
		Now:      func() time.Time { return reportNow },
	})
	require.NoError(t, err)

	return &reportFixture{
		conn:  conn,
		svc:   svc,
		owner: makeUser("owner@example.com", "Ana", "Morales"),
		other: makeUser("other@example.com", "Luis", "Pardo"),
	}
}

// addInvoice stores an invoice with its VAT derived at 19%, mirroring what the
// lifecycle service persists.
func (f *reportFixture) addInvoice(t *testing.T, owner *models.User, amount string, nature enums.InvoiceNature, provider, puc string, issuedAt time.Time) {
	t.Helper()
	f.seq++

	amt := decimal.RequireFromString(amount)
	invoice := &models.Invoice{
		Number:         fmt.Sprintf("R%03d", f.seq),
		IssuedAt:       issuedAt,
		Provider:       provider,
		Amount:         amt,
		PUCCode:        puc,
		Detail:         "detalle",
		Nature:         nature,
		VAT:            amt.Mul(decimal.RequireFromString("0.19")).Round(2),
		WithholdingTax: decimal.Zero,
		MunicipalTax:   decimal.Zero,
		WithholdingPct: decimal.Zero,
		MunicipalPct:   decimal.Zero,
		UserID:         owner.ID,
	}
	require.NoError(t, f.conn.Create(invoice).Error)
}

func adminFilters() Filters {
	return Filters{RequesterID: uuid.New(), Roles: authz.NewRoleSet("admin")}
}

func TestSummaryTotalsOverFixedSet(t *testing.T) {
	f := newReportFixture(t)

	f.addInvoice(t, f.owner, "100000", enums.InvoiceNatureDebit, "Acme", "5110", reportNow)
	f.addInvoice(t, f.owner, "200000", enums.InvoiceNatureCredit, "Acme", "5110", reportNow)

	summary, err := f.svc.Summary(context.Background(), adminFilters())
	require.NoError(t, err)

	require.Equal(t, int64(2), summary.TotalInvoices)
	require.True(t, summary.TotalAmount.Equal(decimal.RequireFromString("300000")), "amount = %s", summary.TotalAmount)
	require.True(t, summary.TotalVAT.Equal(decimal.RequireFromString("57000")), "vat = %s", summary.TotalVAT)
	require.True(t, summary.TotalWithholding.IsZero())
	require.True(t, summary.TotalMunicipal.IsZero())

	require.Len(t, summary.ByNature, 2)
	require.Equal(t, "credit", summary.ByNature[0].Nature)
	require.True(t, summary.ByNature[0].Amount.Equal(decimal.RequireFromString("200000")))
	require.Equal(t, "debit", summary.ByNature[1].Nature)
	require.True(t, summary.ByNature[1].Amount.Equal(decimal.RequireFromString("100000")))
}

func TestSummaryScopesNonAdminToOwnInvoices(t *testing.T) {
	f := newReportFixture(t)

	f.addInvoice(t, f.owner, "100000", enums.InvoiceNatureDebit, "Acme", "5110", reportNow)
	f.addInvoice(t, f.other, "999999", enums.InvoiceNatureDebit, "Globex", "5120", reportNow)

	summary, err := f.svc.Summary(context.Background(), Filters{
		RequesterID: f.owner.ID,
		Roles:       authz.NewRoleSet("user"),
	})
	require.NoError(t, err)

	require.Equal(t, int64(1), summary.TotalInvoices)
	require.True(t, summary.TotalAmount.Equal(decimal.RequireFromString("100000")))
}

func TestSummaryAppliesOneFilterSetEverywhere(t *testing.T) {
	f := newReportFixture(t)

	f.addInvoice(t, f.owner, "100000", enums.InvoiceNatureDebit, "Acme", "5110", reportNow)
	f.addInvoice(t, f.owner, "50000", enums.InvoiceNatureDebit, "Globex", "5120", reportNow.AddDate(0, -1, 0))

	provider := "Acme"
	filters := adminFilters()
	filters.Provider = &provider

	summary, err := f.svc.Summary(context.Background(), filters)
	require.NoError(t, err)

	// The provider filter must constrain the totals, the monthly breakdown,
	// and the recents alike.
	require.Equal(t, int64(1), summary.TotalInvoices)
	require.True(t, summary.TotalAmount.Equal(decimal.RequireFromString("100000")))
	require.Len(t, summary.ByMonth, 1)
	require.Equal(t, "2024-06", summary.ByMonth[0].Month)
	require.Len(t, summary.RecentInvoices, 1)
	require.Equal(t, "Acme", summary.RecentInvoices[0].Provider)
}

func TestSummaryMonthlyWindowAndOrder(t *testing.T) {
	f := newReportFixture(t)

	// Inside the 6-month window (2024-01 .. 2024-06).
	f.addInvoice(t, f.owner, "100", enums.InvoiceNatureDebit, "Acme", "5110", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	f.addInvoice(t, f.owner, "200", enums.InvoiceNatureDebit, "Acme", "5110", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	f.addInvoice(t, f.owner, "300", enums.InvoiceNatureDebit, "Acme", "5110", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
	// Outside the window; still counted in totals.
	f.addInvoice(t, f.owner, "400", enums.InvoiceNatureDebit, "Acme", "5110", time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC))

	summary, err := f.svc.Summary(context.Background(), adminFilters())
	require.NoError(t, err)

	require.Equal(t, int64(4), summary.TotalInvoices)
	require.Len(t, summary.ByMonth, 2)
	require.Equal(t, "2024-01", summary.ByMonth[0].Month)
	require.Equal(t, int64(1), summary.ByMonth[0].Count)
	require.Equal(t, "2024-03", summary.ByMonth[1].Month)
	require.Equal(t, int64(2), summary.ByMonth[1].Count)
	require.True(t, summary.ByMonth[1].Amount.Equal(decimal.RequireFromString("500")))
}

func TestSummaryTopProvidersLimitedAndSorted(t *testing.T) {
	f := newReportFixture(t)

	for i := 0; i < 7; i++ {
		f.addInvoice(t, f.owner, fmt.Sprintf("%d", (i+1)*1000), enums.InvoiceNatureDebit,
			fmt.Sprintf("Proveedor %d", i), fmt.Sprintf("51%02d", i), reportNow)
	}

	summary, err := f.svc.Summary(context.Background(), adminFilters())
	require.NoError(t, err)

	require.Len(t, summary.TopProviders, 5)
	require.Equal(t, "Proveedor 6", summary.TopProviders[0].Key)
	require.True(t, summary.TopProviders[0].Amount.Equal(decimal.RequireFromString("7000")))
	require.Len(t, summary.TopAccounts, 5)
	require.Equal(t, "5106", summary.TopAccounts[0].Key)
}

func TestDashboardPercentChange(t *testing.T) {
	f := newReportFixture(t)

	f.addInvoice(t, f.owner, "150000", enums.InvoiceNatureDebit, "Acme", "5110", reportNow)
	f.addInvoice(t, f.owner, "100000", enums.InvoiceNatureDebit, "Acme", "5110", reportNow.AddDate(0, -1, 0))

	dashboard, err := f.svc.Dashboard(context.Background(), adminFilters())
	require.NoError(t, err)

	require.Equal(t, int64(2), dashboard.TotalInvoices)
	require.True(t, dashboard.CurrentMonthAmount.Equal(decimal.RequireFromString("150000")))
	require.True(t, dashboard.PercentChange.Equal(decimal.RequireFromString("50")), "pct = %s", dashboard.PercentChange)
}

func TestDashboardZeroPriorMonthReadsAsZeroChange(t *testing.T) {
	f := newReportFixture(t)

	f.addInvoice(t, f.owner, "150000", enums.InvoiceNatureDebit, "Acme", "5110", reportNow)

	dashboard, err := f.svc.Dashboard(context.Background(), adminFilters())
	require.NoError(t, err)
	require.True(t, dashboard.PercentChange.IsZero())
}

func TestDashboardUserCountsAndRecents(t *testing.T) {
	f := newReportFixture(t)

	pending := &models.User{
		Email:        "pending@example.com",
		PasswordHash: "hash",
		FirstName:    "Espera",
		LastName:     "Aprobación",
		RoleID:       f.owner.RoleID,
		IsActive:     false,
		Approved:     false,
	}
	require.NoError(t, f.conn.Create(pending).Error)

	for i := 0; i < 7; i++ {
		f.addInvoice(t, f.owner, "1000", enums.InvoiceNatureDebit, "Acme", "5110", reportNow)
	}

	dashboard, err := f.svc.Dashboard(context.Background(), adminFilters())
	require.NoError(t, err)

	require.Equal(t, int64(2), dashboard.ActiveUsers)
	require.Equal(t, int64(1), dashboard.PendingUsers)
	require.Len(t, dashboard.RecentInvoices, 5)
	require.Equal(t, "Ana Morales", dashboard.RecentInvoices[0].Owner)
}
