package invoices

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dfmorales/facturas-backend/pkg/db/models"
	"github.com/dfmorales/facturas-backend/pkg/enums"
	"github.com/dfmorales/facturas-backend/pkg/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Role{}, &models.User{}, &models.Invoice{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return conn
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func mustCreateTestUser(t *testing.T, conn *gorm.DB, email string) *models.User {
	t.Helper()

	role := &models.Role{Name: "user-" + uuid.NewString()}
	if err := conn.Create(role).Error; err != nil {
		t.Fatalf("create role: %v", err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Invoice",
		LastName:     "Tester",
		RoleID:       role.ID,
		IsActive:     true,
		Approved:     true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func writeInput(number string) WriteInvoiceInput {
	return WriteInvoiceInput{
		Number:         number,
		IssuedAt:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Provider:       "Proveedor Test",
		Amount:         decimal.RequireFromString("100000"),
		PUCCode:        "5110",
		Detail:         "Servicios de consultoría",
		Nature:         enums.InvoiceNatureDebit,
		WithholdingPct: decimal.RequireFromString("2.5"),
		MunicipalPct:   decimal.RequireFromString("0.966"),
	}
}
