package models

import (
	"time"

	"github.com/dfmorales/facturas-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is the billable record ("factura"). The tax columns are always
// derived from Amount and the percentage selectors before persistence and are
// never trusted from client input.
type Invoice struct {
	ID       uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Number   string              `gorm:"type:text;not null;uniqueIndex:idx_invoices_number"`
	IssuedAt time.Time           `gorm:"column:issued_at;not null"`
	Provider string              `gorm:"type:text;not null"`
	Amount   decimal.Decimal     `gorm:"type:numeric(18,2);not null"`
	PUCCode  string              `gorm:"column:puc_code;type:text;not null"`
	Detail   string              `gorm:"type:text;not null"`
	Nature   enums.InvoiceNature `gorm:"type:text;not null"`

	VAT            decimal.Decimal `gorm:"column:vat;type:numeric(18,2);not null"`
	WithholdingTax decimal.Decimal `gorm:"column:withholding_tax;type:numeric(18,2);not null"`
	MunicipalTax   decimal.Decimal `gorm:"column:municipal_tax;type:numeric(18,2);not null"`
	WithholdingPct decimal.Decimal `gorm:"column:withholding_pct;type:numeric(7,3);not null"`
	MunicipalPct   decimal.Decimal `gorm:"column:municipal_pct;type:numeric(7,3);not null"`

	UserID    uuid.UUID `gorm:"type:uuid;column:user_id;not null"`
	Owner     *User     `gorm:"foreignKey:UserID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
