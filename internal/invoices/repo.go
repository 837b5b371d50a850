package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dfmorales/facturas-backend/pkg/db/models"
	"github.com/dfmorales/facturas-backend/pkg/enums"
	"github.com/dfmorales/facturas-backend/pkg/pagination"
)

// Repository provides persistence for invoice records.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// FindByID loads the invoice with its owner preloaded.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Preload("Owner").First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// NumberTaken reports whether another invoice already uses the number. The
// unique index remains the authoritative check; this is the advisory
// pre-check that produces a friendlier conflict before the insert races.
func (r *Repository) NumberTaken(ctx context.Context, number string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("number = ?", number)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) Update(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if err := r.db.WithContext(ctx).Save(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// Delete removes the invoice row. Invoices are hard-deleted.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Invoice{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Filter is the single filter set shared by listing and reporting reads.
type Filter struct {
	OwnerID  *uuid.UUID
	Provider *string
	Nature   *enums.InvoiceNature
	From     *time.Time
	To       *time.Time
}

func (r *Repository) applyFilters(ctx context.Context, q Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Invoice{})
	if q.OwnerID != nil {
		query = query.Where("user_id = ?", *q.OwnerID)
	}
	if q.Provider != nil && *q.Provider != "" {
		query = query.Where("provider = ?", *q.Provider)
	}
	if q.Nature != nil {
		query = query.Where("nature = ?", *q.Nature)
	}
	if q.From != nil {
		query = query.Where("issued_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("issued_at < ?", *q.To)
	}
	return query
}

// ListPage returns one cursor page ordered by (created_at, id) descending.
func (r *Repository) ListPage(ctx context.Context, q Filter, limit int, cursor *pagination.Cursor) ([]models.Invoice, error) {
	query := r.applyFilters(ctx, q).Preload("Owner")
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Invoice
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll loads every invoice matching the filter set, owner preloaded,
// newest first. Reporting aggregates over this one result set.
func (r *Repository) ListAll(ctx context.Context, q Filter) ([]models.Invoice, error) {
	var rows []models.Invoice
	if err := r.applyFilters(ctx, q).
		Preload("Owner").
		Order("issued_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
