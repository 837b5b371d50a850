// Package seed guarantees the records the application cannot run without: the
// admin and user roles and one approved administrator account. It runs once at
// process start, before the HTTP listener comes up, and is idempotent.
package seed

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dfmorales/facturas-backend/pkg/config"
	"github.com/dfmorales/facturas-backend/pkg/db/models"
	"github.com/dfmorales/facturas-backend/pkg/enums"
	"github.com/dfmorales/facturas-backend/pkg/logger"
	"github.com/dfmorales/facturas-backend/pkg/security"
)

// Ensure creates the default roles and administrator account when missing.
// It never overwrites existing records, so a changed seed password does not
// rotate a live admin credential.
func Ensure(ctx context.Context, conn *gorm.DB, cfg config.Config, logg *logger.Logger) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		adminRole, err := ensureRole(tx, enums.RoleAdmin)
		if err != nil {
			return err
		}
		if _, err := ensureRole(tx, enums.RoleUser); err != nil {
			return err
		}
		return ensureAdminUser(ctx, tx, cfg, logg, adminRole)
	})
}

func ensureRole(tx *gorm.DB, name string) (*models.Role, error) {
	var role models.Role
	err := tx.First(&role, "name = ?", name).Error
	if err == nil {
		return &role, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("seed: look up role %q: %w", name, err)
	}

	role = models.Role{Name: name}
	if err := tx.Create(&role).Error; err != nil {
		return nil, fmt.Errorf("seed: create role %q: %w", name, err)
	}
	return &role, nil
}

func ensureAdminUser(ctx context.Context, tx *gorm.DB, cfg config.Config, logg *logger.Logger, adminRole *models.Role) error {
	var count int64
	if err := tx.Model(&models.User{}).
		Where("role_id = ?", adminRole.ID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("seed: count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	password := cfg.Seed.AdminPassword
	generated := false
	if password == "" {
		var err error
		password, err = security.GenerateTempPassword(cfg.Password.TempPasswordLen)
		if err != nil {
			return fmt.Errorf("seed: generate admin password: %w", err)
		}
		generated = true
	}

	hash, err := security.HashPassword(password, cfg.Password)
	if err != nil {
		return fmt.Errorf("seed: hash admin password: %w", err)
	}

	admin := models.User{
		Email:        cfg.Seed.AdminEmail,
		PasswordHash: hash,
		FirstName:    "Administrador",
		LastName:     "Sistema",
		RoleID:       adminRole.ID,
		IsActive:     true,
		Approved:     true,
	}
	if err := tx.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed: create admin user: %w", err)
	}

	if logg != nil {
		entry := logg.WithField(ctx, "admin_email", admin.Email)
		if generated {
			// Surfaced once at first boot; there is no other way to obtain it.
			entry = logg.WithField(entry, "generated_password", password)
		}
		logg.Info(entry, "default administrator created")
	}
	return nil
}
