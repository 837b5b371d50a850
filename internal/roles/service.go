package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dfmorales/facturas-backend/pkg/db"
	"github.com/dfmorales/facturas-backend/pkg/db/models"
	"github.com/dfmorales/facturas-backend/pkg/enums"
	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
)

// Service exposes role management operations. All of them are admin-only;
// the HTTP layer enforces that before the service is reached.
type Service interface {
	CreateRole(ctx context.Context, name string) (*RoleDTO, error)
	ListRoles(ctx context.Context) ([]RoleDTO, error)
}

// RoleDTO is the API shape of a role.
type RoleDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type service struct {
	repo *Repository
}

// NewService constructs a role service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("role repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateRole(ctx context.Context, name string) (*RoleDTO, error) {
	normalized := enums.NormalizeRoleName(name)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role name is required")
	}

	created, err := s.repo.Create(ctx, &models.Role{Name: normalized})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_roles_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "role name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert role")
	}
	return &RoleDTO{ID: created.ID, Name: created.Name}, nil
}

func (s *service) ListRoles(ctx context.Context) ([]RoleDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list roles")
	}

	out := make([]RoleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, RoleDTO{ID: row.ID, Name: row.Name})
	}
	return out, nil
}
