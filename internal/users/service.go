package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dfmorales/facturas-backend/pkg/config"
	"github.com/dfmorales/facturas-backend/pkg/db"
	"github.com/dfmorales/facturas-backend/pkg/db/models"
	"github.com/dfmorales/facturas-backend/pkg/enums"
	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
	"github.com/dfmorales/facturas-backend/pkg/logger"
	"github.com/dfmorales/facturas-backend/pkg/security"
)

// Service exposes administrative user management operations.
type Service interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*UserDTO, error)
	GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	ListUsers(ctx context.Context) ([]UserDTO, error)
	UpdateUser(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*UserDTO, error)
	ApproveUser(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	RejectUser(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	DisableUser(ctx context.Context, id uuid.UUID) error
}

// CreateUserInput holds the validated payload for an admin-created account.
// The account is born approved; a generated temporary password is mailed to
// the new user.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	RoleName  string
}

// UpdateUserInput holds optional profile mutations.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	RoleName  *string
}

type roleFinder interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
	First(ctx context.Context) (*models.Role, error)
}

type passwordMailer interface {
	SendTempPassword(ctx context.Context, toEmail, firstName, tempPassword string) error
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Repo        *Repository
	Roles       roleFinder
	Mailer      passwordMailer // optional; nil disables credential mail
	PasswordCfg config.PasswordConfig
	Logger      *logger.Logger
}

type service struct {
	repo        *Repository
	roles       roleFinder
	mailer      passwordMailer
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService constructs a user service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Roles == nil {
		return nil, fmt.Errorf("role finder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        params.Repo,
		roles:       params.Roles,
		mailer:      params.Mailer,
		passwordCfg: params.PasswordCfg,
		logg:        params.Logger,
	}, nil
}

func (s *service) CreateUser(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}

	role, err := s.resolveRole(ctx, input.RoleName)
	if err != nil {
		return nil, err
	}

	tempPassword, err := security.GenerateTempPassword(s.passwordCfg.TempPasswordLen)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		RoleID:       role.ID,
		IsActive:     true,
		Approved:     true,
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert user")
	}
	created.Role = role

	// Credential delivery is best-effort. The account must survive a mail
	// outage; the admin can always reset manually.
	if s.mailer == nil {
		// Surfaced once at creation; there is no other way to obtain it.
		entry := s.logg.WithUserID(ctx, created.ID.String())
		entry = s.logg.WithField(entry, "generated_password", tempPassword)
		s.logg.Warn(entry, "mailer disabled, temp password logged")
	} else if err := s.mailer.SendTempPassword(ctx, created.Email, created.FirstName, tempPassword); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, created.ID.String()), "temp password mail not delivered", err)
	}

	return NewUserDTO(created), nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewUserDTO(user), nil
}

func (s *service) ListUsers(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list users")
	}

	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewUserDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) UpdateUser(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*UserDTO, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		if strings.TrimSpace(*input.FirstName) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name cannot be empty")
		}
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		if strings.TrimSpace(*input.LastName) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "last_name cannot be empty")
		}
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
		}
		user.Email = email
	}
	if input.RoleName != nil {
		role, err := s.roles.FindByName(ctx, enums.NormalizeRoleName(*input.RoleName))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load role")
		}
		user.RoleID = role.ID
		user.Role = role
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update user")
	}
	return NewUserDTO(updated), nil
}

// ApproveUser enables a pending account. Only the approved/is_active pair
// changes; name, email, role, and password hash stay as they are.
func (s *service) ApproveUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	return s.setApproval(ctx, id, true, true)
}

// RejectUser marks the account rejected and keeps it disabled.
func (s *service) RejectUser(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	return s.setApproval(ctx, id, false, false)
}

func (s *service) DisableUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Disable(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: disable user")
	}
	return nil
}

func (s *service) setApproval(ctx context.Context, id uuid.UUID, approved, active bool) (*UserDTO, error) {
	if err := s.repo.SetApproval(ctx, id, approved, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set approval")
	}
	return s.GetUser(ctx, id)
}

func (s *service) findUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}
	return user, nil
}

func (s *service) resolveRole(ctx context.Context, name string) (*models.Role, error) {
	normalized := enums.NormalizeRoleName(name)
	if normalized == "" {
		normalized = enums.RoleUser
	}

	role, err := s.roles.FindByName(ctx, normalized)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load role")
	}
	if normalized != enums.RoleUser {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}

	// The default role should exist after bootstrap; fall back to the oldest
	// role rather than failing registration outright.
	fallback, err := s.roles.First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "no roles configured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load fallback role")
	}
	return fallback, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
