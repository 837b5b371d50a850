package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dfmorales/facturas-backend/internal/users"
	pkgauth "github.com/dfmorales/facturas-backend/pkg/auth"
	"github.com/dfmorales/facturas-backend/pkg/auth/session"
	"github.com/dfmorales/facturas-backend/pkg/config"
	"github.com/dfmorales/facturas-backend/pkg/db"
	"github.com/dfmorales/facturas-backend/pkg/db/models"
	"github.com/dfmorales/facturas-backend/pkg/enums"
	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
	"github.com/dfmorales/facturas-backend/pkg/logger"
	"github.com/dfmorales/facturas-backend/pkg/security"
)

const minPasswordLen = 8

// Service exposes authentication operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*Credentials, error)
	Logout(ctx context.Context, accessToken string) error
}

type roleFinder interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
	First(ctx context.Context) (*models.Role, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams carries the dependencies for NewService.
type ServiceParams struct {
	Repo        *users.Repository
	Roles       roleFinder
	Sessions    sessionManager
	JWTCfg      config.JWTConfig
	PasswordCfg config.PasswordConfig
	Logger      *logger.Logger
	Now         func() time.Time // optional; defaults to time.Now
}

type service struct {
	repo        *users.Repository
	roles       roleFinder
	sessions    sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs an auth service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Roles == nil {
		return nil, fmt.Errorf("role finder required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		roles:       params.Roles,
		sessions:    params.Sessions,
		jwtCfg:      params.JWTCfg,
		passwordCfg: params.PasswordCfg,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Register creates an unapproved account. The user cannot log in until an
// administrator approves it.
func (s *service) Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}
	if len(input.Password) < minPasswordLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	role, err := s.defaultRole(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		RoleID:       role.ID,
		IsActive:     false,
		Approved:     false,
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert user")
	}
	created.Role = role

	s.logg.Info(s.logg.WithUserID(ctx, created.ID.String()), "user registered, pending approval")
	return users.NewUserDTO(created), nil
}

// Login authenticates the credentials and mints a token pair. Unknown email
// and wrong password produce the same UNAUTHORIZED answer so the response
// does not reveal which accounts exist.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidCredentials()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, invalidCredentials()
	}

	// Credential checks run first so an unapproved account with a wrong
	// password still reads as invalid credentials, not as pending.
	if !user.Approved {
		return nil, pkgerrors.New(pkgerrors.CodePendingApproval, "account pending approval")
	}
	if !user.IsActive {
		return nil, invalidCredentials()
	}

	roleName := enums.RoleUser
	if user.Role != nil {
		roleName = user.Role.Name
	}

	jti := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   roleName,
		JTI:    jti,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	refreshToken, err := s.sessions.Generate(ctx, jti)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	if err := s.repo.RecordLogin(ctx, user.ID, s.now()); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID.String()), "failed to record login time", err)
	}

	return &LoginResult{
		Credentials: Credentials{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
		User: users.NewUserDTO(user),
	}, nil
}

// Refresh rotates the refresh token and mints a fresh access token. The old
// access token may already be expired; only its signature and jti matter.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*Credentials, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newJTI, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	newAccess, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: claims.UserID,
		Role:   claims.Role,
		JTI:    newJTI,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &Credentials{AccessToken: newAccess, RefreshToken: newRefresh}, nil
}

// Logout revokes the session tied to the presented access token.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessToken(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) defaultRole(ctx context.Context) (*models.Role, error) {
	role, err := s.roles.FindByName(ctx, enums.RoleUser)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load role")
	}

	fallback, err := s.roles.First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "no roles configured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load fallback role")
	}
	return fallback, nil
}

func invalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}
