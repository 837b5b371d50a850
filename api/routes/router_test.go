package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	authsvc "github.com/dfmorales/facturas-backend/internal/auth"
	invoicesvc "github.com/dfmorales/facturas-backend/internal/invoices"
	reportsvc "github.com/dfmorales/facturas-backend/internal/reports"
	rolesvc "github.com/dfmorales/facturas-backend/internal/roles"
	usersvc "github.com/dfmorales/facturas-backend/internal/users"
	pkgAuth "github.com/dfmorales/facturas-backend/pkg/auth"
	"github.com/dfmorales/facturas-backend/pkg/auth/session"
	"github.com/dfmorales/facturas-backend/pkg/config"
	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
	"github.com/dfmorales/facturas-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Register(context.Context, authsvc.RegisterInput) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{ID: uuid.New(), Email: "new@example.com"}, nil
}

func (stubAuthService) Login(context.Context, authsvc.LoginInput) (*authsvc.LoginResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

func (stubAuthService) Refresh(context.Context, string, string) (*authsvc.Credentials, error) {
	return &authsvc.Credentials{AccessToken: "a", RefreshToken: "r"}, nil
}

func (stubAuthService) Logout(context.Context, string) error {
	return nil
}

type stubUserService struct{}

func (stubUserService) CreateUser(context.Context, usersvc.CreateUserInput) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{ID: uuid.New()}, nil
}

func (stubUserService) GetUser(context.Context, uuid.UUID) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{ID: uuid.New()}, nil
}

func (stubUserService) ListUsers(context.Context) ([]usersvc.UserDTO, error) {
	return []usersvc.UserDTO{}, nil
}

func (stubUserService) UpdateUser(context.Context, uuid.UUID, usersvc.UpdateUserInput) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{ID: uuid.New()}, nil
}

func (stubUserService) ApproveUser(context.Context, uuid.UUID) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{ID: uuid.New(), Approved: true, IsActive: true}, nil
}

func (stubUserService) RejectUser(context.Context, uuid.UUID) (*usersvc.UserDTO, error) {
	return &usersvc.UserDTO{ID: uuid.New()}, nil
}

func (stubUserService) DisableUser(context.Context, uuid.UUID) error {
	return nil
}

type stubRoleService struct{}

func (stubRoleService) CreateRole(context.Context, string) (*rolesvc.RoleDTO, error) {
	return &rolesvc.RoleDTO{ID: uuid.New(), Name: "auditor"}, nil
}

func (stubRoleService) ListRoles(context.Context) ([]rolesvc.RoleDTO, error) {
	return []rolesvc.RoleDTO{}, nil
}

type stubInvoiceService struct{}

func (stubInvoiceService) CreateInvoice(context.Context, invoicesvc.Requester, invoicesvc.WriteInvoiceInput) (*invoicesvc.InvoiceDTO, error) {
	return &invoicesvc.InvoiceDTO{ID: uuid.New()}, nil
}

func (stubInvoiceService) GetInvoice(context.Context, invoicesvc.Requester, uuid.UUID) (*invoicesvc.InvoiceDTO, error) {
	return &invoicesvc.InvoiceDTO{ID: uuid.New()}, nil
}

func (stubInvoiceService) ListInvoices(context.Context, invoicesvc.ListInvoicesInput) (*invoicesvc.InvoiceListResult, error) {
	return &invoicesvc.InvoiceListResult{Items: []invoicesvc.InvoiceDTO{}}, nil
}

func (stubInvoiceService) UpdateInvoice(context.Context, invoicesvc.Requester, uuid.UUID, invoicesvc.WriteInvoiceInput) (*invoicesvc.InvoiceDTO, error) {
	return &invoicesvc.InvoiceDTO{ID: uuid.New()}, nil
}

func (stubInvoiceService) DeleteInvoice(context.Context, invoicesvc.Requester, uuid.UUID) error {
	return nil
}

type stubReportService struct{}

func (stubReportService) Dashboard(context.Context, reportsvc.Filters) (*reportsvc.Dashboard, error) {
	return &reportsvc.Dashboard{}, nil
}

func (stubReportService) Summary(context.Context, reportsvc.Filters) (*reportsvc.Summary, error) {
	return &reportsvc.Summary{}, nil
}

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = testJWTConfig()

	return NewRouter(RouterParams{
		Config:   cfg,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:       stubPinger{},
		Sessions: stubSessions{},
		Auth:     stubAuthService{},
		Users:    stubUserService{},
		Roles:    stubRoleService{},
		Invoices: stubInvoiceService{},
		Reports:  stubReportService{},
	})
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "router-test-secret", Issuer: "facturas-backend", ExpirationMinutes: 60}
}

func mintToken(t *testing.T, role string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testJWTConfig(), time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if env := rec.Header().Get("X-Facturas-Env"); env != "test" {
		t.Fatalf("unexpected env header: %s", env)
	}
}

func TestHealthReady(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestInvoicesRequireAuth(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestInvoicesListWithToken(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReportsWithToken(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/api/v1/reports/dashboard", "/api/v1/reports/summary"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+mintToken(t, "user"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, rec.Code)
		}
	}
}

func TestUsersRequireAdminRole(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUsersAllowAdmin(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "admin"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterRouteWired(t *testing.T) {
	router := testRouter(t)

	body := `{"first_name":"Ana","last_name":"Morales","email":"ana@example.com","password":"longenough"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLoginErrorEnvelope(t *testing.T) {
	router := testRouter(t)

	body := `{"email":"ana@example.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeUnauthorized) {
		t.Fatalf("unexpected code: %s", payload.Error.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
