package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dfmorales/facturas-backend/api/controllers"
	"github.com/dfmorales/facturas-backend/api/middleware"
	authsvc "github.com/dfmorales/facturas-backend/internal/auth"
	invoicesvc "github.com/dfmorales/facturas-backend/internal/invoices"
	reportsvc "github.com/dfmorales/facturas-backend/internal/reports"
	rolesvc "github.com/dfmorales/facturas-backend/internal/roles"
	usersvc "github.com/dfmorales/facturas-backend/internal/users"
	"github.com/dfmorales/facturas-backend/pkg/auth/session"
	"github.com/dfmorales/facturas-backend/pkg/config"
	"github.com/dfmorales/facturas-backend/pkg/logger"
	"github.com/dfmorales/facturas-backend/pkg/metrics"
	"github.com/dfmorales/facturas-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams carries everything the HTTP surface depends on. Optional
// pieces (redis, metrics, sessions) may be nil and the affected routes
// degrade instead of panicking.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Metrics  *metrics.HTTPMetrics

	Auth     authsvc.Service
	Users    usersvc.Service
	Roles    rolesvc.Service
	Invoices invoicesvc.Service
	Reports  reportsvc.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	rateLimit := func(policy middleware.AuthRateLimitPolicy) func(http.Handler) http.Handler {
		if p.Redis == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.AuthRateLimit(policy, p.Redis, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, healthCache(p.Redis), logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(rateLimit(registerPolicy)).Post("/register", controllers.AuthRegister(p.Auth, logg))
		r.With(rateLimit(loginPolicy)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.ListInvoices(p.Invoices, logg))
			r.Post("/", controllers.CreateInvoice(p.Invoices, logg))
			r.Get("/{id}", controllers.GetInvoice(p.Invoices, logg))
			r.Put("/{id}", controllers.UpdateInvoice(p.Invoices, logg))
			r.Delete("/{id}", controllers.DeleteInvoice(p.Invoices, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", controllers.ReportsDashboard(p.Reports, logg))
			r.Get("/summary", controllers.ReportsSummary(p.Reports, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminListUsers(p.Users, logg))
				r.Post("/", controllers.AdminCreateUser(p.Users, logg))
				r.Get("/{id}", controllers.AdminGetUser(p.Users, logg))
				r.Put("/{id}", controllers.AdminUpdateUser(p.Users, logg))
				r.Delete("/{id}", controllers.AdminDisableUser(p.Users, logg))
				r.Post("/{id}/approve", controllers.AdminApproveUser(p.Users, logg))
				r.Post("/{id}/reject", controllers.AdminRejectUser(p.Users, logg))
			})

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", controllers.AdminListRoles(p.Roles, logg))
				r.Post("/", controllers.AdminCreateRole(p.Roles, logg))
			})
		})
	})

	return r
}

// healthCache keeps a typed-nil redis client from masquerading as a live
// pinger behind the interface.
func healthCache(client *redis.Client) pinger {
	if client == nil {
		return nil
	}
	return client
}
