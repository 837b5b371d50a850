package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dfmorales/facturas-backend/api/routes"
	authsvc "github.com/dfmorales/facturas-backend/internal/auth"
	invoicesvc "github.com/dfmorales/facturas-backend/internal/invoices"
	reportsvc "github.com/dfmorales/facturas-backend/internal/reports"
	rolesvc "github.com/dfmorales/facturas-backend/internal/roles"
	"github.com/dfmorales/facturas-backend/internal/seed"
	usersvc "github.com/dfmorales/facturas-backend/internal/users"
	"github.com/dfmorales/facturas-backend/pkg/auth/session"
	"github.com/dfmorales/facturas-backend/pkg/config"
	"github.com/dfmorales/facturas-backend/pkg/db"
	"github.com/dfmorales/facturas-backend/pkg/logger"
	"github.com/dfmorales/facturas-backend/pkg/mailer"
	"github.com/dfmorales/facturas-backend/pkg/metrics"
	"github.com/dfmorales/facturas-backend/pkg/migrate"
	"github.com/dfmorales/facturas-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	if err := seed.Ensure(context.Background(), dbClient.DB(), *cfg, logg); err != nil {
		logg.Error(context.Background(), "failed to seed base records", err)
		os.Exit(1)
	}

	userRepo := usersvc.NewRepository(dbClient.DB())
	roleRepo := rolesvc.NewRepository(dbClient.DB())
	invoiceRepo := invoicesvc.NewRepository(dbClient.DB())
	mailClient := mailer.New(cfg.Mailer, logg)
	if mailClient == nil {
		logg.Warn(context.Background(), "mailer disabled, temporary passwords will only be logged")
	}

	userParams := usersvc.ServiceParams{
		Repo:        userRepo,
		Roles:       roleRepo,
		PasswordCfg: cfg.Password,
		Logger:      logg,
	}
	// A typed-nil *mailer.Mailer would defeat the service's nil check, so
	// the field is only set when a client actually exists.
	if mailClient != nil {
		userParams.Mailer = mailClient
	}

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		Repo:        userRepo,
		Roles:       roleRepo,
		Sessions:    sessionManager,
		JWTCfg:      cfg.JWT,
		PasswordCfg: cfg.Password,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	userService, err := usersvc.NewService(userParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	roleService, err := rolesvc.NewService(roleRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create role service", err)
		os.Exit(1)
	}

	invoiceService, err := invoicesvc.NewService(invoicesvc.ServiceParams{
		Repo:   invoiceRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice service", err)
		os.Exit(1)
	}

	reportService, err := reportsvc.NewService(reportsvc.ServiceParams{
		Invoices: invoiceRepo,
		Users:    userRepo,
		Cfg:      cfg.Reporting,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create report service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Sessions: sessionManager,
			Metrics:  httpMetrics,
			Auth:     authService,
			Users:    userService,
			Roles:    roleService,
			Invoices: invoiceService,
			Reports:  reportService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
