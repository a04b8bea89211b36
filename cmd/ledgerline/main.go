package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerline/ledgerline/internal/accounting"
	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/auth"
	"github.com/ledgerline/ledgerline/internal/banking"
	"github.com/ledgerline/ledgerline/internal/contacts"
	"github.com/ledgerline/ledgerline/internal/idempotency"
	"github.com/ledgerline/ledgerline/internal/journals"
	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/purchases"
	"github.com/ledgerline/ledgerline/internal/rbac"
	"github.com/ledgerline/ledgerline/internal/reports"
	"github.com/ledgerline/ledgerline/internal/sales"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/tenancy"
	"github.com/ledgerline/ledgerline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	refreshStore := auth.NewRefreshStore(redisClient, cfg.RefreshTokenTTL)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokens, refreshStore)
	authHandler := auth.NewHandler(logger, authService)

	auditLogger := shared.NewAuditLogger(pool)

	tenancyRepo := tenancy.NewRepository(pool)
	tenancyService := tenancy.NewService(tenancyRepo, auditLogger)
	tenancyHandler := tenancy.NewHandler(logger, tenancyService)

	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Source: rbacService, Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	contactsRepo := contacts.NewRepository(pool)
	contactsService := contacts.NewService(contactsRepo, auditLogger)
	contactsHandler := contacts.NewHandler(logger, contactsService, rbacMiddleware)

	accountingRepo := accounting.NewRepository(pool)
	accountingService := accounting.NewService(accountingRepo, auditLogger)
	accountsHandler := accounting.NewHandler(logger, accountingService, rbacMiddleware)

	journalsRepo := journals.NewRepository(pool)
	journalsService := journals.NewService(journalsRepo, auditLogger)
	journalsHandler := journals.NewHandler(logger, journalsService, rbacMiddleware)

	idempotencyStore := idempotency.NewStore(pool)
	idempotencyGuard := idempotency.NewGuard(idempotencyStore, logger, cfg.IdempotencyTTL)

	salesService := sales.NewService(pool, contactsRepo, auditLogger)
	salesHandler := sales.NewHandler(logger, salesService, idempotencyGuard, rbacMiddleware)

	purchasesService := purchases.NewService(pool, contactsRepo, auditLogger)
	purchasesHandler := purchases.NewHandler(logger, purchasesService, idempotencyGuard, rbacMiddleware)

	bankingRepo := banking.NewRepository(pool)
	bankingService := banking.NewService(bankingRepo, journalsRepo, accountingRepo, auditLogger)
	bankingHandler := banking.NewHandler(logger, bankingService, rbacMiddleware)

	reportLines := reports.NewLineSource(pool)
	reportsService := reports.NewService(reportLines, bankingRepo)
	reportsHandler := reports.NewHandler(logger, reportsService, rbacMiddleware)

	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(logger, auditRepo, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		AuthMiddleware:   auth.Middleware(tokens),
		TenantMiddleware: tenancy.Middleware(tenancyService),
		AuthHandler:      authHandler,
		CompanyHandler:   tenancyHandler,
		ContactsHandler:  contactsHandler,
		AccountsHandler:  accountsHandler,
		JournalsHandler:  journalsHandler,
		SalesHandler:     salesHandler,
		PurchasesHandler: purchasesHandler,
		BankingHandler:   bankingHandler,
		ReportsHandler:   reportsHandler,
		AuditHandler:     auditHandler,
		RBACHandler:      rbacHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
