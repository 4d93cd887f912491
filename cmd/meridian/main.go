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

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/assets"
	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/bankrec"
	"github.com/meridian-erp/meridian-erp/internal/budget"
	"github.com/meridian-erp/meridian-erp/internal/cashflow"
	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/periods"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/reports"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
)

type reportBumper struct {
	client *jobs.Client
}

func (b reportBumper) EnqueueReportCacheBump(ctx context.Context, orgID int64) error {
	_, err := b.client.EnqueueReportCacheBump(ctx, jobs.ReportCacheBumpPayload{OrgID: orgID})
	return err
}

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

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	accountService := coa.NewService(coa.NewRepository(pool))
	ledgerService := ledger.NewService(ledger.NewRepository(pool), auditLogger)
	periodService := periods.NewService(periods.NewRepository(pool), auditLogger)
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := reports.NewService(reports.NewRepository(pool), reportCache)
	assetService := assets.NewService(assets.NewRepository(pool), auditLogger)
	budgetService := budget.NewService(budget.NewRepository(pool), auditLogger)
	bankRecService := bankrec.NewService(bankrec.NewRepository(pool), auditLogger)
	cashflowService := cashflow.NewService(cashflow.NewRepository(pool), auditLogger)
	auditService := audit.NewService(audit.NewRepository(pool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: coa.NewHandler(logger, accountService),
		LedgerHandler:   ledger.NewHandler(logger, ledgerService).WithMetrics(metrics).WithEnqueuer(reportBumper{jobClient}),
		PeriodsHandler:  periods.NewHandler(logger, periodService).WithMetrics(metrics),
		ReportsHandler:  reports.NewHandler(logger, reportService),
		AssetsHandler:   assets.NewHandler(logger, assetService),
		BudgetHandler:   budget.NewHandler(logger, budgetService),
		BankRecHandler:  bankrec.NewHandler(logger, bankRecService),
		CashflowHandler: cashflow.NewHandler(logger, cashflowService),
		AuditHandler:    audit.NewHandler(logger, auditService),
		JobsHandler:     jobs.NewHandler(inspector, logger).WithClient(jobClient),
		Metrics:         metrics,
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

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
