package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/assets"
	"github.com/meridian-erp/meridian-erp/internal/reports"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeDepreciationRun generates depreciation entries for one period.
	TaskTypeDepreciationRun = "assets:depreciate"
	// TaskTypeReportCacheBump invalidates cached financial reports.
	TaskTypeReportCacheBump = "reports:bump"
	// TaskTypeLedgerIntegrity verifies posted entries stay balanced.
	TaskTypeLedgerIntegrity = "ledger:integrity"
)

// DepreciationRunPayload identifies the tenant and period to depreciate.
type DepreciationRunPayload struct {
	OrgID    int64 `json:"org_id"`
	ActorID  int64 `json:"actor_id"`
	PeriodID int64 `json:"period_id"`
}

// ReportCacheBumpPayload identifies the tenant whose reports went stale.
type ReportCacheBumpPayload struct {
	OrgID int64 `json:"org_id"`
}

// NewDepreciationRunTask constructs an Asynq task.
func NewDepreciationRunTask(payload DepreciationRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDepreciationRun, data), nil
}

// NewReportCacheBumpTask constructs an Asynq task.
func NewReportCacheBumpTask(payload ReportCacheBumpPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReportCacheBump, data), nil
}

// NewLedgerIntegrityTask constructs an Asynq task. The sweep covers every
// organization so it carries no payload.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLedgerIntegrity, nil)
}

// Tasks bundles the services background handlers dispatch into.
type Tasks struct {
	logger  *slog.Logger
	assets  *assets.Service
	reports *reports.Service
	checker *IntegrityChecker
}

// NewTasks constructs the task handler set.
func NewTasks(logger *slog.Logger, assetSvc *assets.Service, reportSvc *reports.Service, checker *IntegrityChecker) *Tasks {
	return &Tasks{logger: logger, assets: assetSvc, reports: reportSvc, checker: checker}
}

// HandleDepreciationRun processes TaskTypeDepreciationRun tasks.
func (t *Tasks) HandleDepreciationRun(ctx context.Context, task *asynq.Task) error {
	var payload DepreciationRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	ctx = shared.ContextWithTenant(ctx, shared.Tenant{OrgID: payload.OrgID, ActorID: payload.ActorID})
	summary, err := t.assets.RunPeriod(ctx, payload.PeriodID)
	if err != nil {
		t.logger.Error("depreciation run failed",
			slog.Int64("org_id", payload.OrgID),
			slog.Int64("period_id", payload.PeriodID),
			slog.Any("error", err))
		return err
	}
	t.logger.Info("depreciation run finished",
		slog.Int64("org_id", payload.OrgID),
		slog.Int64("period_id", summary.PeriodID),
		slog.Int("generated", summary.Generated),
		slog.Int("skipped", summary.Skipped))
	if t.reports != nil {
		if err := t.reports.Invalidate(ctx); err != nil {
			t.logger.Warn("report cache bump after depreciation", slog.Any("error", err))
		}
	}
	return nil
}

// HandleReportCacheBump processes TaskTypeReportCacheBump tasks.
func (t *Tasks) HandleReportCacheBump(ctx context.Context, task *asynq.Task) error {
	var payload ReportCacheBumpPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	ctx = shared.ContextWithTenant(ctx, shared.Tenant{OrgID: payload.OrgID})
	return t.reports.Invalidate(ctx)
}

// HandleLedgerIntegrity processes TaskTypeLedgerIntegrity tasks.
func (t *Tasks) HandleLedgerIntegrity(ctx context.Context, task *asynq.Task) error {
	return t.checker.Run(ctx)
}
