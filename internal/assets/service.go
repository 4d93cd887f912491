package assets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records depreciation events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TxRepository exposes transactional asset operations.
type TxRepository interface {
	GetAsset(ctx context.Context, orgID, assetID int64) (FixedAsset, error)
	InsertAsset(ctx context.Context, a FixedAsset) (FixedAsset, error)
	ListActiveAssets(ctx context.Context, orgID int64) ([]FixedAsset, error)
	AccumulatedDepreciation(ctx context.Context, assetID int64) (decimal.Decimal, error)
	InsertDepreciationEntry(ctx context.Context, e DepreciationEntry) (DepreciationEntry, error)
	FindMiscJournal(ctx context.Context, orgID int64) (int64, error)
	PeriodLabel(ctx context.Context, orgID, periodID int64) (string, time.Time, error)
	PostEntry(ctx context.Context, orgID, actorID int64, now time.Time, in ledger.AutoPostingInput) (ledger.JournalEntry, error)
}

// GenerateResult reports the outcome of one depreciation run for one asset.
type GenerateResult struct {
	Skipped bool
	Reason  string
	Entry   DepreciationEntry
}

// RunSummary aggregates a period-wide depreciation run.
type RunSummary struct {
	PeriodID  int64
	Generated int
	Skipped   int
}

// Service schedules straight line depreciation postings.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the depreciation service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Register stores a new fixed asset.
func (s *Service) Register(ctx context.Context, in CreateAssetInput) (FixedAsset, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return FixedAsset{}, shared.ErrTenantRequired
	}
	if err := in.Validate(); err != nil {
		return FixedAsset{}, err
	}
	var asset FixedAsset
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		asset, err = tx.InsertAsset(ctx, FixedAsset{
			OrgID:                tenant.OrgID,
			Code:                 in.Code,
			Name:                 in.Name,
			Cost:                 in.Cost,
			Salvage:              in.Salvage,
			LifeYears:            in.LifeYears,
			AcquiredAt:           in.AcquiredAt,
			ExpenseAccountID:     in.ExpenseAccountID,
			AccumulatedAccountID: in.AccumulatedAccountID,
			Active:               true,
		})
		return err
	})
	return asset, err
}

// GetAsset loads one asset in the caller's organization.
func (s *Service) GetAsset(ctx context.Context, assetID int64) (FixedAsset, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return FixedAsset{}, shared.ErrTenantRequired
	}
	var asset FixedAsset
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		asset, err = tx.GetAsset(ctx, tenant.OrgID, assetID)
		return err
	})
	return asset, err
}

// GenerateEntry posts one period's depreciation for one asset: a balanced
// entry debiting the expense account and crediting accumulated depreciation,
// bound to a DepreciationEntry in the same transaction. A fully depreciated
// asset or a missing MISC journal yields a skip, not an error. A second call
// for the same (asset, period) fails with a conflict.
func (s *Service) GenerateEntry(ctx context.Context, assetID, periodID int64) (GenerateResult, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return GenerateResult{}, shared.ErrTenantRequired
	}
	var result GenerateResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = s.generateTx(ctx, tx, tenant, assetID, periodID)
		return err
	})
	if err != nil {
		return GenerateResult{}, err
	}
	if !result.Skipped && s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    tenant.OrgID,
			ActorID:  tenant.ActorID,
			Action:   "assets.depreciate",
			Entity:   "fixed_asset",
			EntityID: fmt.Sprintf("%d", assetID),
			At:       s.now(),
		})
	}
	return result, nil
}

func (s *Service) generateTx(ctx context.Context, tx TxRepository, tenant shared.Tenant, assetID, periodID int64) (GenerateResult, error) {
	asset, err := tx.GetAsset(ctx, tenant.OrgID, assetID)
	if err != nil {
		return GenerateResult{}, err
	}
	accumulated, err := tx.AccumulatedDepreciation(ctx, asset.ID)
	if err != nil {
		return GenerateResult{}, err
	}
	amount := CalculateAmount(asset, accumulated)
	if !amount.IsPositive() {
		return GenerateResult{Skipped: true, Reason: "asset fully depreciated"}, nil
	}
	journalID, err := tx.FindMiscJournal(ctx, tenant.OrgID)
	if err != nil {
		if errors.Is(err, shared.ErrConfiguration) {
			return GenerateResult{Skipped: true, Reason: "no MISC journal configured"}, nil
		}
		return GenerateResult{}, err
	}
	label, endDate, err := tx.PeriodLabel(ctx, tenant.OrgID, periodID)
	if err != nil {
		return GenerateResult{}, err
	}
	desc := fmt.Sprintf("Depreciation %s %s", asset.Name, label)
	entry, err := tx.PostEntry(ctx, tenant.OrgID, tenant.ActorID, s.now(), ledger.AutoPostingInput{
		PeriodID:    periodID,
		JournalID:   journalID,
		Date:        endDate,
		Reference:   fmt.Sprintf("DEP-%s", asset.Code),
		Description: desc,
		Lines: []ledger.EntryLine{
			ledger.NewLine(asset.ExpenseAccountID, coa.SideDebit, amount, desc),
			ledger.NewLine(asset.AccumulatedAccountID, coa.SideCredit, amount, desc),
		},
	})
	if err != nil {
		return GenerateResult{}, err
	}
	dep, err := tx.InsertDepreciationEntry(ctx, DepreciationEntry{
		OrgID:    tenant.OrgID,
		AssetID:  asset.ID,
		PeriodID: periodID,
		EntryID:  entry.ID,
		Amount:   amount,
	})
	if err != nil {
		return GenerateResult{}, err
	}
	return GenerateResult{Entry: dep}, nil
}

// RunPeriod generates depreciation for every active asset in the period.
// Assets already depreciated for the period count as skipped.
func (s *Service) RunPeriod(ctx context.Context, periodID int64) (RunSummary, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return RunSummary{}, shared.ErrTenantRequired
	}
	summary := RunSummary{PeriodID: periodID}
	var assetIDs []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		list, err := tx.ListActiveAssets(ctx, tenant.OrgID)
		if err != nil {
			return err
		}
		for _, a := range list {
			assetIDs = append(assetIDs, a.ID)
		}
		return nil
	})
	if err != nil {
		return RunSummary{}, err
	}
	for _, id := range assetIDs {
		result, err := s.GenerateEntry(ctx, id, periodID)
		if err != nil {
			if errors.Is(err, shared.ErrConflict) {
				summary.Skipped++
				continue
			}
			return summary, err
		}
		if result.Skipped {
			summary.Skipped++
			continue
		}
		summary.Generated++
	}
	return summary, nil
}
