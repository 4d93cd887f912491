package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts the aggregation queries.
type RepositoryPort interface {
	AccountActivity(ctx context.Context, orgID int64, window Window, types []coa.AccountType) ([]AccountActivity, error)
	AccountHeader(ctx context.Context, orgID, accountID int64) (int64, string, string, coa.AccountType, error)
	AccountLines(ctx context.Context, orgID, accountID int64, window Window) ([]GeneralLedgerLine, error)
	AccountOpening(ctx context.Context, orgID, accountID int64, atype coa.AccountType, before time.Time) (decimal.Decimal, error)
}

// Service builds reports from posted ledger activity only.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService constructs the report service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

const dateKeyFormat = "2006-01-02"

// GeneralLedger lists one account's posted activity inside the window with a
// running balance.
func (s *Service) GeneralLedger(ctx context.Context, accountID int64, window Window) (GeneralLedgerReport, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return GeneralLedgerReport{}, shared.ErrTenantRequired
	}
	if err := window.Validate(); err != nil {
		return GeneralLedgerReport{}, err
	}
	id, code, name, atype, err := s.repo.AccountHeader(ctx, tenant.OrgID, accountID)
	if err != nil {
		return GeneralLedgerReport{}, err
	}
	report := GeneralLedgerReport{AccountID: id, AccountCode: code, AccountName: name, AccountType: atype, Window: window}
	opening, err := s.repo.AccountOpening(ctx, tenant.OrgID, accountID, atype, window.Start)
	if err != nil {
		return GeneralLedgerReport{}, err
	}
	lines, err := s.repo.AccountLines(ctx, tenant.OrgID, accountID, window)
	if err != nil {
		return GeneralLedgerReport{}, err
	}
	BuildGeneralLedger(&report, opening, lines)
	return report, nil
}

// TrialBalance aggregates every active account's activity over the window.
func (s *Service) TrialBalance(ctx context.Context, window Window) (TrialBalanceReport, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return TrialBalanceReport{}, shared.ErrTenantRequired
	}
	if err := window.Validate(); err != nil {
		return TrialBalanceReport{}, err
	}
	var report TrialBalanceReport
	key, err := s.cache.BuildKey(ctx, "reports", "tb",
		fmt.Sprintf("%d", tenant.OrgID), window.Start.Format(dateKeyFormat), window.End.Format(dateKeyFormat))
	if err != nil {
		return TrialBalanceReport{}, err
	}
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		rows, err := s.repo.AccountActivity(ctx, tenant.OrgID, window, nil)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(window, rows), nil
	})
	return report, err
}

// BalanceSheet reports asset, liability and equity balances as of a date.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheetReport, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return BalanceSheetReport{}, shared.ErrTenantRequired
	}
	if asOf.IsZero() {
		return BalanceSheetReport{}, shared.Validationf("reports: as-of date required")
	}
	report := BalanceSheetReport{AsOf: asOf}
	key, err := s.cache.BuildKey(ctx, "reports", "bs",
		fmt.Sprintf("%d", tenant.OrgID), asOf.Format(dateKeyFormat))
	if err != nil {
		return BalanceSheetReport{}, err
	}
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		window := Window{Start: asOf, End: asOf}
		rows, err := s.repo.AccountActivity(ctx, tenant.OrgID, window,
			[]coa.AccountType{coa.AccountTypeAsset, coa.AccountTypeLiability, coa.AccountTypeEquity})
		if err != nil {
			return nil, err
		}
		built := BalanceSheetReport{AsOf: asOf}
		BuildBalanceSheet(&built, rows)
		return built, nil
	})
	return report, err
}

// IncomeStatement reports revenue and expense activity inside the window.
func (s *Service) IncomeStatement(ctx context.Context, window Window) (IncomeStatementReport, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return IncomeStatementReport{}, shared.ErrTenantRequired
	}
	if err := window.Validate(); err != nil {
		return IncomeStatementReport{}, err
	}
	report := IncomeStatementReport{Window: window}
	key, err := s.cache.BuildKey(ctx, "reports", "is",
		fmt.Sprintf("%d", tenant.OrgID), window.Start.Format(dateKeyFormat), window.End.Format(dateKeyFormat))
	if err != nil {
		return IncomeStatementReport{}, err
	}
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		rows, err := s.repo.AccountActivity(ctx, tenant.OrgID, window,
			[]coa.AccountType{coa.AccountTypeRevenue, coa.AccountTypeExpense})
		if err != nil {
			return nil, err
		}
		built := IncomeStatementReport{Window: window}
		BuildIncomeStatement(&built, rows)
		return built, nil
	})
	return report, err
}

// Invalidate drops cached reports after a posting.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
