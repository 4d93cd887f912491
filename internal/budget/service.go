package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records budget events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TxRepository exposes transactional budget operations.
type TxRepository interface {
	InsertBudget(ctx context.Context, b Budget) (Budget, error)
	GetBudget(ctx context.Context, orgID, budgetID int64) (Budget, error)
	InsertLine(ctx context.Context, line BudgetLine) (BudgetLine, error)
	GetLine(ctx context.Context, orgID, lineID int64) (BudgetLine, Budget, error)
	InsertCommitment(ctx context.Context, c BudgetCommitment) (BudgetCommitment, error)
	GetCommitmentForUpdate(ctx context.Context, orgID, commitmentID int64) (BudgetCommitment, error)
	UpdateCommitmentStatus(ctx context.Context, commitmentID int64, status CommitmentStatus) error
	AccountType(ctx context.Context, orgID, accountID int64) (coa.AccountType, error)
	SpentSums(ctx context.Context, orgID, accountID int64, start, end time.Time) (decimal.Decimal, decimal.Decimal, error)
	CommittedSum(ctx context.Context, lineID int64) (decimal.Decimal, error)
	PeriodWindow(ctx context.Context, orgID, periodID int64) (time.Time, time.Time, error)
	FiscalYearWindow(ctx context.Context, orgID, fiscalYearID int64) (time.Time, time.Time, error)
}

// Service tracks allocations, actuals and commitments.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the budget service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateBudget opens a budget under a fiscal year.
func (s *Service) CreateBudget(ctx context.Context, in CreateBudgetInput) (Budget, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return Budget{}, shared.ErrTenantRequired
	}
	if err := in.Validate(); err != nil {
		return Budget{}, err
	}
	var b Budget
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		b, err = tx.InsertBudget(ctx, Budget{
			OrgID:        tenant.OrgID,
			FiscalYearID: in.FiscalYearID,
			Name:         in.Name,
		})
		return err
	})
	return b, err
}

// AddLine allocates funds to an account within the budget.
func (s *Service) AddLine(ctx context.Context, in AddLineInput) (BudgetLine, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return BudgetLine{}, shared.ErrTenantRequired
	}
	if err := in.Validate(); err != nil {
		return BudgetLine{}, err
	}
	var line BudgetLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetBudget(ctx, tenant.OrgID, in.BudgetID); err != nil {
			return err
		}
		if _, err := tx.AccountType(ctx, tenant.OrgID, in.AccountID); err != nil {
			return err
		}
		var err error
		line, err = tx.InsertLine(ctx, BudgetLine{
			BudgetID:  in.BudgetID,
			AccountID: in.AccountID,
			PeriodID:  in.PeriodID,
			Allocated: in.Allocated,
		})
		return err
	})
	return line, err
}

// Commit reserves funds against a line.
func (s *Service) Commit(ctx context.Context, in CommitInput) (BudgetCommitment, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return BudgetCommitment{}, shared.ErrTenantRequired
	}
	if err := in.Validate(); err != nil {
		return BudgetCommitment{}, err
	}
	var c BudgetCommitment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, _, err := tx.GetLine(ctx, tenant.OrgID, in.LineID); err != nil {
			return err
		}
		var err error
		c, err = tx.InsertCommitment(ctx, BudgetCommitment{
			LineID:    in.LineID,
			Amount:    in.Amount,
			Status:    StatusCommitted,
			Reference: in.Reference,
		})
		return err
	})
	if err != nil {
		return BudgetCommitment{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    tenant.OrgID,
			ActorID:  tenant.ActorID,
			Action:   "budget.commit",
			Entity:   "budget_commitment",
			EntityID: fmt.Sprintf("%d", c.ID),
			At:       s.now(),
		})
	}
	return c, nil
}

// ResolveCommitment moves a commitment to INVOICED or CANCELLED. Both states
// are terminal and stop the commitment counting against available funds.
func (s *Service) ResolveCommitment(ctx context.Context, commitmentID int64, status CommitmentStatus) error {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return shared.ErrTenantRequired
	}
	if status != StatusInvoiced && status != StatusCancelled {
		return shared.Validationf("budget: commitment can only move to INVOICED or CANCELLED")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetCommitmentForUpdate(ctx, tenant.OrgID, commitmentID)
		if err != nil {
			return err
		}
		if c.Status != StatusCommitted {
			return shared.Validationf("budget: commitment is already %s", c.Status)
		}
		return tx.UpdateCommitmentStatus(ctx, commitmentID, status)
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    tenant.OrgID,
			ActorID:  tenant.ActorID,
			Action:   "budget.resolve",
			Entity:   "budget_commitment",
			EntityID: fmt.Sprintf("%d", commitmentID),
			At:       s.now(),
		})
	}
	return nil
}

// LineReport computes a line's position from posted activity and open
// commitments. The actuals window is the line's period when set, otherwise
// the whole fiscal year.
func (s *Service) LineReport(ctx context.Context, lineID int64) (LineReport, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return LineReport{}, shared.ErrTenantRequired
	}
	var report LineReport
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		line, b, err := tx.GetLine(ctx, tenant.OrgID, lineID)
		if err != nil {
			return err
		}
		var start, end time.Time
		if line.PeriodID != nil {
			start, end, err = tx.PeriodWindow(ctx, tenant.OrgID, *line.PeriodID)
		} else {
			start, end, err = tx.FiscalYearWindow(ctx, tenant.OrgID, b.FiscalYearID)
		}
		if err != nil {
			return err
		}
		atype, err := tx.AccountType(ctx, tenant.OrgID, line.AccountID)
		if err != nil {
			return err
		}
		debit, credit, err := tx.SpentSums(ctx, tenant.OrgID, line.AccountID, start, end)
		if err != nil {
			return err
		}
		committed, err := tx.CommittedSum(ctx, line.ID)
		if err != nil {
			return err
		}
		report = BuildLineReport(line, NetSpent(atype, debit, credit), committed)
		return nil
	})
	return report, err
}
