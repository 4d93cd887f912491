package bankrec

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records reconciliation events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TxRepository exposes transactional reconciliation operations.
type TxRepository interface {
	AccountExists(ctx context.Context, orgID, accountID int64) error
	InsertReconciliation(ctx context.Context, rec BankReconciliation) (BankReconciliation, error)
	GetReconciliationForUpdate(ctx context.Context, orgID, reconID int64) (BankReconciliation, error)
	LedgerSums(ctx context.Context, orgID, accountID int64, until time.Time) (decimal.Decimal, decimal.Decimal, error)
	UnclearedSums(ctx context.Context, orgID, accountID int64, until time.Time) (decimal.Decimal, decimal.Decimal, error)
	MarkLinesCleared(ctx context.Context, orgID, accountID int64, until, clearedAt time.Time) (int64, error)
	SaveBalances(ctx context.Context, reconID int64, b Balances) error
	MarkReconciled(ctx context.Context, reconID int64, b Balances, actorID int64, at time.Time) error
}

// ReconcileResult reports a reconciliation attempt.
type ReconcileResult struct {
	Reconciled   bool
	Balances     Balances
	ClearedLines int64
}

// Service matches ledger activity against bank statements.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the reconciliation service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create opens a draft reconciliation for an account and statement date.
func (s *Service) Create(ctx context.Context, in CreateInput) (BankReconciliation, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return BankReconciliation{}, shared.ErrTenantRequired
	}
	if err := in.Validate(); err != nil {
		return BankReconciliation{}, err
	}
	var rec BankReconciliation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.AccountExists(ctx, tenant.OrgID, in.AccountID); err != nil {
			return err
		}
		var err error
		rec, err = tx.InsertReconciliation(ctx, BankReconciliation{
			OrgID:               tenant.OrgID,
			AccountID:           in.AccountID,
			StatementDate:       in.StatementDate,
			StatementEndBalance: in.StatementEndBalance,
			Status:              StatusDraft,
		})
		return err
	})
	return rec, err
}

// CalculateBalances recomputes and stores the reconciliation position.
func (s *Service) CalculateBalances(ctx context.Context, reconID int64) (Balances, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return Balances{}, shared.ErrTenantRequired
	}
	var balances Balances
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetReconciliationForUpdate(ctx, tenant.OrgID, reconID)
		if err != nil {
			return err
		}
		balances, err = s.balancesTx(ctx, tx, tenant.OrgID, rec)
		if err != nil {
			return err
		}
		return tx.SaveBalances(ctx, rec.ID, balances)
	})
	return balances, err
}

func (s *Service) balancesTx(ctx context.Context, tx TxRepository, orgID int64, rec BankReconciliation) (Balances, error) {
	ledgerDebit, ledgerCredit, err := tx.LedgerSums(ctx, orgID, rec.AccountID, rec.StatementDate)
	if err != nil {
		return Balances{}, err
	}
	unclearedDebit, unclearedCredit, err := tx.UnclearedSums(ctx, orgID, rec.AccountID, rec.StatementDate)
	if err != nil {
		return Balances{}, err
	}
	return ComputeBalances(rec.StatementEndBalance, ledgerDebit, ledgerCredit, unclearedDebit, unclearedCredit), nil
}

// Reconcile succeeds only when the statement matches the expected balance
// exactly. On success every uncleared posted line up to the statement date is
// marked cleared and the reconciliation locks. On a non-zero difference
// nothing changes and the result reports false.
func (s *Service) Reconcile(ctx context.Context, reconID int64) (ReconcileResult, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return ReconcileResult{}, shared.ErrTenantRequired
	}
	var result ReconcileResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetReconciliationForUpdate(ctx, tenant.OrgID, reconID)
		if err != nil {
			return err
		}
		if rec.Status == StatusReconciled {
			return shared.Validationf("bankrec: reconciliation is already final")
		}
		balances, err := s.balancesTx(ctx, tx, tenant.OrgID, rec)
		if err != nil {
			return err
		}
		result.Balances = balances
		if !balances.Difference.IsZero() {
			return nil
		}
		cleared, err := tx.MarkLinesCleared(ctx, tenant.OrgID, rec.AccountID, rec.StatementDate, rec.StatementDate)
		if err != nil {
			return err
		}
		if err := tx.MarkReconciled(ctx, rec.ID, balances, tenant.ActorID, s.now()); err != nil {
			return err
		}
		result.Reconciled = true
		result.ClearedLines = cleared
		return nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	if result.Reconciled && s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    tenant.OrgID,
			ActorID:  tenant.ActorID,
			Action:   "bankrec.reconcile",
			Entity:   "bank_reconciliation",
			EntityID: fmt.Sprintf("%d", reconID),
			At:       s.now(),
		})
	}
	return result, nil
}
