package cashflow

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records cash movements.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// TxRepository exposes transactional cashflow operations.
type TxRepository interface {
	FindBankJournal(ctx context.Context, orgID int64) (int64, error)
	PostEntry(ctx context.Context, orgID, actorID int64, now time.Time, in ledger.AutoPostingInput) (ledger.JournalEntry, error)
	InsertTransaction(ctx context.Context, t CashTransaction) (CashTransaction, error)
	GetTransaction(ctx context.Context, orgID, id int64) (CashTransaction, error)
	ListTransactions(ctx context.Context, orgID, periodID int64) ([]CashTransaction, error)
}

// Service posts payments and receipts through the ledger.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the cashflow service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Record posts one cash movement as a balanced entry and stores the
// transaction bound to it, atomically. The bank side follows the kind:
// receipts debit the bank account, payments credit it.
func (s *Service) Record(ctx context.Context, in RecordInput) (CashTransaction, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return CashTransaction{}, shared.ErrTenantRequired
	}
	if err := in.Validate(); err != nil {
		return CashTransaction{}, err
	}
	var txn CashTransaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		journalID, err := tx.FindBankJournal(ctx, tenant.OrgID)
		if err != nil {
			return err
		}
		desc := in.Description
		if desc == "" {
			desc = fmt.Sprintf("%s %s", in.Kind, in.Reference)
		}
		entry, err := tx.PostEntry(ctx, tenant.OrgID, tenant.ActorID, s.now(), ledger.AutoPostingInput{
			PeriodID:    in.PeriodID,
			JournalID:   journalID,
			Date:        in.Date,
			Reference:   in.Reference,
			Description: desc,
			Lines: []ledger.EntryLine{
				ledger.NewLine(in.BankAccountID, in.Kind.BankSide(), in.Amount, desc),
				ledger.NewLine(in.CounterAccountID, in.Kind.CounterSide(), in.Amount, desc),
			},
		})
		if err != nil {
			return err
		}
		txn, err = tx.InsertTransaction(ctx, CashTransaction{
			OrgID:            tenant.OrgID,
			Kind:             in.Kind,
			PeriodID:         in.PeriodID,
			BankAccountID:    in.BankAccountID,
			CounterAccountID: in.CounterAccountID,
			Amount:           in.Amount,
			Date:             in.Date,
			Reference:        in.Reference,
			Description:      desc,
			EntryID:          entry.ID,
		})
		return err
	})
	if err != nil {
		return CashTransaction{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    tenant.OrgID,
			ActorID:  tenant.ActorID,
			Action:   "cashflow.record",
			Entity:   "cash_transaction",
			EntityID: fmt.Sprintf("%d", txn.ID),
			At:       s.now(),
		})
	}
	return txn, nil
}

// GetTransaction loads one transaction in the caller's organization.
func (s *Service) GetTransaction(ctx context.Context, id int64) (CashTransaction, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return CashTransaction{}, shared.ErrTenantRequired
	}
	var txn CashTransaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		txn, err = tx.GetTransaction(ctx, tenant.OrgID, id)
		return err
	})
	return txn, err
}

// ListTransactions lists a period's transactions.
func (s *Service) ListTransactions(ctx context.Context, periodID int64) ([]CashTransaction, error) {
	tenant, ok := shared.TenantFromContext(ctx)
	if !ok {
		return nil, shared.ErrTenantRequired
	}
	var out []CashTransaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		out, err = tx.ListTransactions(ctx, tenant.OrgID, periodID)
		return err
	})
	return out, err
}
