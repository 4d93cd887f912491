package bankrec

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Status tracks the reconciliation lifecycle.
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusReconciled Status = "RECONCILED"
)

// BankReconciliation matches an account's ledger position against an external
// statement. At most one exists per (account, statement date).
type BankReconciliation struct {
	ID                  int64
	OrgID               int64
	AccountID           int64
	StatementDate       time.Time
	StatementEndBalance decimal.Decimal
	Balances            Balances
	Status              Status
	ReconciledBy        *int64
	ReconciledAt        *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Balances carries the computed position of a reconciliation.
type Balances struct {
	LedgerBalance            decimal.Decimal `json:"ledger_balance"`
	OutstandingDebits        decimal.Decimal `json:"outstanding_debits"`
	OutstandingCredits       decimal.Decimal `json:"outstanding_credits"`
	ExpectedStatementBalance decimal.Decimal `json:"expected_statement_balance"`
	Difference               decimal.Decimal `json:"difference"`
}

// ComputeBalances derives the expected statement balance from the ledger net
// and the uncleared sums, split by direction. Outstanding debits have not yet
// reached the bank so they are backed out; outstanding credits are added.
func ComputeBalances(statementBalance, ledgerDebit, ledgerCredit, unclearedDebit, unclearedCredit decimal.Decimal) Balances {
	b := Balances{
		LedgerBalance:      ledgerDebit.Sub(ledgerCredit),
		OutstandingDebits:  unclearedDebit,
		OutstandingCredits: unclearedCredit,
	}
	b.ExpectedStatementBalance = b.LedgerBalance.Sub(b.OutstandingDebits).Add(b.OutstandingCredits)
	b.Difference = statementBalance.Sub(b.ExpectedStatementBalance)
	return b
}

// CreateInput opens a draft reconciliation.
type CreateInput struct {
	AccountID           int64
	StatementDate       time.Time
	StatementEndBalance decimal.Decimal
}

// Validate checks the draft.
func (in CreateInput) Validate() error {
	if in.AccountID == 0 {
		return shared.Validationf("bankrec: account is required")
	}
	if in.StatementDate.IsZero() {
		return shared.Validationf("bankrec: statement date is required")
	}
	return nil
}
